package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nomad-pass/nomad_pass/internal/config"
)

// ErrInvalidCredentials indicates a failed login attempt.
var ErrInvalidCredentials = errors.New("invalid credentials")

const minSecretLength = 8

// Service provisions operators and issues access tokens carrying the
// caller's wallet address. Roles are resolved against the registry at
// request time, so a token never embeds capabilities.
type Service struct {
	cfg  config.Config
	repo Repository
}

// NewService creates the auth service.
func NewService(cfg config.Config, repo Repository) *Service {
	return &Service{cfg: cfg, repo: repo}
}

// Provision registers a new operator with a bcrypt-hashed secret.
func (s *Service) Provision(ctx context.Context, creds Credentials) (Operator, error) {
	if creds.Address == "" {
		return Operator{}, errors.New("address is required")
	}
	if len(creds.Secret) < minSecretLength {
		return Operator{}, errors.New("secret must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Secret), bcrypt.DefaultCost)
	if err != nil {
		return Operator{}, err
	}

	operator := Operator{
		ID:         uuid.New().String(),
		Address:    creds.Address,
		SecretHash: hash,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, operator); err != nil {
		return Operator{}, err
	}
	return operator, nil
}

// AccessToken is a signed bearer token plus its lifetime in seconds.
type AccessToken struct {
	Token     string `json:"access_token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Login verifies the operator secret and issues an HS256 access token with
// the wallet address as subject.
func (s *Service) Login(ctx context.Context, creds Credentials) (AccessToken, error) {
	operator, err := s.repo.FindByAddress(ctx, creds.Address)
	if err != nil {
		return AccessToken{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(operator.SecretHash, []byte(creds.Secret)); err != nil {
		return AccessToken{}, ErrInvalidCredentials
	}

	now := time.Now()
	exp := now.Add(s.cfg.TokenTTL)
	claims := map[string]any{
		"sub": operator.Address,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	signed, err := SignHS256(claims, []byte(s.cfg.JWTSecret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, ExpiresIn: int64(s.cfg.TokenTTL.Seconds())}, nil
}

// Verify checks a bearer token's signature and expiry and returns the caller
// address.
func (s *Service) Verify(token string) (string, error) {
	claims, err := ParseAndVerifyHS256(token, []byte(s.cfg.JWTSecret))
	if err != nil {
		return "", err
	}
	expFloat, _ := claims["exp"].(float64)
	if time.Now().Unix() >= int64(expFloat) {
		return "", errors.New("token expired")
	}
	address, _ := claims["sub"].(string)
	if address == "" {
		return "", errors.New("missing subject")
	}
	return address, nil
}
