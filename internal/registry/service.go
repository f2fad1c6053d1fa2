package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/nomad-pass/nomad_pass/internal/events"
)

// Service enforces the registry rules: role-gated mutation, one token per
// wallet, bounded scores and one-way revocation. State lives behind the
// Repository; the service never holds registry data itself.
//
// The interface deliberately has no transfer or approval operation. A token
// never changes owner after mint.
type Service struct {
	repo      Repository
	publisher events.Publisher
}

// NewService builds a registry service. The publisher may be nil; the change
// log in the repository is the durable record either way.
func NewService(repo Repository, publisher events.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// MintInput captures the data required to issue a passport token.
type MintInput struct {
	Owner           string
	ProfileHash     string
	ReputationScore int32
	TokenURI        string
}

// Mint issues a token to a wallet that has never held one. Requires the
// minter role. A wallet whose token was revoked cannot receive a new one.
func (s *Service) Mint(ctx context.Context, actor Actor, input MintInput) (Token, error) {
	if !actor.HasRole(RoleMinter) {
		return Token{}, ErrUnauthorized
	}
	if input.Owner == "" {
		return Token{}, fmt.Errorf("%w: owner address is required", ErrInvalidInput)
	}
	if input.ProfileHash == "" {
		return Token{}, ErrEmptyProfileHash
	}
	if input.ReputationScore < MinReputation || input.ReputationScore > MaxReputation {
		return Token{}, ErrInvalidReputation
	}

	token := Token{
		Owner:           input.Owner,
		ProfileHash:     input.ProfileHash,
		ReputationScore: input.ReputationScore,
		Active:          true,
		TokenURI:        input.TokenURI,
		MintedAt:        time.Now().UTC(),
	}

	token, ev, err := s.repo.Mint(ctx, token)
	if err != nil {
		return Token{}, err
	}

	s.publish(ctx, ev)
	return token, nil
}

// UpdateReputationScore overwrites the score of an active token. Requires
// the minter role.
func (s *Service) UpdateReputationScore(ctx context.Context, actor Actor, tokenID int64, newScore int32) (Token, error) {
	if !actor.HasRole(RoleMinter) {
		return Token{}, ErrUnauthorized
	}
	if newScore < MinReputation || newScore > MaxReputation {
		return Token{}, ErrInvalidReputation
	}

	token, ev, err := s.repo.UpdateReputation(ctx, tokenID, newScore)
	if err != nil {
		return Token{}, err
	}

	s.publish(ctx, ev)
	return token, nil
}

// UpdateProfileHash overwrites the profile fingerprint of an active token.
// Requires the minter role.
func (s *Service) UpdateProfileHash(ctx context.Context, actor Actor, tokenID int64, newHash string) (Token, error) {
	if !actor.HasRole(RoleMinter) {
		return Token{}, ErrUnauthorized
	}
	if newHash == "" {
		return Token{}, ErrEmptyProfileHash
	}

	token, ev, err := s.repo.UpdateProfileHash(ctx, tokenID, newHash)
	if err != nil {
		return Token{}, err
	}

	s.publish(ctx, ev)
	return token, nil
}

// Revoke permanently deactivates a token. Requires the admin role. The
// record persists and stays readable; it never becomes active again.
func (s *Service) Revoke(ctx context.Context, actor Actor, tokenID int64) (Token, error) {
	if !actor.HasRole(RoleAdmin) {
		return Token{}, ErrUnauthorized
	}

	token, ev, err := s.repo.Revoke(ctx, tokenID)
	if err != nil {
		return Token{}, err
	}

	s.publish(ctx, ev)
	return token, nil
}

// GetProfile returns the mutable identity record of a token.
func (s *Service) GetProfile(ctx context.Context, tokenID int64) (Profile, error) {
	token, err := s.repo.Get(ctx, tokenID)
	if err != nil {
		return Profile{}, err
	}
	return token.Profile(), nil
}

// Get returns the full token record.
func (s *Service) Get(ctx context.Context, tokenID int64) (Token, error) {
	return s.repo.Get(ctx, tokenID)
}

// GetTokenByOwner returns the token mapped to a wallet. Absence is reported
// through the boolean, never as an error.
func (s *Service) GetTokenByOwner(ctx context.Context, owner string) (Token, bool, error) {
	return s.repo.GetByOwner(ctx, owner)
}

// TotalSupply counts all tokens ever minted, revoked included.
func (s *Service) TotalSupply(ctx context.Context) (int64, error) {
	return s.repo.TotalSupply(ctx)
}

// TokenByOwnerIndex returns the owner's token id at the given index. Each
// wallet holds at most one token, so only index 0 can resolve.
func (s *Service) TokenByOwnerIndex(ctx context.Context, owner string, index int) (int64, error) {
	if index != 0 {
		return 0, ErrTokenNotFound
	}
	token, ok, err := s.repo.GetByOwner(ctx, owner)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrTokenNotFound
	}
	return token.ID, nil
}

// GrantRole adds a role to an address. Requires the admin role. Granting an
// already-held role is a no-op.
func (s *Service) GrantRole(ctx context.Context, actor Actor, address string, role Role) error {
	if !actor.HasRole(RoleAdmin) {
		return ErrUnauthorized
	}
	if address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if !ValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	changed, ev, err := s.repo.GrantRole(ctx, address, role)
	if err != nil {
		return err
	}
	if changed {
		s.publish(ctx, ev)
	}
	return nil
}

// RevokeRole removes a role from an address. Requires the admin role.
func (s *Service) RevokeRole(ctx context.Context, actor Actor, address string, role Role) error {
	if !actor.HasRole(RoleAdmin) {
		return ErrUnauthorized
	}
	if !ValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	changed, ev, err := s.repo.RevokeRole(ctx, address, role)
	if err != nil {
		return err
	}
	if changed {
		s.publish(ctx, ev)
	}
	return nil
}

// RolesOf lists the roles held by an address.
func (s *Service) RolesOf(ctx context.Context, address string) ([]Role, error) {
	return s.repo.RolesOf(ctx, address)
}

// ActorFor loads the verified capability set for an authenticated address.
func (s *Service) ActorFor(ctx context.Context, address string) (Actor, error) {
	roles, err := s.repo.RolesOf(ctx, address)
	if err != nil {
		return Actor{}, err
	}
	actor := Actor{Address: address, Roles: make(map[Role]bool, len(roles))}
	for _, role := range roles {
		actor.Roles[role] = true
	}
	return actor, nil
}

// EnsureAdmin grants the admin role outside of actor gating. Used once at
// startup to provision the first administrator from configuration.
func (s *Service) EnsureAdmin(ctx context.Context, address string) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}
	changed, ev, err := s.repo.GrantRole(ctx, address, RoleAdmin)
	if err != nil {
		return err
	}
	if changed {
		s.publish(ctx, ev)
	}
	return nil
}

// Events reads the change log for off-process indexers.
func (s *Service) Events(ctx context.Context, afterSeq int64, limit int) ([]events.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	log, err := s.repo.Events(ctx, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = []events.Event{}
	}
	return log, nil
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, ev) // best effort; the log is the record
}
