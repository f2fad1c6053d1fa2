package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nomad-pass/nomad_pass/internal/config"
)

func testConfig() config.Config {
	return config.Config{JWTSecret: "test-secret", TokenTTL: time.Minute}
}

func TestProvisionAndLogin(t *testing.T) {
	svc := NewService(testConfig(), NewMemoryRepository())
	ctx := context.Background()

	operator, err := svc.Provision(ctx, Credentials{Address: "0xadmin", Secret: "correct-horse"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if operator.Address != "0xadmin" || operator.ID == "" {
		t.Fatalf("unexpected operator: %+v", operator)
	}

	token, err := svc.Login(ctx, Credentials{Address: "0xadmin", Secret: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token.Token == "" || token.ExpiresIn != 60 {
		t.Fatalf("unexpected token: %+v", token)
	}

	address, err := svc.Verify(token.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if address != "0xadmin" {
		t.Fatalf("expected subject 0xadmin, got %s", address)
	}
}

func TestLoginRejectsBadSecret(t *testing.T) {
	svc := NewService(testConfig(), NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Provision(ctx, Credentials{Address: "0xadmin", Secret: "correct-horse"}); err != nil {
		t.Fatalf("provision: %v", err)
	}

	if _, err := svc.Login(ctx, Credentials{Address: "0xadmin", Secret: "wrong-horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, Credentials{Address: "0xunknown", Secret: "correct-horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown address, got %v", err)
	}
}

func TestProvisionValidation(t *testing.T) {
	svc := NewService(testConfig(), NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Provision(ctx, Credentials{Address: "", Secret: "correct-horse"}); err == nil {
		t.Fatalf("expected error for missing address")
	}
	if _, err := svc.Provision(ctx, Credentials{Address: "0xadmin", Secret: "short"}); err == nil {
		t.Fatalf("expected error for short secret")
	}

	if _, err := svc.Provision(ctx, Credentials{Address: "0xadmin", Secret: "correct-horse"}); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if _, err := svc.Provision(ctx, Credentials{Address: "0xadmin", Secret: "another-secret"}); !errors.Is(err, ErrOperatorExists) {
		t.Fatalf("expected ErrOperatorExists, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.TokenTTL = -time.Minute
	svc := NewService(cfg, NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Provision(ctx, Credentials{Address: "0xadmin", Secret: "correct-horse"}); err != nil {
		t.Fatalf("provision: %v", err)
	}
	token, err := svc.Login(ctx, Credentials{Address: "0xadmin", Secret: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := svc.Verify(token.Token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc := NewService(testConfig(), NewMemoryRepository())
	other := NewService(config.Config{JWTSecret: "other-secret", TokenTTL: time.Minute}, NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Provision(ctx, Credentials{Address: "0xadmin", Secret: "correct-horse"}); err != nil {
		t.Fatalf("provision: %v", err)
	}
	token, err := svc.Login(ctx, Credentials{Address: "0xadmin", Secret: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := other.Verify(token.Token); err == nil {
		t.Fatalf("expected signature mismatch across secrets")
	}
}
