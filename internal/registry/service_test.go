package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nomad-pass/nomad_pass/internal/events"
)

type testPublisher struct {
	published []events.Event
}

func (p *testPublisher) Publish(_ context.Context, ev events.Event) error {
	p.published = append(p.published, ev)
	return nil
}

func minter() Actor {
	return Actor{Address: "0xminter", Roles: map[Role]bool{RoleMinter: true}}
}

func admin() Actor {
	return Actor{Address: "0xadmin", Roles: map[Role]bool{RoleAdmin: true}}
}

func nobody() Actor {
	return Actor{Address: "0xnobody"}
}

func newTestService() (*Service, *testPublisher) {
	pub := &testPublisher{}
	return NewService(NewMemoryRepository(), pub), pub
}

func TestMintAssignsSequentialIDs(t *testing.T) {
	svc, pub := newTestService()
	ctx := context.Background()

	first, err := svc.Mint(ctx, minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: 5000, TokenURI: "ipfs://x"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if first.ID != 0 {
		t.Fatalf("expected token id 0, got %d", first.ID)
	}
	if !first.Active {
		t.Fatalf("expected minted token to be active")
	}

	second, err := svc.Mint(ctx, minter(), MintInput{Owner: "0xbbb", ProfileHash: "0xdef", ReputationScore: 100, TokenURI: "ipfs://y"})
	if err != nil {
		t.Fatalf("mint second: %v", err)
	}
	if second.ID != 1 {
		t.Fatalf("expected token id 1, got %d", second.ID)
	}

	profile, err := svc.GetProfile(ctx, 0)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.ProfileHash != "0xabc" || profile.ReputationScore != 5000 || !profile.Active {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	token, exists, err := svc.GetTokenByOwner(ctx, "0xaaa")
	if err != nil || !exists {
		t.Fatalf("expected owner mapping, exists=%v err=%v", exists, err)
	}
	if token.ID != 0 {
		t.Fatalf("expected token 0 for owner, got %d", token.ID)
	}

	supply, err := svc.TotalSupply(ctx)
	if err != nil || supply != 2 {
		t.Fatalf("expected supply 2, got %d err=%v", supply, err)
	}

	if len(pub.published) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(pub.published))
	}
	if pub.published[0].Kind != events.KindMinted {
		t.Fatalf("expected minted event, got %s", pub.published[0].Kind)
	}
}

func TestMintRejectsDuplicateIdentity(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Mint(ctx, minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: 5000}); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := svc.Mint(ctx, minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xother", ReputationScore: 1}); !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}

	// State unchanged by the rejected call.
	supply, _ := svc.TotalSupply(ctx)
	if supply != 1 {
		t.Fatalf("expected supply 1 after rejected mint, got %d", supply)
	}
	profile, _ := svc.GetProfile(ctx, 0)
	if profile.ProfileHash != "0xabc" {
		t.Fatalf("profile mutated by rejected mint: %+v", profile)
	}
}

func TestNoRemintAfterRevocation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Mint(ctx, minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: 5000}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := svc.Revoke(ctx, admin(), 0); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	// Revocation never frees the wallet slot.
	if _, err := svc.Mint(ctx, minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xnew", ReputationScore: 1}); !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity after revocation, got %v", err)
	}
}

func TestMintValidation(t *testing.T) {
	svc, pub := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		actor Actor
		input MintInput
		want  error
	}{
		{"unauthorized", nobody(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: 1}, ErrUnauthorized},
		{"admin is not minter", admin(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: 1}, ErrUnauthorized},
		{"score too high", minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: 10001}, ErrInvalidReputation},
		{"score negative", minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: -1}, ErrInvalidReputation},
		{"empty hash", minter(), MintInput{Owner: "0xaaa", ReputationScore: 1}, ErrEmptyProfileHash},
		{"empty owner", minter(), MintInput{ProfileHash: "0xabc", ReputationScore: 1}, ErrInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Mint(ctx, tc.actor, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	supply, _ := svc.TotalSupply(ctx)
	if supply != 0 {
		t.Fatalf("rejected mints created tokens: supply=%d", supply)
	}
	if len(pub.published) != 0 {
		t.Fatalf("rejected mints published events: %d", len(pub.published))
	}
}

func TestUpdateReputationScore(t *testing.T) {
	svc, pub := newTestService()
	ctx := context.Background()

	if _, err := svc.Mint(ctx, minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: 5000}); err != nil {
		t.Fatalf("mint: %v", err)
	}

	token, err := svc.UpdateReputationScore(ctx, minter(), 0, 7500)
	if err != nil {
		t.Fatalf("update reputation: %v", err)
	}
	if token.ReputationScore != 7500 {
		t.Fatalf("expected score 7500, got %d", token.ReputationScore)
	}

	ev := pub.published[len(pub.published)-1]
	if ev.Kind != events.KindReputationUpdated {
		t.Fatalf("expected reputation_updated event, got %s", ev.Kind)
	}
	var payload struct {
		OldScore int32 `json:"old_score"`
		NewScore int32 `json:"new_score"`
	}
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.OldScore != 5000 || payload.NewScore != 7500 {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	if _, err := svc.UpdateReputationScore(ctx, minter(), 0, 10001); !errors.Is(err, ErrInvalidReputation) {
		t.Fatalf("expected ErrInvalidReputation, got %v", err)
	}
	if _, err := svc.UpdateReputationScore(ctx, nobody(), 0, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.UpdateReputationScore(ctx, minter(), 42, 1); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestUpdateProfileHash(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Mint(ctx, minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: 5000}); err != nil {
		t.Fatalf("mint: %v", err)
	}

	token, err := svc.UpdateProfileHash(ctx, minter(), 0, "0xnew")
	if err != nil {
		t.Fatalf("update hash: %v", err)
	}
	if token.ProfileHash != "0xnew" {
		t.Fatalf("expected hash 0xnew, got %s", token.ProfileHash)
	}

	if _, err := svc.UpdateProfileHash(ctx, minter(), 0, ""); !errors.Is(err, ErrEmptyProfileHash) {
		t.Fatalf("expected ErrEmptyProfileHash, got %v", err)
	}
	if _, err := svc.UpdateProfileHash(ctx, nobody(), 0, "0xx"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRevokeIsTerminal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Mint(ctx, minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: 5000}); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := svc.Revoke(ctx, minter(), 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("minter must not revoke, got %v", err)
	}

	token, err := svc.Revoke(ctx, admin(), 0)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if token.Active || token.RevokedAt == nil {
		t.Fatalf("expected inactive token with revocation time: %+v", token)
	}

	profile, _ := svc.GetProfile(ctx, 0)
	if profile.Active {
		t.Fatalf("profile still active after revoke")
	}

	if _, err := svc.UpdateReputationScore(ctx, minter(), 0, 1); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
	if _, err := svc.UpdateProfileHash(ctx, minter(), 0, "0xx"); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
	if _, err := svc.Revoke(ctx, admin(), 0); !errors.Is(err, ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}

	// The record persists and remains queryable.
	kept, exists, err := svc.GetTokenByOwner(ctx, "0xaaa")
	if err != nil || !exists || kept.ID != 0 {
		t.Fatalf("revoked token no longer queryable: exists=%v err=%v", exists, err)
	}
}

func TestRevokeMissingToken(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Revoke(context.Background(), admin(), 7); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestTokenByOwnerIndex(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Mint(ctx, minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: 5000}); err != nil {
		t.Fatalf("mint: %v", err)
	}

	tokenID, err := svc.TokenByOwnerIndex(ctx, "0xaaa", 0)
	if err != nil || tokenID != 0 {
		t.Fatalf("expected token 0 at index 0, got %d err=%v", tokenID, err)
	}
	if _, err := svc.TokenByOwnerIndex(ctx, "0xaaa", 1); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for index 1, got %v", err)
	}
	if _, err := svc.TokenByOwnerIndex(ctx, "0xunknown", 0); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for unmapped wallet, got %v", err)
	}

	_, exists, err := svc.GetTokenByOwner(ctx, "0xunknown")
	if err != nil || exists {
		t.Fatalf("unmapped wallet must report exists=false without error, exists=%v err=%v", exists, err)
	}
}

func TestRoleAdministration(t *testing.T) {
	svc, pub := newTestService()
	ctx := context.Background()

	if err := svc.GrantRole(ctx, nobody(), "0xnew", RoleMinter); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.GrantRole(ctx, admin(), "0xnew", Role("superuser")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}

	if err := svc.GrantRole(ctx, admin(), "0xnew", RoleMinter); err != nil {
		t.Fatalf("grant: %v", err)
	}
	published := len(pub.published)

	// Granting a held role is a no-op with no event.
	if err := svc.GrantRole(ctx, admin(), "0xnew", RoleMinter); err != nil {
		t.Fatalf("idempotent grant: %v", err)
	}
	if len(pub.published) != published {
		t.Fatalf("idempotent grant published an event")
	}

	actor, err := svc.ActorFor(ctx, "0xnew")
	if err != nil {
		t.Fatalf("actor for: %v", err)
	}
	if !actor.HasRole(RoleMinter) || actor.HasRole(RoleAdmin) {
		t.Fatalf("unexpected roles: %+v", actor.Roles)
	}

	if err := svc.RevokeRole(ctx, admin(), "0xnew", RoleMinter); err != nil {
		t.Fatalf("revoke role: %v", err)
	}
	actor, _ = svc.ActorFor(ctx, "0xnew")
	if actor.HasRole(RoleMinter) {
		t.Fatalf("role still held after revocation")
	}
}

func TestEventsLog(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Mint(ctx, minter(), MintInput{Owner: "0xaaa", ProfileHash: "0xabc", ReputationScore: 5000}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := svc.UpdateReputationScore(ctx, minter(), 0, 9000); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Revoke(ctx, admin(), 0); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	log, err := svc.Events(ctx, 0, 10)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	kinds := []string{events.KindMinted, events.KindReputationUpdated, events.KindRevoked}
	if len(log) != len(kinds) {
		t.Fatalf("expected %d events, got %d", len(kinds), len(log))
	}
	for i, ev := range log {
		if ev.Kind != kinds[i] {
			t.Fatalf("event %d: expected %s, got %s", i, kinds[i], ev.Kind)
		}
		if ev.Seq != int64(i)+1 {
			t.Fatalf("event %d: expected seq %d, got %d", i, i+1, ev.Seq)
		}
	}

	tail, err := svc.Events(ctx, 1, 10)
	if err != nil || len(tail) != 2 {
		t.Fatalf("expected 2 events after seq 1, got %d err=%v", len(tail), err)
	}
	if tail[0].Kind != events.KindReputationUpdated {
		t.Fatalf("unexpected first tail event: %s", tail[0].Kind)
	}
}
