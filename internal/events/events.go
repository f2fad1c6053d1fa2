package events

import (
	"encoding/json"
	"time"
)

const (
	// KindMinted records the creation of a passport token.
	KindMinted = "minted"
	// KindReputationUpdated records a reputation score change.
	KindReputationUpdated = "reputation_updated"
	// KindProfileHashUpdated records a profile fingerprint change.
	KindProfileHashUpdated = "profile_hash_updated"
	// KindRevoked records a one-way token deactivation.
	KindRevoked = "revoked"
	// KindRoleGranted records a role grant on an address.
	KindRoleGranted = "role_granted"
	// KindRoleRevoked records a role revocation on an address.
	KindRoleRevoked = "role_revoked"
)

// Event is one record in the registry change log. Seq is assigned by the
// store when the record is appended; records for failed mutations are never
// written.
type Event struct {
	Seq       int64           `json:"seq"`
	Kind      string          `json:"kind"`
	TokenID   int64           `json:"token_id"`
	Owner     string          `json:"owner"`
	Payload   json.RawMessage `json:"payload"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// New builds an unsequenced event with a JSON payload. The payload must be
// marshalable; helpers below cover the known shapes.
func New(kind string, tokenID int64, owner string, payload any) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	return Event{
		Kind:      kind,
		TokenID:   tokenID,
		Owner:     owner,
		Payload:   raw,
		EmittedAt: time.Now().UTC(),
	}
}

// Minted builds the change record emitted when a token is created.
func Minted(tokenID int64, owner, profileHash string, reputationScore int32) Event {
	return New(KindMinted, tokenID, owner, map[string]any{
		"profile_hash":     profileHash,
		"reputation_score": reputationScore,
	})
}

// ReputationUpdated builds the change record for a score overwrite.
func ReputationUpdated(tokenID int64, owner string, oldScore, newScore int32) Event {
	return New(KindReputationUpdated, tokenID, owner, map[string]any{
		"old_score": oldScore,
		"new_score": newScore,
	})
}

// ProfileHashUpdated builds the change record for a fingerprint overwrite.
func ProfileHashUpdated(tokenID int64, owner, newHash string) Event {
	return New(KindProfileHashUpdated, tokenID, owner, map[string]any{
		"profile_hash": newHash,
	})
}

// Revoked builds the change record for a token deactivation.
func Revoked(tokenID int64, owner string) Event {
	return New(KindRevoked, tokenID, owner, map[string]any{
		"owner": owner,
	})
}

// RoleGranted builds the change record for a role grant.
func RoleGranted(address, role string) Event {
	return New(KindRoleGranted, 0, address, map[string]any{
		"address": address,
		"role":    role,
	})
}

// RoleRevoked builds the change record for a role revocation.
func RoleRevoked(address, role string) Event {
	return New(KindRoleRevoked, 0, address, map[string]any{
		"address": address,
		"role":    role,
	})
}
