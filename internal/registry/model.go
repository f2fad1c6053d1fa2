package registry

import "time"

// Role names a capability set held by a wallet address.
type Role string

const (
	// RoleAdmin may grant and revoke roles and revoke tokens.
	RoleAdmin Role = "admin"
	// RoleMinter may mint tokens and update profile hashes and scores.
	RoleMinter Role = "minter"
)

const (
	// MinReputation is the lowest representable score.
	MinReputation int32 = 0
	// MaxReputation is the highest representable score (fixed point, two
	// implied decimals, so 10000 reads as 100.00).
	MaxReputation int32 = 10000
)

// Token is one soulbound travel passport. Exactly one token ever exists per
// owner address; ownership never changes after mint.
type Token struct {
	ID              int64
	Owner           string
	ProfileHash     string
	ReputationScore int32
	Active          bool
	TokenURI        string
	MintedAt        time.Time
	RevokedAt       *time.Time
}

// Profile is the read projection served to callers that only need the
// mutable identity record.
type Profile struct {
	ProfileHash     string
	ReputationScore int32
	Active          bool
}

// Profile projects the token's identity record.
func (t Token) Profile() Profile {
	return Profile{
		ProfileHash:     t.ProfileHash,
		ReputationScore: t.ReputationScore,
		Active:          t.Active,
	}
}

// Actor is the verified caller capability passed to every mutation. The role
// set is loaded server-side from the role store, never taken from claims.
type Actor struct {
	Address string
	Roles   map[Role]bool
}

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(role Role) bool {
	return a.Roles[role]
}

// ValidRole reports whether the string names a known role.
func ValidRole(role Role) bool {
	return role == RoleAdmin || role == RoleMinter
}
