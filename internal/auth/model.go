package auth

import "time"

// Operator is a provisioned caller of the registry API: an ops-console user
// or backend service identified by its wallet address. Roles are held in the
// registry role store, not here.
type Operator struct {
	ID         string
	Address    string
	SecretHash []byte
	CreatedAt  time.Time
}

// Credentials carries a login or provisioning request.
type Credentials struct {
	Address string
	Secret  string
}
