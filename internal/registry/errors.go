package registry

import "errors"

var (
	// ErrUnauthorized indicates the caller does not hold the required role.
	ErrUnauthorized = errors.New("caller lacks required role")

	// ErrDuplicateIdentity indicates the wallet is already mapped to a token,
	// active or revoked. Revocation does not free the slot.
	ErrDuplicateIdentity = errors.New("wallet already holds a token")

	// ErrInvalidReputation indicates a score outside [0, 10000].
	ErrInvalidReputation = errors.New("reputation score out of range")

	// ErrEmptyProfileHash indicates a blank profile fingerprint.
	ErrEmptyProfileHash = errors.New("profile hash must not be empty")

	// ErrTokenNotFound indicates the referenced token id does not exist.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenRevoked indicates a mutation attempted on a revoked token.
	ErrTokenRevoked = errors.New("token is revoked")

	// ErrAlreadyRevoked indicates a second revocation of the same token.
	ErrAlreadyRevoked = errors.New("token already revoked")

	// ErrNonTransferable rejects any attempt to move a token between owners.
	// There is no state in which a transfer becomes legal.
	ErrNonTransferable = errors.New("token is soulbound and cannot be transferred")

	// ErrNonApprovable rejects any attempt to grant transfer rights.
	ErrNonApprovable = errors.New("token is soulbound and cannot be approved for transfer")

	// ErrInvalidInput wraps malformed request data outside the dedicated
	// taxonomy above.
	ErrInvalidInput = errors.New("invalid input")
)
