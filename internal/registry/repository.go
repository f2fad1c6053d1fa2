package registry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nomad-pass/nomad_pass/internal/events"
)

// Repository persists tokens, roles and the change log. Mutations are
// all-or-nothing: the change record is appended in the same transaction as
// the state change, and a failed precondition leaves both untouched.
type Repository interface {
	Mint(ctx context.Context, token Token) (Token, events.Event, error)
	UpdateReputation(ctx context.Context, tokenID int64, newScore int32) (Token, events.Event, error)
	UpdateProfileHash(ctx context.Context, tokenID int64, newHash string) (Token, events.Event, error)
	Revoke(ctx context.Context, tokenID int64) (Token, events.Event, error)

	Get(ctx context.Context, tokenID int64) (Token, error)
	GetByOwner(ctx context.Context, owner string) (Token, bool, error)
	TotalSupply(ctx context.Context) (int64, error)

	// GrantRole and RevokeRole are idempotent; changed reports whether the
	// role set actually moved (an event is appended only on change).
	GrantRole(ctx context.Context, address string, role Role) (changed bool, ev events.Event, err error)
	RevokeRole(ctx context.Context, address string, role Role) (changed bool, ev events.Event, err error)
	RolesOf(ctx context.Context, address string) ([]Role, error)

	Events(ctx context.Context, afterSeq int64, limit int) ([]events.Event, error)
}

// PostgresRepository implements Repository on PostgreSQL. Sequential token
// ids come from a single-row counter locked FOR UPDATE so concurrent mints
// serialize and ids stay gap-free.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed registry repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tokenColumns = `id, owner, profile_hash, reputation_score, active, token_uri, minted_at, revoked_at`

func scanToken(row pgx.Row) (Token, error) {
	var t Token
	var revokedAt *time.Time
	if err := row.Scan(&t.ID, &t.Owner, &t.ProfileHash, &t.ReputationScore, &t.Active, &t.TokenURI, &t.MintedAt, &revokedAt); err != nil {
		return Token{}, err
	}
	t.MintedAt = t.MintedAt.UTC()
	if revokedAt != nil {
		utc := revokedAt.UTC()
		t.RevokedAt = &utc
	}
	return t, nil
}

// Mint assigns the next sequential token id, records the token and appends
// the minted event, all in one transaction.
func (r *PostgresRepository) Mint(ctx context.Context, token Token) (Token, events.Event, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Token{}, events.Event{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tokens WHERE owner = $1)`, token.Owner).Scan(&exists); err != nil {
		return Token{}, events.Event{}, err
	}
	if exists {
		return Token{}, events.Event{}, ErrDuplicateIdentity
	}

	if err := tx.QueryRow(ctx, `SELECT next_token_id FROM registry_state WHERE id = 1 FOR UPDATE`).Scan(&token.ID); err != nil {
		return Token{}, events.Event{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE registry_state SET next_token_id = $1 WHERE id = 1`, token.ID+1); err != nil {
		return Token{}, events.Event{}, err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO tokens (id, owner, profile_hash, reputation_score, active, token_uri, minted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		token.ID, token.Owner, token.ProfileHash, token.ReputationScore, token.Active, token.TokenURI, token.MintedAt.UTC()); err != nil {
		return Token{}, events.Event{}, err
	}

	ev, err := appendEvent(ctx, tx, events.Minted(token.ID, token.Owner, token.ProfileHash, token.ReputationScore))
	if err != nil {
		return Token{}, events.Event{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Token{}, events.Event{}, err
	}
	return token, ev, nil
}

// UpdateReputation overwrites the score of an active token.
func (r *PostgresRepository) UpdateReputation(ctx context.Context, tokenID int64, newScore int32) (Token, events.Event, error) {
	return r.mutate(ctx, tokenID, ErrTokenRevoked, func(t *Token) events.Event {
		old := t.ReputationScore
		t.ReputationScore = newScore
		return events.ReputationUpdated(t.ID, t.Owner, old, newScore)
	})
}

// UpdateProfileHash overwrites the fingerprint of an active token.
func (r *PostgresRepository) UpdateProfileHash(ctx context.Context, tokenID int64, newHash string) (Token, events.Event, error) {
	return r.mutate(ctx, tokenID, ErrTokenRevoked, func(t *Token) events.Event {
		t.ProfileHash = newHash
		return events.ProfileHashUpdated(t.ID, t.Owner, newHash)
	})
}

// Revoke deactivates an active token. The record persists and stays readable.
func (r *PostgresRepository) Revoke(ctx context.Context, tokenID int64) (Token, events.Event, error) {
	return r.mutate(ctx, tokenID, ErrAlreadyRevoked, func(t *Token) events.Event {
		now := time.Now().UTC()
		t.Active = false
		t.RevokedAt = &now
		return events.Revoked(t.ID, t.Owner)
	})
}

// mutate locks the token row, applies the update to an active token and
// appends the change record in the same transaction. revokedErr is returned
// when the token is already inactive.
func (r *PostgresRepository) mutate(ctx context.Context, tokenID int64, revokedErr error, apply func(*Token) events.Event) (Token, events.Event, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Token{}, events.Event{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	token, err := scanToken(tx.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = $1 FOR UPDATE`, tokenID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, events.Event{}, ErrTokenNotFound
		}
		return Token{}, events.Event{}, err
	}
	if !token.Active {
		return Token{}, events.Event{}, revokedErr
	}

	ev := apply(&token)

	if _, err := tx.Exec(ctx, `UPDATE tokens SET profile_hash = $2, reputation_score = $3, active = $4, revoked_at = $5 WHERE id = $1`,
		token.ID, token.ProfileHash, token.ReputationScore, token.Active, token.RevokedAt); err != nil {
		return Token{}, events.Event{}, err
	}

	ev, err = appendEvent(ctx, tx, ev)
	if err != nil {
		return Token{}, events.Event{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Token{}, events.Event{}, err
	}
	return token, ev, nil
}

// Get fetches a token by id.
func (r *PostgresRepository) Get(ctx context.Context, tokenID int64) (Token, error) {
	token, err := scanToken(r.db.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = $1`, tokenID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, ErrTokenNotFound
		}
		return Token{}, err
	}
	return token, nil
}

// GetByOwner fetches the token mapped to a wallet, reporting absence without
// an error.
func (r *PostgresRepository) GetByOwner(ctx context.Context, owner string) (Token, bool, error) {
	token, err := scanToken(r.db.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE owner = $1`, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, false, nil
		}
		return Token{}, false, err
	}
	return token, true, nil
}

// TotalSupply counts all tokens ever minted, revoked included.
func (r *PostgresRepository) TotalSupply(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT next_token_id FROM registry_state WHERE id = 1`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GrantRole adds a role to an address. Granting an already-held role is a
// no-op with no event.
func (r *PostgresRepository) GrantRole(ctx context.Context, address string, role Role) (bool, events.Event, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, events.Event{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cmd, err := tx.Exec(ctx, `INSERT INTO roles (address, role, granted_at) VALUES ($1, $2, $3)
        ON CONFLICT (address, role) DO NOTHING`, address, string(role), time.Now().UTC())
	if err != nil {
		return false, events.Event{}, err
	}
	if cmd.RowsAffected() == 0 {
		return false, events.Event{}, tx.Commit(ctx)
	}

	ev, err := appendEvent(ctx, tx, events.RoleGranted(address, string(role)))
	if err != nil {
		return false, events.Event{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, events.Event{}, err
	}
	return true, ev, nil
}

// RevokeRole removes a role from an address. Revoking an unheld role is a
// no-op with no event.
func (r *PostgresRepository) RevokeRole(ctx context.Context, address string, role Role) (bool, events.Event, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, events.Event{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cmd, err := tx.Exec(ctx, `DELETE FROM roles WHERE address = $1 AND role = $2`, address, string(role))
	if err != nil {
		return false, events.Event{}, err
	}
	if cmd.RowsAffected() == 0 {
		return false, events.Event{}, tx.Commit(ctx)
	}

	ev, err := appendEvent(ctx, tx, events.RoleRevoked(address, string(role)))
	if err != nil {
		return false, events.Event{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, events.Event{}, err
	}
	return true, ev, nil
}

// RolesOf lists the roles held by an address.
func (r *PostgresRepository) RolesOf(ctx context.Context, address string) ([]Role, error) {
	rows, err := r.db.Query(ctx, `SELECT role FROM roles WHERE address = $1 ORDER BY role`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, Role(role))
	}
	return roles, rows.Err()
}

// Events reads the change log in sequence order, starting after afterSeq.
func (r *PostgresRepository) Events(ctx context.Context, afterSeq int64, limit int) ([]events.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT seq, kind, token_id, owner, payload, emitted_at
        FROM registry_events WHERE seq > $1 ORDER BY seq LIMIT $2`, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var log []events.Event
	for rows.Next() {
		var ev events.Event
		if err := rows.Scan(&ev.Seq, &ev.Kind, &ev.TokenID, &ev.Owner, &ev.Payload, &ev.EmittedAt); err != nil {
			return nil, err
		}
		ev.EmittedAt = ev.EmittedAt.UTC()
		log = append(log, ev)
	}
	return log, rows.Err()
}

func appendEvent(ctx context.Context, tx pgx.Tx, ev events.Event) (events.Event, error) {
	err := tx.QueryRow(ctx, `INSERT INTO registry_events (kind, token_id, owner, payload, emitted_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING seq`,
		ev.Kind, ev.TokenID, ev.Owner, ev.Payload, ev.EmittedAt).Scan(&ev.Seq)
	if err != nil {
		return events.Event{}, err
	}
	return ev, nil
}
