package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrOperatorExists indicates the address is already provisioned.
	ErrOperatorExists = errors.New("operator already provisioned")
	// ErrOperatorNotFound indicates no operator is provisioned for the address.
	ErrOperatorNotFound = errors.New("operator not found")
)

// Repository persists operator credentials.
type Repository interface {
	Create(ctx context.Context, operator Operator) error
	FindByAddress(ctx context.Context, address string) (Operator, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed operator repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new operator record.
func (r *PostgresRepository) Create(ctx context.Context, operator Operator) error {
	operatorID, err := uuid.Parse(operator.ID)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `INSERT INTO operators (id, address, secret_hash, created_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT (address) DO NOTHING`,
		operatorID, operator.Address, operator.SecretHash, operator.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrOperatorExists
	}
	return nil
}

// FindByAddress fetches an operator by wallet address.
func (r *PostgresRepository) FindByAddress(ctx context.Context, address string) (Operator, error) {
	row := r.db.QueryRow(ctx, `SELECT id, address, secret_hash, created_at FROM operators WHERE address = $1`, address)
	var (
		id        uuid.UUID
		createdAt time.Time
		operator  Operator
	)
	if err := row.Scan(&id, &operator.Address, &operator.SecretHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Operator{}, ErrOperatorNotFound
		}
		return Operator{}, err
	}
	operator.ID = id.String()
	operator.CreatedAt = createdAt.UTC()
	return operator, nil
}
