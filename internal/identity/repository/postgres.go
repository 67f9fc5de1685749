package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"food-delivery-platform/auth/internal/identity/domain"
	"food-delivery-platform/auth/internal/platform/autherr"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

const identityColumns = `id, email, password_hash, role, is_verified, is_active, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
// The identities table is created by the embedded migrations (cmd/migrate).
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// GetByEmail returns the identity for email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, domain.NormalizeEmail(email))
	return scanIdentity(row)
}

// Create persists the identity to the database. The identity must have ID set.
// A duplicate email is reported as autherr.Conflict.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		i.ID, domain.NormalizeEmail(i.Email), i.PasswordHash, string(i.Role), i.IsVerified, i.IsActive, i.CreatedAt, i.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return autherr.Wrap(autherr.Conflict, "identity.create", err)
	}
	return err
}

// UpdatePasswordHash updates the password hash for the identity with the given id.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	return r.exec(ctx, "identity.update_password", `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash)
}

// SetVerified sets is_verified for id.
func (r *PostgresRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.exec(ctx, "identity.set_verified", `UPDATE identities SET is_verified = $2, updated_at = $3 WHERE id = $1`, id, verified)
}

// SetActive sets is_active for id. Rows are never deleted.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.exec(ctx, "identity.set_active", `UPDATE identities SET is_active = $2, updated_at = $3 WHERE id = $1`, id, active)
}

// Ping checks the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) exec(ctx context.Context, op, query, id string, value any) error {
	res, err := r.db.ExecContext(ctx, query, id, value, time.Now().UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return autherr.New(autherr.NotFound, op)
	}
	return nil
}

func scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var (
		i    domain.Identity
		role string
	)
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &role, &i.IsVerified, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Role = domain.Role(role)
	return &i, nil
}
