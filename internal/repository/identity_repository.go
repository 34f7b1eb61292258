package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/roster-backend/internal/model"
)

// IdentityRepository handles identity data access.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository creates a new IdentityRepository.
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

const identitySelect = `SELECT id, username, password_hash, role, created_at FROM identities`

func scanIdentity(row pgx.Row) (*model.Identity, error) {
	var (
		i    model.Identity
		role string
	)
	if err := row.Scan(&i.ID, &i.Username, &i.PasswordHash, &role, &i.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	parsed, err := model.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("identity %d: %w", i.ID, err)
	}
	i.Role = parsed
	return &i, nil
}

// CreateIdentity inserts a new identity. A taken username yields ErrUniqueViolation.
func (r *IdentityRepository) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO identities (username, password_hash, role)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		identity.Username, identity.PasswordHash, identity.Role.String(),
	).Scan(&identity.ID, &identity.CreatedAt)
	return mapErr(err)
}

// GetIdentityByID retrieves an identity by ID.
func (r *IdentityRepository) GetIdentityByID(ctx context.Context, id int) (*model.Identity, error) {
	return scanIdentity(r.pool.QueryRow(ctx, identitySelect+` WHERE id = $1`, id))
}

// GetIdentityByUsername retrieves an identity by its unique username.
func (r *IdentityRepository) GetIdentityByUsername(ctx context.Context, username string) (*model.Identity, error) {
	return scanIdentity(r.pool.QueryRow(ctx, identitySelect+` WHERE username = $1`, username))
}
