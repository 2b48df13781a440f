package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velles/storefront/internal/domain/auth"
	"github.com/velles/storefront/internal/domain/user"
)

const (
	createUserSQL = `INSERT INTO users (id, email, full_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	getUserByEmailSQL = `SELECT id, email, full_name, password_hash, role, created_at
		FROM users WHERE email = $1`

	getUserByIDSQL = `SELECT id, email, full_name, password_hash, role, created_at
		FROM users WHERE id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create persists a new user. A duplicate email maps to user.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, createUserSQL,
		u.ID, u.Email, u.FullName, u.PasswordHash, string(u.Role),
	).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return user.ErrEmailTaken
		}
		return errors.Wrapf(err, "creating user %q", u.Email)
	}
	return nil
}

// GetByEmail returns the user with the given email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getUser(ctx, getUserByEmailSQL, email)
}

// GetByID returns the user with the given id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getUser(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) getUser(ctx context.Context, query, arg string) (*user.User, error) {
	var u user.User
	var role string
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &role, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "getting user")
	}
	u.Role = auth.Role(role)
	return &u, nil
}

const (
	createShopSQL = `INSERT INTO shops (id, owner_id, name, address, contact, email, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getShopByIDSQL = `SELECT id, owner_id, name, address, contact, email, currency
		FROM shops WHERE id = $1`

	listShopsByOwnerSQL = `SELECT id, owner_id, name, address, contact, email, currency
		FROM shops WHERE owner_id = $1 ORDER BY name`
)

var _ user.ShopRepository = (*ShopRepository)(nil)

// ShopRepository implements user.ShopRepository backed by PostgreSQL.
type ShopRepository struct {
	pool *pgxpool.Pool
}

// NewShopRepository returns a ShopRepository that uses the given pool.
func NewShopRepository(pool *pgxpool.Pool) *ShopRepository {
	return &ShopRepository{pool: pool}
}

// Create persists a new shop.
func (r *ShopRepository) Create(ctx context.Context, s *user.Shop) error {
	_, err := r.pool.Exec(ctx, createShopSQL,
		s.ID, s.OwnerID, s.Name, s.Address, s.Contact, s.Email, s.Currency,
	)
	if err != nil {
		return errors.Wrapf(err, "creating shop %q", s.Name)
	}
	return nil
}

// GetByID returns a single shop.
func (r *ShopRepository) GetByID(ctx context.Context, id string) (*user.Shop, error) {
	rows, err := r.pool.Query(ctx, getShopByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting shop %q", id)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanShop)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting shop %q", id)
	}
	return &s, nil
}

// ListByOwner returns all shops owned by the given user.
func (r *ShopRepository) ListByOwner(ctx context.Context, ownerID string) ([]user.Shop, error) {
	rows, err := r.pool.Query(ctx, listShopsByOwnerSQL, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "listing shops")
	}
	return pgx.CollectRows(rows, scanShop)
}

func scanShop(row pgx.CollectableRow) (user.Shop, error) {
	var s user.Shop
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Address, &s.Contact, &s.Email, &s.Currency)
	return s, err
}
