// Package user holds account and shop entities and the registration and
// login flows.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/velles/storefront/internal/domain/auth"
)

// Sentinel errors for account operations.
var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is a registered account. PasswordHash is a bcrypt hash and never
// leaves the service layer.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash []byte
	Role         auth.Role
	CreatedAt    time.Time
}

// Shop is a seller-owned storefront. Currency is a display label only; no
// conversion happens anywhere in the system.
type Shop struct {
	ID       string
	OwnerID  string
	Name     string
	Address  string
	Contact  string
	Email    string
	Currency string
}

// Repository defines persistence operations for users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// ShopRepository defines persistence operations for shops.
type ShopRepository interface {
	Create(ctx context.Context, s *Shop) error
	GetByID(ctx context.Context, id string) (*Shop, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Shop, error)
}
