// Package catalog holds the product catalog consumed by the order core.
// Orders only ever read from it; stock quantities are never decremented
// here.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a purchasable catalog entry owned by a shop.
type Product struct {
	ID         string
	ShopID     string
	CategoryID string
	Name       string
	Image      string
	Quantity   int
	Price      decimal.Decimal
}

// Category groups products for browsing.
type Category struct {
	ID   string
	Name string
}

// Repository defines persistence operations for the catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Upsert(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]Category, error)
	UpsertCategory(ctx context.Context, c *Category) error
}
