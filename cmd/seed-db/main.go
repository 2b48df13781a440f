// Command seed-db provisions a development database: schema, demo accounts,
// a shop, and the product catalog from a JSON file. Running it twice is safe;
// existing accounts are kept and products are upserted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velles/storefront/internal/domain/auth"
	"github.com/velles/storefront/internal/domain/catalog"
	"github.com/velles/storefront/internal/domain/user"
	"github.com/velles/storefront/internal/storage/postgres"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func main() {
	var (
		databaseURL    string
		productsFile   string
		sellerPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&sellerPassword, "seller-password", "", "password for the demo accounts (or STOREFRONT_SEED_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if sellerPassword == "" {
		sellerPassword = os.Getenv("STOREFRONT_SEED_PASSWORD")
	}
	if sellerPassword == "" {
		slog.Error("seed password is required: set --seller-password or STOREFRONT_SEED_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, sellerPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, password string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	users := user.NewService(postgres.NewUserRepository(pool))
	shops := postgres.NewShopRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)

	seller, err := ensureAccount(ctx, users, "seller@example.com", password, "Demo Seller", auth.RoleSeller)
	if err != nil {
		return errors.Wrap(err, "seed seller")
	}
	if _, err := ensureAccount(ctx, users, "customer@example.com", password, "Demo Customer", auth.RoleCustomer); err != nil {
		return errors.Wrap(err, "seed customer")
	}

	shop, err := ensureShop(ctx, shops, seller.ID)
	if err != nil {
		return errors.Wrap(err, "seed shop")
	}

	if err := seedProducts(ctx, catalogRepo, shop.ID, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

// ensureAccount registers the account unless the email already exists.
func ensureAccount(ctx context.Context, users *user.Service, email, password, fullName string, role auth.Role) (*user.User, error) {
	u, err := users.Register(ctx, email, password, fullName, role)
	if err == nil {
		slog.Info("registered account", slog.String("email", email), slog.String("role", string(role)))
		return u, nil
	}
	if !errors.Is(err, user.ErrEmailTaken) {
		return nil, err
	}

	slog.Info("account already exists", slog.String("email", email))
	return users.Authenticate(ctx, email, password)
}

// ensureShop returns the seller's shop, creating it on first run.
func ensureShop(ctx context.Context, shops user.ShopRepository, ownerID string) (*user.Shop, error) {
	existing, err := shops.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		slog.Info("shop already exists", slog.String("id", existing[0].ID))
		return &existing[0], nil
	}

	shop := &user.Shop{
		ID:       uuid.New().String(),
		OwnerID:  ownerID,
		Name:     "Demo Shop",
		Address:  "1 Market Street",
		Contact:  "+1 555 0100",
		Email:    "shop@example.com",
		Currency: "USD",
	}
	if err := shops.Create(ctx, shop); err != nil {
		return nil, err
	}

	slog.Info("created shop", slog.String("id", shop.ID), slog.String("name", shop.Name))
	return shop, nil
}

func seedProducts(ctx context.Context, repo *postgres.CatalogRepository, shopID, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		categoryID := p.Category
		if categoryID != "" {
			if err := repo.UpsertCategory(ctx, &catalog.Category{ID: categoryID, Name: p.Category}); err != nil {
				return errors.Wrapf(err, "upsert category %s", categoryID)
			}
		}

		if err := repo.Upsert(ctx, &catalog.Product{
			ID:         p.ID,
			ShopID:     shopID,
			CategoryID: categoryID,
			Name:       p.Name,
			Image:      p.Image,
			Quantity:   p.Quantity,
			Price:      p.Price,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}
