// Command catalog-ingest bulk-loads gzipped newline-delimited JSON product
// exports into the catalog. Files are streamed concurrently; a bloom filter
// of already-written ids skips the duplicates that supplier exports tend to
// repeat across files.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/velles/storefront/internal/domain/catalog"
	"github.com/velles/storefront/internal/storage/postgres"
)

const (
	seenCapacity  = 10_000_000
	seenFPR       = 0.001
	progressEvery = 100_000
)

type productLine struct {
	ID         string          `json:"id"`
	ShopID     string          `json:"shop_id"`
	CategoryID string          `json:"category_id"`
	Category   string          `json:"category"`
	Name       string          `json:"name"`
	Image      string          `json:"image"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
		workers     int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.json.gz product exports")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 4, "number of files processed concurrently")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, workers); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, workers int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.json.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.json.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	ing := &ingester{
		repo: postgres.NewCatalogRepository(pool),
		seen: bloom.NewWithEstimates(seenCapacity, seenFPR),
	}

	slog.Info("ingesting product files", slog.Int("files", len(files)), slog.Int("workers", workers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, f := range files {
		g.Go(func() error {
			return ing.ingestFile(ctx, f)
		})
	}
	return g.Wait()
}

type ingester struct {
	repo *postgres.CatalogRepository

	// seen guards against re-upserting the same product id when exports
	// overlap. A false positive only skips a duplicate row, never data.
	mu   sync.Mutex
	seen *bloom.BloomFilter
}

func (ing *ingester) ingestFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	var count, skipped uint64
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var line productLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return errors.Wrapf(err, "parse product line in %s", path)
		}
		if line.ID == "" {
			continue
		}

		if ing.markSeen(line.ID) {
			skipped++
			continue
		}

		if err := ing.write(ctx, line); err != nil {
			return errors.Wrapf(err, "write product %s", line.ID)
		}

		count++
		if count%progressEvery == 0 {
			slog.Info("ingest progress",
				slog.String("file", filepath.Base(path)),
				slog.Uint64("products", count),
			)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	slog.Info("file complete",
		slog.String("file", filepath.Base(path)),
		slog.Uint64("products", count),
		slog.Uint64("skipped", skipped),
	)
	return nil
}

func (ing *ingester) markSeen(id string) bool {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	if ing.seen.TestString(id) {
		return true
	}
	ing.seen.AddString(id)
	return false
}

func (ing *ingester) write(ctx context.Context, line productLine) error {
	if line.CategoryID != "" {
		name := line.Category
		if name == "" {
			name = line.CategoryID
		}
		if err := ing.repo.UpsertCategory(ctx, &catalog.Category{ID: line.CategoryID, Name: name}); err != nil {
			return err
		}
	}

	return ing.repo.Upsert(ctx, &catalog.Product{
		ID:         line.ID,
		ShopID:     line.ShopID,
		CategoryID: line.CategoryID,
		Name:       line.Name,
		Image:      line.Image,
		Quantity:   line.Quantity,
		Price:      line.Price,
	})
}
