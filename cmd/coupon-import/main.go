// Command coupon-import loads campaign coupon code lists into the database.
// Marketing exports arrive as gzipped text files, one code per line, often
// with heavy overlap between exports. The importer streams all files
// concurrently, screens duplicates with a bloom filter so the full code set
// never has to fit in memory, and batch-upserts the survivors.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dukahub/storefront/internal/domain/coupon"
	"github.com/dukahub/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	minCodeLen    = 4
	maxCodeLen    = 32
	batchSize     = 1000
	progressEvery = 100_000
)

func main() {
	var (
		databaseURL string
		discount    float64
		validFor    time.Duration
		usageLimit  int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Float64Var(&discount, "discount", 10, "discount percentage for imported codes")
	flag.DurationVar(&validFor, "valid-for", 30*24*time.Hour, "validity window from import time")
	flag.IntVar(&usageLimit, "usage-limit", 1, "per-code redemption limit (0 = unlimited)")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("usage: coupon-import [flags] codes1.gz [codes2.gz ...]")
		os.Exit(1)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if discount <= 0 || discount > 100 {
		slog.Error("discount must be in (0, 100]")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files, decimal.NewFromFloat(discount).Round(2), validFor, usageLimit); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, discount decimal.Decimal, validFor time.Duration, usageLimit int) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("screening code lists", slog.Int("files", len(files)))

	codes, err := collectCodes(ctx, files)
	if err != nil {
		return errors.Wrap(err, "collect codes")
	}

	slog.Info("unique codes found", slog.Int("count", len(codes)))
	if len(codes) == 0 {
		return nil
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

	return writeCoupons(ctx, pool, codes, discount, time.Now().Add(validFor), usageLimit)
}

// collectCodes streams every file concurrently and funnels normalized codes
// through one bloom-filter dedup stage. The filter is probabilistic: a false
// positive silently drops a genuinely new code at the configured FPR, which
// is acceptable for marketing imports.
func collectCodes(ctx context.Context, files []string) ([]string, error) {
	lines := make(chan string, 4096)

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			return streamGzFile(ctx, path, lines)
		})
	}
	go func() {
		_ = g.Wait()
		close(lines)
	}()

	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var (
		unique []string
		seen   uint64
	)
	for line := range lines {
		code := coupon.NormalizeCode(line)
		if len(code) < minCodeLen || len(code) > maxCodeLen {
			continue
		}
		seen++
		if seen%progressEvery == 0 {
			slog.Info("screening progress", slog.Uint64("codes", seen), slog.Int("unique", len(unique)))
		}
		if filter.TestString(code) {
			continue
		}
		filter.AddString(code)
		unique = append(unique, code)
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return unique, nil
}

// streamGzFile decompresses one file and sends each line downstream.
func streamGzFile(ctx context.Context, path string, out chan<- string) error {
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

	var count uint64
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
			count++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	slog.Info("file streamed", slog.String("path", path), slog.Uint64("lines", count))
	return nil
}

const upsertCouponSQL = `INSERT INTO coupons (id, code, discount, expires_at, active, usage_limit, used_count, used_by, created_at)
	VALUES (gen_random_uuid(), $1, $2, $3, true, $4, 0, '{}', now())
	ON CONFLICT (code) DO NOTHING`

// writeCoupons upserts the codes in batches. Codes that already exist keep
// their current rule; re-running an import never resets redemption state.
func writeCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string, discount decimal.Decimal, expiresAt time.Time, usageLimit int) error {
	slog.Info("writing coupons", slog.Int("count", len(codes)), slog.String("discount", discount.String()+"%"))

	for start := 0; start < len(codes); start += batchSize {
		end := min(start+batchSize, len(codes))

		batch := &pgx.Batch{}
		for _, code := range codes[start:end] {
			batch.Queue(upsertCouponSQL, code, discount, expiresAt, usageLimit)
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrapf(err, "write batch at offset %d", start)
		}

		slog.Info("write progress", slog.Int("written", end), slog.Int("total", len(codes)))
	}

	return nil
}
