// Command seed-db provisions a development database: demo accounts and a
// handful of coupons. When a JWT secret is provided it also prints bearer
// tokens for the seeded accounts so the API can be exercised immediately.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dukahub/storefront/internal/domain/auth"
	"github.com/dukahub/storefront/internal/storage/postgres"
)

type seedUser struct {
	ID    string
	Name  string
	Email string
	Phone string
	Admin bool
}

type seedCoupon struct {
	ID         string
	Code       string
	Discount   decimal.Decimal
	ValidFor   time.Duration
	UsageLimit int
}

var seedUsers = []seedUser{
	{
		ID:    "4f6fbe3a-5f4f-49d1-a6e3-9b91a1d5c001",
		Name:  "Amina Odhiambo",
		Email: "admin@dukahub.test",
		Phone: "+254700000001",
		Admin: true,
	},
	{
		ID:    "4f6fbe3a-5f4f-49d1-a6e3-9b91a1d5c002",
		Name:  "Brian Mwangi",
		Email: "customer@dukahub.test",
		Phone: "+254700000002",
	},
}

var seedCoupons = []seedCoupon{
	{
		ID:       "7f25f3d8-9f8e-4a53-8c2e-2f4f1f9ab001",
		Code:     "WELCOME10",
		Discount: decimal.NewFromInt(10),
		ValidFor: 90 * 24 * time.Hour,
	},
	{
		ID:         "7f25f3d8-9f8e-4a53-8c2e-2f4f1f9ab002",
		Code:       "FLASH25",
		Discount:   decimal.NewFromInt(25),
		ValidFor:   48 * time.Hour,
		UsageLimit: 50,
	},
}

func main() {
	var (
		databaseURL string
		jwtSecret   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&jwtSecret, "jwt-secret", "", "JWT secret for printing demo tokens (or DUKA_JWT_SECRET env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if jwtSecret == "" {
		jwtSecret = os.Getenv("DUKA_JWT_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, jwtSecret); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, jwtSecret string) error {
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

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return upsertUsers(gctx, pool) })
	g.Go(func() error { return upsertCoupons(gctx, pool) })
	if err := g.Wait(); err != nil {
		return err
	}

	if jwtSecret != "" {
		printTokens(jwtSecret)
	}
	return nil
}

const upsertUserSQL = `INSERT INTO users (id, name, email, phone, is_admin, created_at)
	VALUES ($1, $2, $3, $4, $5, now())
	ON CONFLICT (email) DO UPDATE SET name = $2, phone = $4, is_admin = $5`

func upsertUsers(ctx context.Context, pool *pgxpool.Pool) error {
	for _, u := range seedUsers {
		if _, err := pool.Exec(ctx, upsertUserSQL, u.ID, u.Name, u.Email, u.Phone, u.Admin); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.Email)
		}
		slog.Info("upserted user", slog.String("email", u.Email), slog.Bool("admin", u.Admin))
	}
	return nil
}

const upsertCouponSQL = `INSERT INTO coupons (id, code, discount, expires_at, active, usage_limit, used_count, used_by, created_at)
	VALUES ($1, $2, $3, $4, true, $5, 0, '{}', now())
	ON CONFLICT (code) DO UPDATE SET discount = $3, expires_at = $4, active = true, usage_limit = $5`

func upsertCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	now := time.Now()
	for _, c := range seedCoupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.ID, c.Code, c.Discount, now.Add(c.ValidFor), c.UsageLimit,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("discount", c.Discount.String()+"%"))
	}
	return nil
}

func printTokens(secret string) {
	verifier := auth.NewVerifier([]byte(secret))
	for _, u := range seedUsers {
		token, err := verifier.Issue(auth.Identity{UserID: u.ID, Admin: u.Admin}, 30*24*time.Hour)
		if err != nil {
			slog.Warn("issue demo token", slog.String("email", u.Email), slog.String("error", err.Error()))
			continue
		}
		slog.Info("demo token", slog.String("email", u.Email), slog.String("token", token))
	}
}
