// Command seed-db loads the demo catalog into PostgreSQL: membership plans,
// launch coupons, a demo user, and that user's access token. Everything is
// upserted, so reruns are safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rentora/checkout/internal/domain/auth"
	"github.com/rentora/checkout/internal/storage/postgres"
)

const (
	upsertPlanSQL = `INSERT INTO plans (id, name, original_price, discounted_price, duration_days, features, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			original_price = EXCLUDED.original_price,
			discounted_price = EXCLUDED.discounted_price,
			duration_days = EXCLUDED.duration_days,
			features = EXCLUDED.features,
			is_active = TRUE`

	upsertCouponSQL = `INSERT INTO coupons (code, plan_id, discount_type, discount_value, expires_at, usage_limit, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			expires_at = EXCLUDED.expires_at,
			usage_limit = EXCLUDED.usage_limit,
			is_active = TRUE`

	upsertUserSQL = `INSERT INTO users (id, email, name, mobile)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			mobile = EXCLUDED.mobile`

	upsertTokenSQL = `INSERT INTO access_tokens (token_hash, user_id)
		VALUES ($1, $2)
		ON CONFLICT (token_hash) DO NOTHING`
)

type planSeed struct {
	id              string
	name            string
	originalPrice   decimal.Decimal
	discountedPrice decimal.Decimal
	durationDays    int
	features        []string
}

type couponSeed struct {
	code         string
	planID       string
	discountType string
	value        decimal.Decimal
	expiresAt    time.Time
	usageLimit   int
}

func main() {
	var (
		databaseURL string
		userToken   string
		tokenPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&userToken, "user-token", "", "access token to seed for the demo user (or CHECKOUT_SEED_TOKEN env)")
	flag.StringVar(&tokenPepper, "token-pepper", "", "HMAC pepper for token hashing (or CHECKOUT_TOKEN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if userToken == "" {
		userToken = os.Getenv("CHECKOUT_SEED_TOKEN")
	}
	if userToken == "" {
		slog.Error("user token is required: set --user-token or CHECKOUT_SEED_TOKEN")
		os.Exit(1)
	}
	if tokenPepper == "" {
		tokenPepper = os.Getenv("CHECKOUT_TOKEN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, userToken, tokenPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, userToken, pepper string) error {
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

	if err := seedPlans(ctx, pool); err != nil {
		return errors.Wrap(err, "seed plans")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedDemoUser(ctx, pool, userToken, pepper); err != nil {
		return errors.Wrap(err, "seed demo user")
	}

	return nil
}

func seedPlans(ctx context.Context, pool *pgxpool.Pool) error {
	plans := []planSeed{
		{
			id:              "basic",
			name:            "Basic",
			originalPrice:   decimal.NewFromInt(399),
			discountedPrice: decimal.NewFromInt(299),
			durationDays:    30,
			features:        []string{"standard-fleet", "city-rides"},
		},
		{
			id:              "premium",
			name:            "Premium",
			originalPrice:   decimal.NewFromInt(799),
			discountedPrice: decimal.NewFromInt(599),
			durationDays:    30,
			features:        []string{"standard-fleet", "city-rides", "premium-fleet", "priority-support"},
		},
	}

	slog.Info("upserting plans", slog.Int("count", len(plans)))

	for _, p := range plans {
		features, err := json.Marshal(p.features)
		if err != nil {
			return errors.Wrapf(err, "encode features for plan %s", p.id)
		}
		if _, err := pool.Exec(ctx, upsertPlanSQL,
			p.id, p.name, p.originalPrice, p.discountedPrice, p.durationDays, features,
		); err != nil {
			return errors.Wrapf(err, "upsert plan %s", p.id)
		}
		slog.Info("upserted plan", slog.String("id", p.id), slog.String("price", p.discountedPrice.String()))
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	yearOut := time.Now().AddDate(1, 0, 0)

	coupons := []couponSeed{
		{
			code:         "SAVE50",
			planID:       "basic",
			discountType: "fixed",
			value:        decimal.NewFromInt(50),
			expiresAt:    yearOut,
			usageLimit:   1000,
		},
		{
			code:         "WELCOME10",
			planID:       "premium",
			discountType: "percentage",
			value:        decimal.NewFromInt(10),
			expiresAt:    yearOut,
			usageLimit:   0, // unlimited
		},
	}

	slog.Info("upserting coupons", slog.Int("count", len(coupons)))

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.code, c.planID, c.discountType, c.value, c.expiresAt, c.usageLimit,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("plan", c.planID))
	}

	return nil
}

func seedDemoUser(ctx context.Context, pool *pgxpool.Pool, token, pepper string) error {
	slog.Info("seeding demo user")

	if _, err := pool.Exec(ctx, upsertUserSQL,
		"demo-user", "demo@rentora.example", "Demo Rider", "9999999999",
	); err != nil {
		return errors.Wrap(err, "upsert demo user")
	}

	hash := auth.HashToken(token, []byte(pepper))
	if _, err := pool.Exec(ctx, upsertTokenSQL, hash, "demo-user"); err != nil {
		return errors.Wrap(err, "upsert access token")
	}

	slog.Info("seeded demo user", slog.String("id", "demo-user"))
	return nil
}
