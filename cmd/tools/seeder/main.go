package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/db"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/pricing"
	"github.com/noah-isme/backend-resto/internal/voucher"
)

type menuItem struct {
	Ref      string
	Name     string
	Price    int64
	Variants []menuVariant
}

type menuVariant struct {
	Ref   string
	Name  string
	Price int64
}

type promo struct {
	Ref        string
	ProductRef string
	Percent    string
}

var menu = []menuItem{
	{Ref: "pho-bo", Name: "Phở bò", Price: 55000, Variants: []menuVariant{
		{Ref: "regular", Name: "Regular", Price: 55000},
		{Ref: "large", Name: "Large", Price: 70000},
	}},
	{Ref: "bun-cha", Name: "Bún chả", Price: 60000},
	{Ref: "banh-mi", Name: "Bánh mì thịt", Price: 30000},
	{Ref: "com-tam", Name: "Cơm tấm sườn", Price: 65000},
	{Ref: "goi-cuon", Name: "Gỏi cuốn (2 pcs)", Price: 35000},
	{Ref: "tra-da", Name: "Trà đá", Price: 5000},
	{Ref: "ca-phe-sua-da", Name: "Cà phê sữa đá", Price: 29000},
	{Ref: "che-ba-mau", Name: "Chè ba màu", Price: 25000},
}

var promos = []promo{
	{Ref: "PHO-WEEK", ProductRef: "pho-bo", Percent: "10"},
	{Ref: "COFFEE-HOUR", ProductRef: "ca-phe-sua-da", Percent: "20"},
}

func vouchers(now time.Time) []voucher.Definition {
	allMains := []string{"pho-bo", "bun-cha", "banh-mi", "com-tam"}
	return []voucher.Definition{
		{
			Code: "WELCOME20", Kind: pricing.PercentOrder{}.Name(), Value: decimal.NewFromInt(20),
			MinOrderValue: 100000, EligibleProductRefs: allMains, IsActive: true,
			StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 6, 0),
			MaxUsage: 500, NumberOfUsagePerUser: 1,
		},
		{
			Code: "LUNCH15K", Kind: pricing.FixedValue{}.Name(), Value: decimal.NewFromInt(15000),
			EligibleProductRefs: allMains, IsActive: true, MaxUsage: 1000, NumberOfUsagePerUser: 3,
			AllowedPaymentMethods: []string{"cash", "momo"},
		},
		{
			Code: "DRINK5K", Kind: pricing.SamePriceProduct{}.Name(), Value: decimal.NewFromInt(5000),
			Applicability:       pricing.AtLeastOneRequired,
			EligibleProductRefs: []string{"ca-phe-sua-da", "tra-da"}, IsActive: true, MaxUsage: 200,
		},
		{
			Code: "STAFFMEAL", Kind: pricing.PercentOrder{}.Name(), Value: decimal.NewFromInt(50),
			EligibleProductRefs: allMains, IsActive: true, MaxUsage: 10000,
			IsPrivate: true, IsUserGroupRestricted: true, UserGroups: []string{"staff"},
		},
		{
			Code: "COMBO", Kind: pricing.FixedValue{}.Name(), Value: decimal.NewFromInt(20000),
			Applicability:       pricing.AllRequired,
			EligibleProductRefs: []string{"bun-cha", "goi-cuon"}, IsActive: true, MaxUsage: 300,
			IsVerificationIdentity: true,
		},
	}
}

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger("resto-seeder", "console", "info")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	if err := seedMenu(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed menu")
	}
	if err := seedVouchers(ctx, &voucher.Service{Q: voucher.Store{DB: pool}}, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed vouchers")
	}
	invalidatePrices(ctx, os.Getenv("REDIS_URL"), logger)

	logger.Info().Msg("seeding completed")
}

func seedMenu(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	for _, item := range menu {
		if _, err := pool.Exec(ctx, `
			INSERT INTO products (ref, name, price) VALUES ($1, $2, $3)
			ON CONFLICT (ref) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, updated_at = now()`,
			item.Ref, item.Name, item.Price); err != nil {
			return err
		}
		for _, v := range item.Variants {
			if _, err := pool.Exec(ctx, `
				INSERT INTO product_variants (product_ref, ref, name, price) VALUES ($1, $2, $3, $4)
				ON CONFLICT (product_ref, ref) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`,
				item.Ref, v.Ref, v.Name, v.Price); err != nil {
				return err
			}
		}
	}
	logger.Info().Int("products", len(menu)).Msg("menu seeded")

	for _, p := range promos {
		percent, err := decimal.NewFromString(p.Percent)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO promotions (ref, product_ref, value_percent) VALUES ($1, $2, $3)
			ON CONFLICT (ref) DO UPDATE SET product_ref = EXCLUDED.product_ref, value_percent = EXCLUDED.value_percent`,
			p.Ref, p.ProductRef, db.Numeric(percent)); err != nil {
			return err
		}
	}
	logger.Info().Int("promotions", len(promos)).Msg("promotions seeded")
	return nil
}

func seedVouchers(ctx context.Context, svc *voucher.Service, logger zerolog.Logger) error {
	for _, def := range vouchers(time.Now().UTC()) {
		_, err := svc.Create(ctx, def)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			_, err = svc.Update(ctx, def)
		}
		if err != nil {
			return err
		}
		logger.Info().Str("code", def.Code).Str("kind", def.Kind).Msg("voucher seeded")
	}
	return nil
}

func invalidatePrices(ctx context.Context, redisURL string, logger zerolog.Logger) {
	if redisURL == "" {
		return
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("parse redis url, price cache left as is")
		return
	}
	client := redis.NewClient(opts)
	defer client.Close()
	cache := catalog.NewCache(client, 0)
	for _, item := range menu {
		if err := cache.Invalidate(ctx, item.Ref); err != nil {
			logger.Warn().Err(err).Str("product", item.Ref).Msg("invalidate cached price")
		}
	}
}
