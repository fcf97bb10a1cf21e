// Command seed-db loads the product catalog, a starter coupon set, the
// shipping methods, and one API key into the database for local
// development.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rohn21/e-commerce-webapp/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

type seedCoupon struct {
	code         string
	discountType string
	value        string
	maxDiscount  string
	ttl          time.Duration
}

var seedCoupons = []seedCoupon{
	{code: "WELCOME10", discountType: "percentage", value: "0.10", ttl: 90 * 24 * time.Hour},
	{code: "FESTIVE25", discountType: "percentage", value: "0.25", maxDiscount: "500", ttl: 30 * 24 * time.Hour},
	{code: "FLAT50", discountType: "fixed", value: "50", ttl: 60 * 24 * time.Hour},
	{code: "EXPIRED5", discountType: "percentage", value: "0.05", ttl: -24 * time.Hour},
}

var seedShippingMethods = [][3]string{
	{"standard", "Standard (3-5 days)", "49"},
	{"express", "Express (1-2 days)", "129"},
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SHOP_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCouponSet(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedShipping(ctx, pool); err != nil {
		return errors.Wrap(err, "seed shipping methods")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "read %s", file)
	}
	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products")
	}

	const insertSQL = `INSERT INTO products
		(id, name, category, price, image_thumbnail, image_mobile, image_tablet, image_desktop)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category, price = EXCLUDED.price,
			image_thumbnail = EXCLUDED.image_thumbnail, image_mobile = EXCLUDED.image_mobile,
			image_tablet = EXCLUDED.image_tablet, image_desktop = EXCLUDED.image_desktop`

	for _, p := range products {
		id := p.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := pool.Exec(ctx, insertSQL,
			id, p.Name, p.Category, p.Price,
			p.Image.Thumbnail, p.Image.Mobile, p.Image.Tablet, p.Image.Desktop)
		if err != nil {
			return errors.Wrapf(err, "insert product %s", p.Name)
		}
	}
	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}

func seedCouponSet(ctx context.Context, pool *pgxpool.Pool) error {
	const insertSQL = `INSERT INTO coupons
		(code, discount_type, discount_value, max_discount, expires_at, active)
		VALUES ($1, $2, $3, NULLIF($4, '')::numeric, $5, $6)
		ON CONFLICT (code) DO NOTHING`

	now := time.Now()
	for _, c := range seedCoupons {
		expires := now.Add(c.ttl)
		_, err := pool.Exec(ctx, insertSQL,
			c.code, c.discountType, c.value, c.maxDiscount, expires, expires.After(now))
		if err != nil {
			return errors.Wrapf(err, "insert coupon %s", c.code)
		}
	}
	slog.Info("coupons seeded", slog.Int("count", len(seedCoupons)))
	return nil
}

func seedShipping(ctx context.Context, pool *pgxpool.Pool) error {
	const insertSQL = `INSERT INTO shipping_methods (id, name, price)
		VALUES ($1, $2, $3::numeric) ON CONFLICT (id) DO NOTHING`

	for _, m := range seedShippingMethods {
		if _, err := pool.Exec(ctx, insertSQL, m[0], m[1], m[2]); err != nil {
			return errors.Wrapf(err, "insert shipping method %s", m[0])
		}
	}
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, key, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	hash := hex.EncodeToString(mac.Sum(nil))

	const insertSQL = `INSERT INTO api_keys (id, key_hash, name, owner_id, scopes, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (key_hash) DO NOTHING`

	_, err := pool.Exec(ctx, insertSQL,
		uuid.New().String(), hash, "dev", uuid.New().String(),
		[]string{"fulfillment"})
	if err != nil {
		return errors.Wrap(err, "insert api key")
	}
	slog.Info("api key seeded")
	return nil
}
