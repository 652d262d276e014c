package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the binaries read from the environment. A .env
// file in the working directory is honored when present.
type Config struct {
	// upstream store
	ShopDomain    string // <shop>.myshopify.com
	ShopToken     string
	WebhookSecret string
	StoreURL      string // public storefront base for product links
	GameTag       string
	ProductType   string

	// serving
	HTTPAddr string
	TCPAddr  string

	// blob store
	RedisAddr string // when set, redis replaces sqlite as blob backend

	// reference index
	IndexTTL time.Duration

	// backfill
	BackfillBudget    int
	BackfillMinDelay  time.Duration
	BackfillBatchSize int

	Auth AuthConfig
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

// Load reads the environment (and .env, best effort) into a Config
// with working defaults for everything but credentials.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ShopDomain:    os.Getenv("CARDSTOCK_SHOP_DOMAIN"),
		ShopToken:     os.Getenv("CARDSTOCK_SHOP_TOKEN"),
		WebhookSecret: os.Getenv("CARDSTOCK_WEBHOOK_SECRET"),
		StoreURL:      os.Getenv("CARDSTOCK_STORE_URL"),
		GameTag:       envStr("CARDSTOCK_GAME_TAG", "mtg"),
		ProductType:   envStr("CARDSTOCK_PRODUCT_TYPE", "MTG Single"),

		HTTPAddr: envStr("CARDSTOCK_HTTP_ADDR", ":8080"),
		TCPAddr:  envStr("CARDSTOCK_TCP_ADDR", ":7070"),

		RedisAddr: os.Getenv("CARDSTOCK_REDIS_ADDR"),

		IndexTTL: envDuration("CARDSTOCK_INDEX_TTL", 24*time.Hour),

		BackfillBudget:    envInt("CARDSTOCK_BACKFILL_BUDGET", 100),
		BackfillMinDelay:  envDuration("CARDSTOCK_BACKFILL_MIN_DELAY", 150*time.Millisecond),
		BackfillBatchSize: envInt("CARDSTOCK_BACKFILL_BATCH_SIZE", 10),

		Auth: LoadAuthConfig(),
	}
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("CARDSTOCK_JWT_SECRET")
	if secret == "" {
		// dev default (change for production)
		secret = "dev-secret-change-me"
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   envStr("CARDSTOCK_JWT_ISSUER", "cardstock"),
		JWTDuration: envDuration("CARDSTOCK_JWT_TTL", 24*time.Hour),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
