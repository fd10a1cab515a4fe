package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// Store selects the repository backend: "mongo" or "memory".
	Store string `env:"STORE, default=mongo"`

	// AdminJWTSecret verifies operator tokens on the admin routes. When empty
	// the admin routes are not registered.
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`

	// CORSOrigins lists the origins allowed to call the API from a browser.
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*"`

	// TrustedProxies lists proxy CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	Mongo     MongoConfig
	Redis     RedisConfig
	SMTP      SMTPConfig
	Affiliate AffiliateConfig
	Ledger    LedgerConfig
	RateLimit RateLimitConfig
	Workers   int `env:"SALE_WORKERS, default=8"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=linkloot"`
}

// RedisConfig is optional. An empty Addr disables credit deduplication.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type SMTPConfig struct {
	Host       string        `env:"SMTP_HOST, default=smtp.gmail.com"`
	Port       int           `env:"SMTP_PORT, default=465"`
	Username   string        `env:"SMTP_USERNAME"`
	Password   string        `env:"SMTP_PASSWORD"`
	AdminEmail string        `env:"ADMIN_EMAIL"`
	Timeout    time.Duration `env:"SMTP_TIMEOUT, default=10s"`
}

type AffiliateConfig struct {
	APIURL  string        `env:"CUELINKS_API_URL, default=https://www.cuelinks.com/api/v2/links.json"`
	APIKey  string        `env:"CUELINKS_API_KEY"`
	Timeout time.Duration `env:"CUELINKS_TIMEOUT, default=5s"`
}

type LedgerConfig struct {
	MinRedeemPoints int64 `env:"REDEEM_MIN_POINTS,      default=500"`
	DegradeTxList   bool  `env:"LEDGER_DEGRADE_TX_LIST, default=true"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"AUTH_RATE_LIMIT_RPS,   default=1"`
	Burst int     `env:"AUTH_RATE_LIMIT_BURST, default=5"`
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Ledger.MinRedeemPoints <= 0 {
		return nil, fmt.Errorf("config: REDEEM_MIN_POINTS must be positive, got %d", cfg.Ledger.MinRedeemPoints)
	}
	return &cfg, nil
}
