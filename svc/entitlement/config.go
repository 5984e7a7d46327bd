package entitlement

import (
	"errors"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/insightball/entitlements/pkg/billingapi"
	"github.com/insightball/entitlements/pkg/checkout"
)

// DefaultRefreshInterval paces the banner refresh when Config leaves
// RefreshInterval unset, e.g. when constructed directly instead of through
// LoadConfig.
const DefaultRefreshInterval = 45 * time.Second

// Config aggregates everything the engine needs. Nested structs are parsed
// from the environment alongside the engine's own settings.
type Config struct {
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogFormat   string     `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	BillingAPI billingapi.Config
	Stripe     checkout.StripeConfig

	// RedisURL enables the shared snapshot store so invalidation reaches
	// every replica. Empty means in-process memory store.
	RedisURL string `env:"REDIS_URL"`

	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"30s"`

	// RefreshInterval paces the background snapshot refresh that keeps the
	// trial countdown banner current.
	RefreshInterval time.Duration `env:"BANNER_REFRESH_INTERVAL" envDefault:"45s"`

	// PlansFile points at a YAML plan catalog; empty uses the built-in plans.
	PlansFile string `env:"PLANS_FILE"`
}

// LoadConfig reads env files (default ".env", ignored when absent) and
// parses the environment into a Config.
func LoadConfig(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(errors.New("entitlement: parse config"), err)
	}
	return cfg, nil
}
