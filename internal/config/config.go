package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Quota enforcement modes for the entitlement engine. In fail-open mode a
// storage failure during a limits check yields permissive free-plan
// defaults; in strict mode the error is propagated to the caller.
const (
	QuotaModeFailOpen = "fail-open"
	QuotaModeStrict   = "strict"
)

// Config holds all the configuration for the application.
type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"production"`
	BaseURL     string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	HTTPServer  `yaml:"http_server"`
	Database    `yaml:"database"`
	Auth        `yaml:"auth"`
	Stripe      `yaml:"stripe"`
	Entitlement `yaml:"entitlement"`
	Cleanup     `yaml:"cleanup"`
}

// HTTPServer holds HTTP server specific configuration.
type HTTPServer struct {
	Port         int           `yaml:"port" env:"HTTP_SERVER_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Database holds PostgreSQL connection configuration.
type Database struct {
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"linkvault"`
	Password        string `yaml:"password" env:"DB_PASSWORD" env-default:""`
	DBName          string `yaml:"db_name" env:"DB_NAME" env-default:"linkvault"`
	SSLMode         string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"100"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// Auth holds identity-token verification configuration. Token issuance is
// handled by the external identity provider; this service only verifies.
type Auth struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Issuer    string `yaml:"issuer" env:"JWT_ISSUER" env-default:""`
}

// Stripe holds billing provider configuration.
type Stripe struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY" env-default:""`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET" env-default:""`
	PriceMonthly  string `yaml:"price_monthly" env:"STRIPE_PRICE_MONTHLY" env-default:""`
	PriceAnnual   string `yaml:"price_annual" env:"STRIPE_PRICE_ANNUAL" env-default:""`
}

// Entitlement holds quota enforcement configuration.
type Entitlement struct {
	QuotaMode string `yaml:"quota_mode" env:"ENTITLEMENT_QUOTA_MODE" env-default:"fail-open"`
}

// Cleanup holds retention sweeper configuration.
type Cleanup struct {
	Interval   time.Duration `yaml:"interval" env:"CLEANUP_INTERVAL" env-default:"1h"`
	CronSecret string        `yaml:"cron_secret" env:"CLEANUP_CRON_SECRET" env-default:""`
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	var cfg Config

	// Check if config file path is specified
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml" // default path
	}

	// Try to load config file
	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("cannot read config: %s", err)
		}
	} else {
		// If config file doesn't exist, use environment variables only
		log.Println("Config file not found, using environment variables only")
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read config from environment: %s", err)
		}
	}

	if cfg.Entitlement.QuotaMode != QuotaModeFailOpen && cfg.Entitlement.QuotaMode != QuotaModeStrict {
		log.Fatalf("invalid entitlement quota_mode: %q", cfg.Entitlement.QuotaMode)
	}

	return &cfg
}
