package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Development-only defaults. RequireSecrets refuses them.
const (
	DefaultJWTSecret    = "change-me"
	DefaultSeedPassword = "1234"
)

type Config struct {
	Port string `envconfig:"PORT" default:"1414"`

	MongoURI          string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB           string `envconfig:"MONGO_DB" default:"bvstock"`
	MongoTransactions bool   `envconfig:"MONGO_TRANSACTIONS" default:"true"`

	RedisAddress  string `envconfig:"REDIS_ADDRESS"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	JWTSecret   string   `envconfig:"JWT_SECRET" default:"change-me"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`

	SaleBVSource string `envconfig:"SALE_BV_SOURCE" default:"client"`
	PhoneRegion  string `envconfig:"PHONE_REGION" default:"KE"`

	LowStockThreshold int    `envconfig:"LOW_STOCK_THRESHOLD" default:"5"`
	LowStockAt        string `envconfig:"LOW_STOCK_AT" default:"07:00"`
	Timezone          string `envconfig:"TIMEZONE" default:"Africa/Nairobi"`
	AlertEmail        string `envconfig:"ALERT_EMAIL"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"465"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`

	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"bvstock"`
	MinioSecure    bool   `envconfig:"MINIO_SECURE" default:"true"`
	CDNBase        string `envconfig:"CDN_BASE"`

	SeedAdminPassword string `envconfig:"SEED_ADMIN_PASSWORD" default:"1234"`
	SeedStaffPassword string `envconfig:"SEED_STAFF_PASSWORD" default:"1234"`

	LogLevel     string   `envconfig:"LOG_LEVEL" default:"info"`
	MetricsAllow []string `envconfig:"METRICS_ALLOW" default:"127.0.0.1"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.SaleBVSource {
	case "client", "stock":
	default:
		return fmt.Errorf("SALE_BV_SOURCE must be client or stock, got %q", c.SaleBVSource)
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative")
	}
	if _, err := time.Parse("15:04", c.LowStockAt); err != nil {
		return fmt.Errorf("LOW_STOCK_AT must be HH:MM, got %q", c.LowStockAt)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	return nil
}

// InsecureDefaults names the secret settings still at their development value.
func (c *Config) InsecureDefaults() []string {
	var keys []string
	if c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret {
		keys = append(keys, "JWT_SECRET")
	}
	if c.SeedAdminPassword == DefaultSeedPassword {
		keys = append(keys, "SEED_ADMIN_PASSWORD")
	}
	if c.SeedStaffPassword == DefaultSeedPassword {
		keys = append(keys, "SEED_STAFF_PASSWORD")
	}
	return keys
}

// RequireSecrets fails when any secret is left at its development default.
func (c *Config) RequireSecrets() error {
	if keys := c.InsecureDefaults(); len(keys) > 0 {
		return fmt.Errorf("%s must be set to a non-default value", strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.AlertEmail != ""
}

func (c *Config) StorageEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != ""
}

func (c *Config) MetricsAllowed(ip string) bool {
	for _, allowed := range c.MetricsAllow {
		if strings.TrimSpace(allowed) == ip {
			return true
		}
	}
	return false
}
