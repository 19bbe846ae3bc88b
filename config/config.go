package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Port     string `mapstructure:"port"`
	TimeZone string `mapstructure:"timezone"`
	LogLevel string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type QuoteConfig struct {
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Static   string        `mapstructure:"static"`
}

type LedgerConfig struct {
	InitialCash string `mapstructure:"initial_cash"`
	Currency    string `mapstructure:"currency"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Quote    QuoteConfig    `mapstructure:"quote"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Log      LogConfig      `mapstructure:"log"`
}

// envBindings maps config keys to the environment variables the service has
// always been configured with.
var envBindings = map[string]string{
	"server.addr":         "SERVER_ADDR",
	"server.mode":         "GIN_MODE",
	"database.driver":     "DB_DRIVER",
	"database.dsn":        "DB_DSN",
	"database.host":       "DB_HOST",
	"database.user":       "DB_USER",
	"database.password":   "DB_PASSWORD",
	"database.name":       "DB_NAME",
	"database.port":       "DB_PORT",
	"database.timezone":   "DB_TIMEZONE",
	"database.log_level":  "DB_LOG_LEVEL",
	"redis.addr":          "REDIS_ADDR",
	"redis.password":      "REDIS_PASSWORD",
	"redis.db":            "REDIS_DB",
	"jwt.secret":          "JWT_SECRET",
	"jwt.access_ttl":      "ACCESS_TTL",
	"jwt.refresh_ttl":     "REFRESH_TTL",
	"quote.provider":      "QUOTE_PROVIDER",
	"quote.base_url":      "QUOTE_BASE_URL",
	"quote.api_key":       "ALPHA_VANTAGE_API_KEY",
	"quote.timeout":       "QUOTE_TIMEOUT",
	"quote.cache_ttl":     "QUOTE_CACHE_TTL",
	"quote.static":        "QUOTE_STATIC",
	"ledger.initial_cash": "INITIAL_CASH",
	"ledger.currency":     "CURRENCY",
	"log.level":           "LOG_LEVEL",
	"log.format":          "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.access_ttl", 24*time.Hour)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("quote.provider", "alphavantage")
	v.SetDefault("quote.timeout", 5*time.Second)
	v.SetDefault("quote.cache_ttl", 5*time.Minute)
	v.SetDefault("ledger.initial_cash", "10000.00")
	v.SetDefault("ledger.currency", "USD")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. A .env file in the working directory is
// loaded first when present; path optionally names a YAML file. Environment
// variables override both.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, using process environment", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports the first setting the service cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		return errors.New("config: DB_DSN is required for sqlite")
	}
	switch c.Quote.Provider {
	case "alphavantage", "static":
	default:
		return fmt.Errorf("config: unknown quote provider %q", c.Quote.Provider)
	}
	if c.Quote.Timeout <= 0 {
		return errors.New("config: QUOTE_TIMEOUT must be positive")
	}
	cash, err := c.InitialCash()
	if err != nil {
		return err
	}
	if cash.IsNegative() {
		return fmt.Errorf("config: INITIAL_CASH must not be negative, got %s", cash)
	}
	return nil
}

// InitialCash is the balance credited to a newly registered user.
func (c *Config) InitialCash() (decimal.Decimal, error) {
	cash, err := decimal.NewFromString(strings.TrimSpace(c.Ledger.InitialCash))
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: INITIAL_CASH: %w", err)
	}
	return cash.Round(2), nil
}
