package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/subcommands"
	"gorm.io/gorm"

	"stocks-simulator/cache"
	"stocks-simulator/config"
	"stocks-simulator/database"
	"stocks-simulator/quote"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&serveCmd{}, "server")
	c.Register(&migrateCmd{}, "server")
	c.Register(&quoteCmd{}, "market")
	c.Register(&backfillCmd{}, "market")
}

var configPath = flag.String("config", "", "Path to an optional YAML config file; environment variables override it")

// app holds the infrastructure shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
	store  *database.Store
	rdb    *redis.Client
}

func loadApp(ctx context.Context, withDB bool) (*app, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: config.NewLogger(cfg.Log)}
	slog.SetDefault(a.logger)

	if withDB {
		a.db, err = config.InitDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(a.db); err != nil {
			a.close()
			return nil, err
		}
		a.store = database.New(a.db)
	}

	if cfg.Redis.Addr != "" {
		a.rdb, err = config.InitRedis(ctx, cfg.Redis)
		if err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

// cache returns Redis when configured and an in-process store otherwise.
func (a *app) cache() cache.Store {
	if a.rdb != nil {
		return cache.NewRedis(a.rdb)
	}
	a.logger.Warn("REDIS_ADDR is empty, using in-process cache")
	return cache.NewMemory()
}

// provider is the configured market data source.
func (a *app) provider() (quote.Quoter, error) {
	switch a.cfg.Quote.Provider {
	case "alphavantage":
		if a.cfg.Quote.APIKey == "" {
			a.logger.Warn("ALPHA_VANTAGE_API_KEY is empty, quotes will likely fail")
		}
		return quote.NewAlphaVantage(a.cfg.Quote.BaseURL, a.cfg.Quote.APIKey, a.cfg.Quote.Timeout), nil
	case "static":
		s, err := quote.ParseStatic(a.cfg.Quote.Static)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown quote provider %q", a.cfg.Quote.Provider)
	}
}

// quoter builds provider -> archive -> cache.
func (a *app) quoter(store cache.Store) (quote.Quoter, error) {
	provider, err := a.provider()
	if err != nil {
		return nil, err
	}
	if a.store != nil {
		provider = quote.NewRecorder(provider, a.store, a.logger)
	}
	return quote.NewCached(provider, store, a.cfg.Quote.CacheTTL, a.logger), nil
}

func (a *app) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("Closing redis failed", "error", err)
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

const shutdownTimeout = 10 * time.Second
