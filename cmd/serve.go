package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/subcommands"

	"stocks-simulator/handlers"
	"stocks-simulator/ledger"
	"stocks-simulator/router"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the trading HTTP API" }
func (*serveCmd) Usage() string {
	return `stocks-simulator [-config file] serve [-addr host:port]

  Migrates the database and serves the API until SIGINT or SIGTERM.
`
}

func (s *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.addr, "addr", "", "Listen address; overrides SERVER_ADDR.")
}

func (s *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if err := s.run(ctx, a); err != nil {
		a.logger.Error("Server stopped", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (s *serveCmd) run(ctx context.Context, a *app) error {
	cash, err := a.cfg.InitialCash()
	if err != nil {
		return err
	}
	gin.SetMode(a.cfg.Server.Mode)

	store := a.cache()
	quotes, err := a.quoter(store)
	if err != nil {
		return err
	}

	engine, err := router.SetupRouter(router.Deps{
		Ledger: ledger.New(a.store, quotes),
		Users:  a.store,
		Prices: a.store,
		Quotes: quotes,
		Tokens: store,
		Auth: handlers.AuthConfig{
			Secret:      a.cfg.JWT.Secret,
			AccessTTL:   a.cfg.JWT.AccessTTL,
			RefreshTTL:  a.cfg.JWT.RefreshTTL,
			InitialCash: cash,
			Currency:    a.cfg.Ledger.Currency,
		},
		Currency: a.cfg.Ledger.Currency,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}

	addr := a.cfg.Server.Addr
	if s.addr != "" {
		addr = s.addr
	}
	srv := &http.Server{Addr: addr, Handler: engine}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("Listening", "addr", addr, "quote_provider", a.cfg.Quote.Provider, "db", a.cfg.Database.Driver)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
