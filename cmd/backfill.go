package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"stocks-simulator/models"
	"stocks-simulator/quote"
)

type backfillCmd struct{}

func (*backfillCmd) Name() string     { return "backfill" }
func (*backfillCmd) Synopsis() string { return "store daily closing prices in the price history" }
func (*backfillCmd) Usage() string {
	return `stocks-simulator [-config file] backfill SYMBOL...

  Fetches the daily close series of each symbol and records the days not
  yet in the price history. Requires a provider with daily data.
`
}

func (*backfillCmd) SetFlags(*flag.FlagSet) {}

func (*backfillCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one symbol is required")
		return subcommands.ExitUsageError
	}

	a, err := loadApp(ctx, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if err := a.backfill(ctx, f.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (a *app) backfill(ctx context.Context, symbols []string) error {
	provider, err := a.provider()
	if err != nil {
		return err
	}
	source, ok := provider.(quote.DailySource)
	if !ok {
		return fmt.Errorf("quote provider %q has no daily series", a.cfg.Quote.Provider)
	}

	var failed int
	for _, symbol := range symbols {
		series, err := source.Daily(ctx, symbol)
		if err != nil {
			a.logger.Error("Fetching daily series failed", "symbol", symbol, "error", err)
			failed++
			continue
		}

		rows := make([]models.StockPrice, 0, len(series))
		for _, q := range series {
			rows = append(rows, models.StockPrice{Symbol: q.Symbol, Price: q.Price, Timestamp: q.At})
		}
		added, err := a.store.RecordPrices(ctx, series[0].Symbol, rows)
		if err != nil {
			a.logger.Error("Recording daily series failed", "symbol", symbol, "error", err)
			failed++
			continue
		}
		a.logger.Info("Backfilled prices", "symbol", series[0].Symbol, "days", len(series), "added", added)
	}
	if failed > 0 {
		return fmt.Errorf("backfill failed for %d of %d symbols", failed, len(symbols))
	}
	return nil
}
