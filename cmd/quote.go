package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"stocks-simulator/cache"
)

type quoteCmd struct {
	record bool
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "look up current prices" }
func (*quoteCmd) Usage() string {
	return `stocks-simulator [-config file] quote [-record] SYMBOL...

  Prints the current price of each symbol from the configured provider.
`
}

func (q *quoteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&q.record, "record", false, "Also store each price in the price history table.")
}

func (q *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one symbol is required")
		return subcommands.ExitUsageError
	}

	a, err := loadApp(ctx, q.record)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	var store cache.Store
	if a.rdb != nil {
		store = cache.NewRedis(a.rdb)
	}
	quotes, err := a.quoter(store)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	status := subcommands.ExitSuccess
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, symbol := range f.Args() {
		res, err := quotes.Lookup(ctx, symbol)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", symbol, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", res.Symbol, res.Price.StringFixed(2), res.At.Format(time.RFC3339))
	}
	w.Flush()
	return status
}
