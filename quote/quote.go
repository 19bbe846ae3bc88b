// Package quote looks up current market prices for ticker symbols.
package quote

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when no price can be obtained for a symbol.
var ErrUnavailable = errors.New("quote unavailable")

type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	At     time.Time       `json:"timestamp"`
}

type Quoter interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}

// DailySource serves end-of-day closing prices, newest first.
type DailySource interface {
	Daily(ctx context.Context, symbol string) ([]Quote, error)
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
