package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Static serves prices from an in-memory table.
type Static struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

func NewStatic(prices map[string]decimal.Decimal) *Static {
	s := &Static{prices: make(map[string]decimal.Decimal, len(prices))}
	for sym, p := range prices {
		s.prices[normalize(sym)] = p.Round(2)
	}
	return s
}

// ParseStatic reads a table written as "AAPL=150.25,MSFT=410".
func ParseStatic(table string) (*Static, error) {
	prices := make(map[string]decimal.Decimal)
	for _, entry := range strings.Split(table, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		sym, raw, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(sym) == "" {
			return nil, fmt.Errorf("static quotes: malformed entry %q", entry)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("static quotes: %s: %w", sym, err)
		}
		prices[sym] = price
	}
	return NewStatic(prices), nil
}

func (s *Static) Set(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[normalize(symbol)] = price.Round(2)
}

func (s *Static) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prices, normalize(symbol))
}

func (s *Static) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	symbol = normalize(symbol)

	s.mu.RLock()
	price, ok := s.prices[symbol]
	s.mu.RUnlock()
	if !ok || !price.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, symbol)
	}
	return &Quote{Symbol: symbol, Price: price, At: time.Now()}, nil
}
