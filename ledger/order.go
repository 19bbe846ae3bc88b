package ledger

import (
	"regexp"
	"strconv"
	"strings"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-^=]{0,14}$`)

// Order is a validated request to trade Shares of Symbol.
type Order struct {
	Symbol string
	Shares int64
}

// NormalizeSymbol returns the canonical (trimmed, upper-case) form of a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidSymbol reports whether symbol is a well-formed ticker once normalized.
func ValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(NormalizeSymbol(symbol))
}

// ParseOrder validates raw form input. shares must be a plain base-10
// positive integer: signs, decimals and exponents are rejected.
func ParseOrder(symbol, shares string) (Order, error) {
	o := Order{Symbol: NormalizeSymbol(symbol)}
	if err := validateSymbol(o.Symbol); err != nil {
		return Order{}, err
	}

	shares = strings.TrimSpace(shares)
	if shares == "" {
		return Order{}, &ValidationError{Field: "shares", Reason: "is required"}
	}
	for _, r := range shares {
		if r < '0' || r > '9' {
			return Order{}, &ValidationError{Field: "shares", Reason: "must be a positive integer"}
		}
	}
	n, err := strconv.ParseInt(shares, 10, 64)
	if err != nil {
		return Order{}, &ValidationError{Field: "shares", Reason: "is too large"}
	}
	o.Shares = n

	if err := o.validate(); err != nil {
		return Order{}, err
	}
	return o, nil
}

func validateSymbol(symbol string) error {
	if symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "is required"}
	}
	if !symbolPattern.MatchString(symbol) {
		return &ValidationError{Field: "symbol", Reason: "is malformed"}
	}
	return nil
}

func (o *Order) normalize() error {
	o.Symbol = NormalizeSymbol(o.Symbol)
	return o.validate()
}

func (o Order) validate() error {
	if err := validateSymbol(o.Symbol); err != nil {
		return err
	}
	if o.Shares <= 0 {
		return &ValidationError{Field: "shares", Reason: "must be a positive integer"}
	}
	return nil
}
