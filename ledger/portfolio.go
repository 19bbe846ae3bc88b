package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stocks-simulator/models"
)

// Position is a holding valued at its stored price.
type Position struct {
	Symbol    string          `json:"symbol"`
	Shares    int64           `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Value     decimal.Decimal `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Portfolio struct {
	UserID        uint            `json:"user_id"`
	Cash          decimal.Decimal `json:"cash"`
	Holdings      []Position      `json:"holdings"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	NetWorth      decimal.Decimal `json:"net_worth"`
}

// ChartPoint is one holding on the cumulative value chart.
type ChartPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	Value     decimal.Decimal `json:"value"`
	Total     decimal.Decimal `json:"total"`
}

func positionOf(h models.Holding) Position {
	return Position{
		Symbol:    h.Symbol,
		Shares:    h.Shares,
		Price:     h.Price,
		Value:     h.Price.Mul(decimal.NewFromInt(h.Shares)),
		UpdatedAt: h.UpdatedAt,
	}
}

// ComputeNetWorth values the portfolio at each holding's stored price, i.e.
// the price of the last buy of that symbol. No quotes are fetched.
func (l *Ledger) ComputeNetWorth(ctx context.Context, userID uint) (*Portfolio, error) {
	p := &Portfolio{UserID: userID, Holdings: []Position{}}
	err := l.store.Atomically(ctx, func(tx Tx) error {
		user, err := readUser(tx, userID)
		if err != nil {
			return err
		}
		holdings, err := tx.ListHoldings(userID)
		if err != nil {
			return fmt.Errorf("list holdings: %w", err)
		}

		p.Cash = user.Cash
		for _, h := range holdings {
			pos := positionOf(h)
			p.Holdings = append(p.Holdings, pos)
			p.HoldingsValue = p.HoldingsValue.Add(pos.Value)
		}
		p.NetWorth = p.Cash.Add(p.HoldingsValue)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListHistory returns every transaction of the user, most recent first.
func (l *Ledger) ListHistory(ctx context.Context, userID uint) ([]models.Transaction, error) {
	var history []models.Transaction
	err := l.store.Atomically(ctx, func(tx Tx) error {
		if _, err := readUser(tx, userID); err != nil {
			return err
		}
		var err error
		history, err = tx.ListTransactions(userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.Transaction{}
	}
	return history, nil
}

// Chart lists holdings in the order they were opened with the running sum of
// their stored values.
func (l *Ledger) Chart(ctx context.Context, userID uint) ([]ChartPoint, error) {
	points := []ChartPoint{}
	err := l.store.Atomically(ctx, func(tx Tx) error {
		if _, err := readUser(tx, userID); err != nil {
			return err
		}
		holdings, err := tx.ListHoldings(userID)
		if err != nil {
			return fmt.Errorf("list holdings: %w", err)
		}

		total := decimal.Zero
		for _, h := range holdings {
			value := positionOf(h).Value
			total = total.Add(value)
			points = append(points, ChartPoint{
				Timestamp: h.CreatedAt,
				Symbol:    h.Symbol,
				Value:     value,
				Total:     total,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

func readUser(tx Tx, userID uint) (*models.User, error) {
	user, err := tx.ReadUser(userID)
	if err != nil {
		return nil, fmt.Errorf("read user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
	}
	return user, nil
}
