// Package ledger applies buy and sell orders to a user's cash, holdings and
// transaction history.
//
// Every successful trade changes cash and holdings and appends exactly one
// Transaction inside a single Store transaction; a failed trade changes
// nothing. Trades by the same user are serialized, and the quote for a trade
// is fetched before the user's lock is taken.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"stocks-simulator/models"
)

type Ledger struct {
	store  Store
	quotes Quoter
	locks  userLocks
}

func New(store Store, quotes Quoter) *Ledger {
	return &Ledger{store: store, quotes: quotes}
}

// Receipt is the outcome of a trade.
type Receipt struct {
	Transaction models.Transaction `json:"transaction"`
	// Cash is the user's balance after the trade.
	Cash decimal.Decimal `json:"cash"`
	// Shares is what the user holds of the symbol after the trade.
	Shares int64 `json:"shares"`
}

func (l *Ledger) price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q, err := l.quotes.Lookup(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", ErrQuoteUnavailable, symbol, err)
	}
	if q == nil {
		return decimal.Zero, fmt.Errorf("%w: %s: no price", ErrQuoteUnavailable, symbol)
	}
	price := q.Price.Round(2)
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s: price %s", ErrQuoteUnavailable, symbol, price)
	}
	return price, nil
}

// Buy debits shares*price from the user's cash and adds the shares to the
// holding, whose stored price becomes the price paid.
func (l *Ledger) Buy(ctx context.Context, userID uint, order Order) (*Receipt, error) {
	if err := order.normalize(); err != nil {
		return nil, err
	}

	price, err := l.price(ctx, order.Symbol)
	if err != nil {
		return nil, err
	}
	cost := price.Mul(decimal.NewFromInt(order.Shares))

	unlock := l.locks.lock(userID)
	defer unlock()

	var receipt Receipt
	err = l.store.Atomically(ctx, func(tx Tx) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if cost.GreaterThan(user.Cash) {
			return fmt.Errorf("%w: %d %s cost %s, cash is %s",
				ErrInsufficientFunds, order.Shares, order.Symbol, cost.StringFixed(2), user.Cash.StringFixed(2))
		}

		cash := user.Cash.Sub(cost)
		if err := tx.UpdateCash(userID, cash); err != nil {
			return fmt.Errorf("debit cash: %w", err)
		}

		holding, err := tx.FindHolding(userID, order.Symbol)
		if err != nil {
			return fmt.Errorf("read holding: %w", err)
		}
		if holding == nil {
			holding = &models.Holding{UserID: userID, Symbol: order.Symbol}
		}
		holding.Shares += order.Shares
		holding.Price = price
		if err := tx.UpsertHolding(holding); err != nil {
			return fmt.Errorf("save holding: %w", err)
		}

		receipt.Transaction = models.Transaction{
			UserID: userID,
			Symbol: order.Symbol,
			Shares: order.Shares,
			Price:  price,
			Kind:   models.KindBuy,
		}
		if err := tx.AppendTransaction(&receipt.Transaction); err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}
		receipt.Cash = cash
		receipt.Shares = holding.Shares
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Sell credits shares*price to the user's cash and removes the shares from
// the holding. The price is a fresh quote, not the stored purchase price. A
// holding sold down to zero is deleted.
func (l *Ledger) Sell(ctx context.Context, userID uint, order Order) (*Receipt, error) {
	if err := order.normalize(); err != nil {
		return nil, err
	}

	// Reject what cannot succeed before paying for a quote.
	err := l.store.Atomically(ctx, func(tx Tx) error {
		holding, err := tx.FindHolding(userID, order.Symbol)
		if err != nil {
			return fmt.Errorf("read holding: %w", err)
		}
		return checkSellable(holding, order)
	})
	if err != nil {
		return nil, err
	}

	price, err := l.price(ctx, order.Symbol)
	if err != nil {
		return nil, err
	}
	proceeds := price.Mul(decimal.NewFromInt(order.Shares))

	unlock := l.locks.lock(userID)
	defer unlock()

	var receipt Receipt
	err = l.store.Atomically(ctx, func(tx Tx) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		holding, err := tx.FindHolding(userID, order.Symbol)
		if err != nil {
			return fmt.Errorf("read holding: %w", err)
		}
		if err := checkSellable(holding, order); err != nil {
			return err
		}

		cash := user.Cash.Add(proceeds)
		if err := tx.UpdateCash(userID, cash); err != nil {
			return fmt.Errorf("credit cash: %w", err)
		}

		holding.Shares -= order.Shares
		if holding.Shares == 0 {
			err = tx.DeleteHolding(holding)
		} else {
			err = tx.UpsertHolding(holding)
		}
		if err != nil {
			return fmt.Errorf("save holding: %w", err)
		}

		receipt.Transaction = models.Transaction{
			UserID: userID,
			Symbol: order.Symbol,
			Shares: order.Shares,
			Price:  price,
			Kind:   models.KindSell,
		}
		if err := tx.AppendTransaction(&receipt.Transaction); err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}
		receipt.Cash = cash
		receipt.Shares = holding.Shares
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func lockUser(tx Tx, userID uint) (*models.User, error) {
	user, err := tx.LockUser(userID)
	if err != nil {
		return nil, fmt.Errorf("read user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
	}
	return user, nil
}

func checkSellable(holding *models.Holding, order Order) error {
	if holding == nil {
		return fmt.Errorf("%w: %s", ErrNoSuchHolding, order.Symbol)
	}
	if order.Shares > holding.Shares {
		return fmt.Errorf("%w: selling %d %s, holding %d",
			ErrInsufficientShares, order.Shares, order.Symbol, holding.Shares)
	}
	return nil
}
