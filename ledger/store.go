package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"stocks-simulator/models"
	"stocks-simulator/quote"
)

// Store runs fn inside one database transaction. Writes made through tx are
// committed together when fn returns nil and discarded otherwise.
type Store interface {
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the unit of work handed to Store.Atomically. Lookups of absent rows
// return a nil value and a nil error.
type Tx interface {
	// LockUser reads the user row and holds it until the transaction ends.
	LockUser(userID uint) (*models.User, error)
	ReadUser(userID uint) (*models.User, error)
	UpdateCash(userID uint, cash decimal.Decimal) error

	FindHolding(userID uint, symbol string) (*models.Holding, error)
	// ListHoldings returns the user's holdings in creation order.
	ListHoldings(userID uint) ([]models.Holding, error)
	// UpsertHolding inserts h when h.ID is zero and updates it otherwise.
	UpsertHolding(h *models.Holding) error
	DeleteHolding(h *models.Holding) error

	AppendTransaction(t *models.Transaction) error
	// ListTransactions returns the user's transactions, newest first.
	ListTransactions(userID uint) ([]models.Transaction, error)
}

// Quoter prices a trade.
type Quoter = quote.Quoter
