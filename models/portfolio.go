package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the direction of a ledger Transaction.
type Kind string

const (
	KindBuy  Kind = "buy"
	KindSell Kind = "sell"
)

// Holding is a user's open position in one symbol. A row only exists while
// Shares is positive.
type Holding struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_holdings_user_symbol" json:"user_id"`
	Symbol    string          `gorm:"size:16;not null;uniqueIndex:idx_holdings_user_symbol" json:"symbol"`
	Shares    int64           `gorm:"not null;check:chk_holdings_shares,shares > 0" json:"shares"`
	Price     decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is the append-only record of a completed buy or sell.
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	Symbol    string          `gorm:"size:16;not null" json:"symbol"`
	Shares    int64           `gorm:"not null" json:"shares"`
	Price     decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"price"`
	Kind      Kind            `gorm:"type:varchar(4);not null" json:"kind"`
	CreatedAt time.Time       `gorm:"index" json:"timestamp"`
}

// Amount is shares * price for the transaction.
func (t Transaction) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares))
}
