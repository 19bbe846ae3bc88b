package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockPrice is a snapshot of a quote fetched from the market data provider.
type StockPrice struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Symbol    string          `gorm:"size:16;not null;index" json:"symbol"`
	Price     decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"price"`
	Timestamp time.Time       `gorm:"not null;index" json:"timestamp"`
}
