package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stocks-simulator/models"
)

// RecordPrice stores a quote snapshot.
func (s *Store) RecordPrice(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error {
	entry := models.StockPrice{
		Symbol:    symbol,
		Price:     price,
		Timestamp: at,
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

const priceBatchSize = 100

// RecordPrices stores a series of snapshots for one symbol in batches,
// skipping timestamps already recorded. It returns how many rows were added.
func (s *Store) RecordPrices(ctx context.Context, symbol string, prices []models.StockPrice) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	added := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.StockPrice
		if err := tx.Select("timestamp").Where("symbol = ?", symbol).Find(&existing).Error; err != nil {
			return fmt.Errorf("read recorded prices: %w", err)
		}
		seen := make(map[int64]bool, len(existing))
		for _, p := range existing {
			seen[p.Timestamp.UnixNano()] = true
		}

		fresh := make([]models.StockPrice, 0, len(prices))
		for _, p := range prices {
			key := p.Timestamp.UnixNano()
			if p.Symbol != symbol || seen[key] {
				continue
			}
			seen[key] = true
			fresh = append(fresh, p)
		}
		if len(fresh) == 0 {
			return nil
		}

		if err := tx.CreateInBatches(&fresh, priceBatchSize).Error; err != nil {
			return fmt.Errorf("batch insert failed: %w", err)
		}
		added = len(fresh)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// PriceHistory returns up to limit snapshots for symbol, newest first.
func (s *Store) PriceHistory(ctx context.Context, symbol string, limit int) ([]models.StockPrice, error) {
	prices := []models.StockPrice{}
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&prices).Error
	if err != nil {
		return nil, err
	}
	return prices, nil
}
