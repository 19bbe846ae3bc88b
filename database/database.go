package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"stocks-simulator/ledger"
	"stocks-simulator/models"
)

var ErrUsernameTaken = errors.New("username already exists")

// AutoMigrate creates or updates the schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Holding{},
		&models.Transaction{},
		&models.StockPrice{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Store is the gorm implementation of ledger.Store.
type Store struct {
	db *gorm.DB
	// rowLocks is false on SQLite, which has no SELECT ... FOR UPDATE.
	rowLocks bool
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, rowLocks: db.Dialector.Name() != "sqlite"}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Atomically runs fn in a database transaction, rolling back when fn returns
// an error or panics.
func (s *Store) Atomically(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&gormTx{db: tx, rowLocks: s.rowLocks}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
