package database

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stocks-simulator/models"
)

type gormTx struct {
	db       *gorm.DB
	rowLocks bool
}

func (t *gormTx) LockUser(userID uint) (*models.User, error) {
	db := t.db
	if t.rowLocks {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return findUser(db, userID)
}

func (t *gormTx) ReadUser(userID uint) (*models.User, error) {
	return findUser(t.db, userID)
}

func findUser(db *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	err := db.Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (t *gormTx) UpdateCash(userID uint, cash decimal.Decimal) error {
	res := t.db.Model(&models.User{}).Where("id = ?", userID).Update("cash", cash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("update cash: user %d: %d rows affected", userID, res.RowsAffected)
	}
	return nil
}

func (t *gormTx) FindHolding(userID uint, symbol string) (*models.Holding, error) {
	var h models.Holding
	err := t.db.Where("user_id = ? AND symbol = ?", userID, symbol).Take(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (t *gormTx) ListHoldings(userID uint) ([]models.Holding, error) {
	var holdings []models.Holding
	if err := t.db.Where("user_id = ?", userID).Order("id ASC").Find(&holdings).Error; err != nil {
		return nil, err
	}
	return holdings, nil
}

func (t *gormTx) UpsertHolding(h *models.Holding) error {
	if h.Shares <= 0 {
		return fmt.Errorf("holding %s: shares must be positive, got %d", h.Symbol, h.Shares)
	}
	if h.ID == 0 {
		return t.db.Create(h).Error
	}
	return t.db.Save(h).Error
}

func (t *gormTx) DeleteHolding(h *models.Holding) error {
	res := t.db.Delete(&models.Holding{}, h.ID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("delete holding %d: %d rows affected", h.ID, res.RowsAffected)
	}
	return nil
}

func (t *gormTx) AppendTransaction(tr *models.Transaction) error {
	if tr.ID != 0 {
		return fmt.Errorf("append transaction: already stored as %d", tr.ID)
	}
	return t.db.Create(tr).Error
}

func (t *gormTx) ListTransactions(userID uint) ([]models.Transaction, error) {
	var history []models.Transaction
	if err := t.db.Where("user_id = ?", userID).Order("id DESC").Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}
