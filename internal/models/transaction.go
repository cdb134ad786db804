package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a transaction. Amounts are
// always stored non-negative; the type alone carries the sign.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction represents a financial transaction in the system
type Transaction struct {
	Base
	Amount      decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"amount"`
	Description string          `gorm:"not null;default:''" json:"description"`
	Timestamp   time.Time       `gorm:"not null;index" json:"timestamp"`
	CategoryID  string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Type        TransactionType `gorm:"not null;index" json:"type"`
	BudgetID    *string         `gorm:"type:uuid;index" json:"budget_id,omitempty"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
