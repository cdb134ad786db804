package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultThresholdPercentage is the spend percentage at which a budget is
// considered exceeded when no explicit threshold is given.
const DefaultThresholdPercentage = 80

// Budget caps spending in a category over an inclusive day window. Linked
// transactions are those whose BudgetID points at the budget.
type Budget struct {
	Base
	Name                string          `gorm:"not null" json:"name"`
	CategoryID          string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Amount              decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"amount"`
	StartDate           time.Time       `gorm:"not null" json:"start_date"`
	EndDate             time.Time       `gorm:"not null" json:"end_date"`
	ThresholdPercentage int             `gorm:"not null;default:80" json:"threshold_percentage"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// Contains reports whether the day of t falls inside the budget window.
func (b *Budget) Contains(t time.Time) bool {
	day := TruncateDay(t)
	return !day.Before(TruncateDay(b.StartDate)) && !day.After(TruncateDay(b.EndDate))
}
