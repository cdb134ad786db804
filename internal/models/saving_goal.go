package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavingGoal is a target amount to accumulate by a date. CurrentAmount only
// moves through contributions.
type SavingGoal struct {
	Base
	Name          string          `gorm:"not null;index" json:"name"`
	Description   *string         `json:"description,omitempty"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(19,4);not null;default:0" json:"current_amount"`
	StartDate     time.Time       `gorm:"not null" json:"start_date"`
	TargetDate    time.Time       `gorm:"not null;index" json:"target_date"`
}

// Remaining returns how much is still missing to reach the target. It is
// negative for overfunded goals.
func (g *SavingGoal) Remaining() decimal.Decimal {
	return g.TargetAmount.Sub(g.CurrentAmount)
}

// SavingContribution is money put towards a saving goal.
type SavingContribution struct {
	Base
	SavingGoalID string          `gorm:"type:uuid;not null;index" json:"saving_goal_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(19,4);not null" json:"amount"`
	Date         time.Time       `gorm:"not null" json:"date"`
	Description  *string         `json:"description,omitempty"`
}
