package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"finmanager/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal, failing loudly on typos in test code.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateTestCategory creates a category of the given type with a unique name.
func CreateTestCategory(t *testing.T, db *gorm.DB, categoryType models.CategoryType) *models.Category {
	t.Helper()
	return CreateTestCategoryNamed(t, db, fmt.Sprintf("Test Category %d", nextID()), categoryType)
}

// CreateTestCategoryNamed creates a category with the given name.
func CreateTestCategoryNamed(t *testing.T, db *gorm.DB, name string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{Name: name, Type: categoryType}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestBudget creates a budget over [start, end] with the default
// threshold.
func CreateTestBudget(t *testing.T, db *gorm.DB, categoryID, amount string, start, end time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		Name:                fmt.Sprintf("Test Budget %d", nextID()),
		CategoryID:          categoryID,
		Amount:              Dec(amount),
		StartDate:           start,
		EndDate:             end,
		ThresholdPercentage: models.DefaultThresholdPercentage,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestTransaction inserts a transaction directly, bypassing the ledger.
func CreateTestTransaction(t *testing.T, db *gorm.DB, categoryID string, txType models.TransactionType, amount string, ts time.Time, budgetID *string) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		Amount:      Dec(amount),
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		Timestamp:   ts.UTC(),
		CategoryID:  categoryID,
		Type:        txType,
		BudgetID:    budgetID,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestSavingGoal creates a goal with the given target, current amount
// and target date.
func CreateTestSavingGoal(t *testing.T, db *gorm.DB, target, current string, targetDate time.Time) *models.SavingGoal {
	t.Helper()

	goal := &models.SavingGoal{
		Name:          fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount:  Dec(target),
		CurrentAmount: Dec(current),
		StartDate:     Day(2024, 1, 1),
		TargetDate:    targetDate,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test saving goal: %v", err)
	}
	return goal
}
