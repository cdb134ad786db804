package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/keylock"
	"finmanager/internal/models"
	"finmanager/internal/pagination"
)

var hundred = decimal.NewFromInt(100)

// budgetService handles budget-related business logic.
type budgetService struct {
	db    *gorm.DB
	locks keylock.Map
	now   func() time.Time
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreateBudget creates a new budget for a category.
func (s *budgetService) CreateBudget(input BudgetInput) (*models.Budget, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name is required")
	}
	if input.Amount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be negative")
	}

	threshold := models.DefaultThresholdPercentage
	if input.ThresholdPercentage != nil {
		threshold = *input.ThresholdPercentage
	}
	if threshold <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "threshold percentage must be positive")
	}

	start, end := models.TruncateDay(input.StartDate), models.TruncateDay(input.EndDate)
	if end.Before(start) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date must not be before start date")
	}

	if err := ensureCategory(s.db, input.CategoryID); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		Name:                name,
		CategoryID:          input.CategoryID,
		Amount:              input.Amount,
		StartDate:           start,
		EndDate:             end,
		ThresholdPercentage: threshold,
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// ListBudgets returns a paginated list of budgets, latest window first.
func (s *budgetService) ListBudgets(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	result, err := pagination.Find[models.Budget](s.db.Model(&models.Budget{}), page, "start_date DESC", preloadCategory)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetBudgetByID returns a budget by ID.
func (s *budgetService) GetBudgetByID(budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ?", budgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(apperrors.ErrBudgetNotFound, "Budget", budgetID)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// GetBudgetsByCategory returns the budgets of a category.
func (s *budgetService) GetBudgetsByCategory(categoryID string) ([]models.Budget, error) {
	var budgets []models.Budget
	if err := s.db.Preload("Category").Where("category_id = ?", categoryID).Order("start_date DESC").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// GetCurrentBudgets returns the budgets whose window contains the day of
// asOf. A zero asOf means today.
func (s *budgetService) GetCurrentBudgets(asOf time.Time) ([]models.Budget, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	day := models.TruncateDay(asOf)

	var budgets []models.Budget
	if err := s.db.Preload("Category").
		Where("start_date <= ? AND end_date >= ?", day, day).
		Order("start_date").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// UpdateBudget applies the non-nil fields of update to a budget.
func (s *budgetService) UpdateBudget(budgetID string, update BudgetUpdate) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name is required")
		}
		updates["name"] = name
	}
	if update.CategoryID != nil {
		if err := ensureCategory(s.db, *update.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *update.CategoryID
	}
	if update.Amount != nil {
		if update.Amount.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be negative")
		}
		updates["amount"] = *update.Amount
	}
	if update.ThresholdPercentage != nil {
		if *update.ThresholdPercentage <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "threshold percentage must be positive")
		}
		updates["threshold_percentage"] = *update.ThresholdPercentage
	}

	start, end := budget.StartDate, budget.EndDate
	if update.StartDate != nil {
		start = models.TruncateDay(*update.StartDate)
		updates["start_date"] = start
	}
	if update.EndDate != nil {
		end = models.TruncateDay(*update.EndDate)
		updates["end_date"] = end
	}
	if end.Before(start) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date must not be before start date")
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetBudgetByID(budgetID)
}

// DeleteBudget soft-deletes a budget and unlinks its transactions.
func (s *budgetService) DeleteBudget(budgetID string) error {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(budgetID)
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).Where("budget_id = ?", budgetID).Update("budget_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetSpendPercentage returns linked expenses as a percentage of the budget
// amount, truncated toward zero. A zero budget amount yields 0.
func (s *budgetService) GetSpendPercentage(budgetID string) (int64, error) {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return 0, err
	}
	return s.spendPercentage(budget)
}

// IsThresholdExceeded reports whether the spend percentage has reached the
// budget's threshold.
func (s *budgetService) IsThresholdExceeded(budgetID string) (bool, error) {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return false, err
	}

	pct, err := s.spendPercentage(budget)
	if err != nil {
		return false, err
	}
	return pct >= int64(budget.ThresholdPercentage), nil
}

// LinkTransaction attaches a transaction to a budget. A transaction belongs
// to at most one budget, so linking it again is a no-op.
func (s *budgetService) LinkTransaction(budgetID, transactionID string) error {
	unlock := s.locks.Lock(budgetID)
	defer unlock()

	if _, err := s.GetBudgetByID(budgetID); err != nil {
		return err
	}

	result := s.db.Model(&models.Transaction{}).Where("id = ?", transactionID).Update("budget_id", budgetID)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(apperrors.ErrTransactionNotFound, "Transaction", transactionID)
	}
	return nil
}

// GetLinkedTransactions returns the transactions attached to a budget.
func (s *budgetService) GetLinkedTransactions(budgetID string) ([]models.Transaction, error) {
	if _, err := s.GetBudgetByID(budgetID); err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	if err := s.db.Preload("Category").Where("budget_id = ?", budgetID).Order("timestamp DESC").Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

func (s *budgetService) spendPercentage(budget *models.Budget) (int64, error) {
	if budget.Amount.IsZero() {
		return 0, nil
	}

	expense := models.TransactionTypeExpense
	spent, err := sumAmounts(s.db, TransactionFilter{BudgetID: &budget.ID, Type: &expense})
	if err != nil {
		return 0, err
	}

	// QuoRem at precision 0 truncates toward zero.
	pct, _ := spent.Mul(hundred).QuoRem(budget.Amount, 0)
	return pct.IntPart(), nil
}
