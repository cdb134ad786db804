package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/models"
	"finmanager/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db      *gorm.DB
	budgets BudgetLinker
	now     func() time.Time
}

// NewTransactionService creates a new TransactionServicer. Transactions that
// reference a budget are attached to it through budgets.
func NewTransactionService(db *gorm.DB, budgets BudgetLinker) TransactionServicer {
	return &transactionService{
		db:      db,
		budgets: budgets,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateTransaction records a new transaction and links it to its budget, if
// any.
func (s *transactionService) CreateTransaction(input TransactionInput) (*models.Transaction, error) {
	if input.Amount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be negative")
	}
	if !input.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if strings.TrimSpace(input.CategoryID) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if err := ensureCategory(s.db, input.CategoryID); err != nil {
		return nil, err
	}

	budgetID := input.BudgetID
	if budgetID != nil && *budgetID == "" {
		budgetID = nil
	}
	if budgetID != nil {
		if err := s.ensureBudget(*budgetID); err != nil {
			return nil, err
		}
	}

	timestamp := s.now()
	if input.Timestamp != nil && !input.Timestamp.IsZero() {
		timestamp = input.Timestamp.UTC()
	}

	transaction := &models.Transaction{
		Amount:      input.Amount,
		Description: strings.TrimSpace(input.Description),
		Timestamp:   timestamp,
		CategoryID:  input.CategoryID,
		Type:        input.Type,
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if budgetID != nil {
		if err := s.budgets.LinkTransaction(*budgetID, transaction.ID); err != nil {
			return nil, err
		}
		transaction.BudgetID = budgetID
	}

	return transaction, nil
}

// ListTransactions retrieves a filtered, paginated list of transactions,
// newest first.
func (s *transactionService) ListTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	result, err := pagination.Find[models.Transaction](applyTransactionFilter(s.db.Model(&models.Transaction{}), filter), page, "timestamp DESC", preloadCategory)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetAllTransactions returns every transaction.
func (s *transactionService) GetAllTransactions() ([]models.Transaction, error) {
	return s.find(TransactionFilter{})
}

// GetTransactionByID retrieves a transaction by ID
func (s *transactionService) GetTransactionByID(transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Category").Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(apperrors.ErrTransactionNotFound, "Transaction", transactionID)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// GetTransactionsByType returns all transactions of one type.
func (s *transactionService) GetTransactionsByType(transactionType models.TransactionType) ([]models.Transaction, error) {
	if !transactionType.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	return s.find(TransactionFilter{Type: &transactionType})
}

// GetTransactionsByCategory returns all transactions in a category.
func (s *transactionService) GetTransactionsByCategory(categoryID string) ([]models.Transaction, error) {
	return s.find(TransactionFilter{CategoryID: &categoryID})
}

// GetTransactionsByDateRange returns transactions whose timestamp lies in
// [start, end].
func (s *transactionService) GetTransactionsByDateRange(start, end time.Time) ([]models.Transaction, error) {
	start, end = start.UTC(), end.UTC()
	return s.find(TransactionFilter{FromDate: &start, ToDate: &end})
}

// UpdateTransaction applies the non-nil fields of update to a transaction.
func (s *transactionService) UpdateTransaction(transactionID string, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(transactionID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.Amount != nil {
		if update.Amount.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be negative")
		}
		updates["amount"] = *update.Amount
	}
	if update.Description != nil {
		updates["description"] = strings.TrimSpace(*update.Description)
	}
	if update.Timestamp != nil && !update.Timestamp.IsZero() {
		updates["timestamp"] = update.Timestamp.UTC()
	}
	if update.CategoryID != nil {
		if err := ensureCategory(s.db, *update.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *update.CategoryID
	}
	if update.Type != nil {
		if !update.Type.Valid() {
			return nil, apperrors.ErrInvalidTransactionType
		}
		updates["type"] = *update.Type
	}

	var linkTo string
	if update.BudgetID != nil {
		if *update.BudgetID == "" {
			updates["budget_id"] = nil
		} else {
			if err := s.ensureBudget(*update.BudgetID); err != nil {
				return nil, err
			}
			linkTo = *update.BudgetID
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(transaction).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if linkTo != "" {
		if err := s.budgets.LinkTransaction(linkTo, transactionID); err != nil {
			return nil, err
		}
	}

	return s.GetTransactionByID(transactionID)
}

// DeleteTransaction soft-deletes a transaction. It drops out of every sum and
// budget from then on.
func (s *transactionService) DeleteTransaction(transactionID string) error {
	transaction, err := s.GetTransactionByID(transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// SumByType totals all transactions of one type.
func (s *transactionService) SumByType(transactionType models.TransactionType) (decimal.Decimal, error) {
	if !transactionType.Valid() {
		return decimal.Zero, apperrors.ErrInvalidTransactionType
	}
	return sumAmounts(s.db, TransactionFilter{Type: &transactionType})
}

// SumByTypeAndDateRange totals transactions of one type in [start, end].
func (s *transactionService) SumByTypeAndDateRange(transactionType models.TransactionType, start, end time.Time) (decimal.Decimal, error) {
	if !transactionType.Valid() {
		return decimal.Zero, apperrors.ErrInvalidTransactionType
	}
	start, end = start.UTC(), end.UTC()
	return sumAmounts(s.db, TransactionFilter{Type: &transactionType, FromDate: &start, ToDate: &end})
}

// SumByCategoryAndDateRange totals transactions of a category in [start, end],
// regardless of type.
func (s *transactionService) SumByCategoryAndDateRange(categoryID string, start, end time.Time) (decimal.Decimal, error) {
	start, end = start.UTC(), end.UTC()
	return sumAmounts(s.db, TransactionFilter{CategoryID: &categoryID, FromDate: &start, ToDate: &end})
}

func (s *transactionService) find(filter TransactionFilter) ([]models.Transaction, error) {
	var transactions []models.Transaction
	query := applyTransactionFilter(s.db.Model(&models.Transaction{}), filter)
	if err := query.Preload("Category").Order("timestamp DESC").Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

func (s *transactionService) ensureBudget(budgetID string) error {
	var count int64
	if err := s.db.Model(&models.Budget{}).Where("id = ?", budgetID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.NotFound(apperrors.ErrBudgetNotFound, "Budget", budgetID)
	}
	return nil
}

func preloadCategory(db *gorm.DB) *gorm.DB {
	return db.Preload("Category")
}

// applyTransactionFilter narrows query by every set field of filter. Date
// bounds are inclusive.
func applyTransactionFilter(query *gorm.DB, filter TransactionFilter) *gorm.DB {
	if filter.FromDate != nil {
		query = query.Where("timestamp >= ?", filter.FromDate.UTC())
	}
	if filter.ToDate != nil {
		query = query.Where("timestamp <= ?", filter.ToDate.UTC())
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.BudgetID != nil {
		query = query.Where("budget_id = ?", *filter.BudgetID)
	}
	return query
}

// sumAmounts adds up the amounts matched by filter. The amounts are summed
// as decimals here rather than with SQL SUM so SQLite never rounds them
// through a float.
func sumAmounts(db *gorm.DB, filter TransactionFilter) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	query := applyTransactionFilter(db.Model(&models.Transaction{}), filter)
	if err := query.Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}
