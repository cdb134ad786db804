package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"finmanager/internal/models"
	"finmanager/internal/notification"
	"finmanager/internal/pagination"
)

// CategoryUpdate lists the category fields to change. Nil fields are left
// untouched; an empty ParentID detaches the category from its parent.
type CategoryUpdate struct {
	Name        *string
	Type        *models.CategoryType
	Description *string
	ParentID    *string
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(name string, categoryType models.CategoryType, description, parentID *string) (*models.Category, error)
	ListCategories(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetAllCategories() ([]models.Category, error)
	GetCategoriesByType(categoryType models.CategoryType) ([]models.Category, error)
	GetCategoryByID(categoryID string) (*models.Category, error)
	FindCategoryByName(name string) (*models.Category, error)
	UpdateCategory(categoryID string, update CategoryUpdate) (*models.Category, error)
	DeleteCategory(categoryID string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
	BudgetID   *string
}

// TransactionInput carries the fields of a new transaction. A nil Timestamp
// means now.
type TransactionInput struct {
	Amount      decimal.Decimal
	Description string
	Timestamp   *time.Time
	CategoryID  string
	Type        models.TransactionType
	BudgetID    *string
}

// TransactionUpdate lists the transaction fields to change. An empty
// BudgetID unlinks the transaction from its budget.
type TransactionUpdate struct {
	Amount      *decimal.Decimal
	Description *string
	Timestamp   *time.Time
	CategoryID  *string
	Type        *models.TransactionType
	BudgetID    *string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(input TransactionInput) (*models.Transaction, error)
	ListTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetAllTransactions() ([]models.Transaction, error)
	GetTransactionByID(transactionID string) (*models.Transaction, error)
	GetTransactionsByType(transactionType models.TransactionType) ([]models.Transaction, error)
	GetTransactionsByCategory(categoryID string) ([]models.Transaction, error)
	GetTransactionsByDateRange(start, end time.Time) ([]models.Transaction, error)
	UpdateTransaction(transactionID string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(transactionID string) error
	SumByType(transactionType models.TransactionType) (decimal.Decimal, error)
	SumByTypeAndDateRange(transactionType models.TransactionType, start, end time.Time) (decimal.Decimal, error)
	SumByCategoryAndDateRange(categoryID string, start, end time.Time) (decimal.Decimal, error)
}

// BudgetInput carries the fields of a new budget. A nil ThresholdPercentage
// means models.DefaultThresholdPercentage.
type BudgetInput struct {
	Name                string
	CategoryID          string
	Amount              decimal.Decimal
	StartDate           time.Time
	EndDate             time.Time
	ThresholdPercentage *int
}

// BudgetUpdate lists the budget fields to change.
type BudgetUpdate struct {
	Name                *string
	CategoryID          *string
	Amount              *decimal.Decimal
	StartDate           *time.Time
	EndDate             *time.Time
	ThresholdPercentage *int
}

// BudgetLinker attaches transactions to budgets.
type BudgetLinker interface {
	LinkTransaction(budgetID, transactionID string) error
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	BudgetLinker
	CreateBudget(input BudgetInput) (*models.Budget, error)
	ListBudgets(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(budgetID string) (*models.Budget, error)
	GetBudgetsByCategory(categoryID string) ([]models.Budget, error)
	GetCurrentBudgets(asOf time.Time) ([]models.Budget, error)
	UpdateBudget(budgetID string, update BudgetUpdate) (*models.Budget, error)
	DeleteBudget(budgetID string) error
	GetSpendPercentage(budgetID string) (int64, error)
	IsThresholdExceeded(budgetID string) (bool, error)
	GetLinkedTransactions(budgetID string) ([]models.Transaction, error)
}

// SavingGoalInput carries the fields of a new saving goal. Goals always
// start with a zero current amount.
type SavingGoalInput struct {
	Name         string
	Description  *string
	TargetAmount decimal.Decimal
	StartDate    *time.Time
	TargetDate   time.Time
}

// SavingGoalUpdate lists the goal fields to change. The current amount is
// not among them: only contributions move it.
type SavingGoalUpdate struct {
	Name         *string
	Description  *string
	TargetAmount *decimal.Decimal
	StartDate    *time.Time
	TargetDate   *time.Time
}

// SavingGoalServicer defines the contract for saving-goal business logic.
type SavingGoalServicer interface {
	CreateSavingGoal(input SavingGoalInput) (*models.SavingGoal, error)
	ListSavingGoals(page pagination.PageRequest) (*pagination.PageResponse[models.SavingGoal], error)
	GetAllSavingGoals() ([]models.SavingGoal, error)
	GetSavingGoalByID(goalID string) (*models.SavingGoal, error)
	GetUpcomingGoals() ([]models.SavingGoal, error)
	UpdateSavingGoal(goalID string, update SavingGoalUpdate) (*models.SavingGoal, error)
	DeleteSavingGoal(goalID string) error
	GetProgress(goalID string) (int64, error)
	GetRecommendedMonthlyContribution(goalID string) (decimal.Decimal, error)
	AddContribution(goalID string, amount decimal.Decimal, date *time.Time, description *string) (*models.SavingContribution, error)
	GetContributions(goalID string) ([]models.SavingContribution, error)
}

// FinancialSummary aggregates a reporting window.
type FinancialSummary struct {
	TotalIncome        decimal.Decimal            `json:"total_income"`
	TotalExpenses      decimal.Decimal            `json:"total_expenses"`
	Balance            decimal.Decimal            `json:"balance"`
	IncomeByCategory   map[string]decimal.Decimal `json:"income_by_category"`
	ExpensesByCategory map[string]decimal.Decimal `json:"expenses_by_category"`
	SavingGoalProgress map[string]int64           `json:"saving_goal_progress"`
	PeriodStart        string                     `json:"period_start"`
	PeriodEnd          string                     `json:"period_end"`
}

// ReportServicer defines the contract for period summaries.
type ReportServicer interface {
	GetSummary(start, end time.Time) (*FinancialSummary, error)
	GetCurrentMonthSummary() (*FinancialSummary, error)
	GetLastMonthSummary() (*FinancialSummary, error)
	GetLastNDaysSummary(days int) (*FinancialSummary, error)
}

// LineIssue points at a CSV line that failed or was imported with a caveat.
type LineIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportResult reports the outcome of a CSV import.
type ImportResult struct {
	TotalProcessed int         `json:"total_processed"`
	SuccessCount   int         `json:"success_count"`
	DuplicateCount int         `json:"duplicate_count"`
	Failures       []LineIssue `json:"failures"`
	Warnings       []LineIssue `json:"warnings"`
}

// ImportServicer defines the contract for bulk transaction import.
type ImportServicer interface {
	ImportCSV(ctx context.Context, r io.Reader, defaultCategoryID *string) (*ImportResult, error)
}

// NotificationServicer defines the contract for the notification log and the
// scans that feed it.
type NotificationServicer interface {
	Add(n notification.Notification) notification.Notification
	GetAll() []notification.Notification
	GetUnread() []notification.Notification
	MarkAsRead(id string)
	MarkAllAsRead()
	CheckBudgetThresholds(ctx context.Context) (int, error)
	CheckSavingGoalContributions(ctx context.Context) (int, error)
}

// AuditFilter narrows an audit trail listing. Empty fields match everything.
type AuditFilter struct {
	Action       string
	ResourceType string
	ResourceID   string
}

// AuditServicer defines the contract for the audit trail.
type AuditServicer interface {
	Log(action, resourceType, resourceID, ipAddress string, changes map[string]any)
	List(page pagination.PageRequest, filter AuditFilter) (*pagination.PageResponse[models.AuditLog], error)
}
