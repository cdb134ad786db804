package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finmanager/internal/logger"
	"finmanager/internal/models"
	"finmanager/internal/notification"
	"finmanager/internal/pagination"
	"finmanager/internal/services"
	"finmanager/internal/validator"
)

const (
	categoryID    = "01890a5d-ac96-774b-bcce-b302099a8057"
	transactionID = "01890a5d-ac96-774b-bcce-b302099a8058"
	budgetID      = "01890a5d-ac96-774b-bcce-b302099a8059"
	goalID        = "01890a5d-ac96-774b-bcce-b302099a805a"
)

var errBoom = errors.New("boom")

// --- test helpers ---

func init() {
	logger.Init("test")
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func doUpload(r *gin.Engine, path, filename, content string, fields map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, _ := w.CreateFormFile("file", filename)
		_, _ = part.Write([]byte(content))
	}
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	_ = w.Close()

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- mock audit service ---

type auditEntry struct {
	action, resourceType, resourceID string
}

type mockAuditService struct {
	entries []auditEntry
	listFn  func(page pagination.PageRequest, filter services.AuditFilter) (*pagination.PageResponse[models.AuditLog], error)
}

func (m *mockAuditService) Log(action, resourceType, resourceID, _ string, _ map[string]interface{}) {
	m.entries = append(m.entries, auditEntry{action, resourceType, resourceID})
}

func (m *mockAuditService) List(page pagination.PageRequest, filter services.AuditFilter) (*pagination.PageResponse[models.AuditLog], error) {
	return m.listFn(page, filter)
}

var _ services.AuditServicer = (*mockAuditService)(nil)

// --- mock category service ---

type mockCategoryService struct {
	createCategoryFn      func(name string, categoryType models.CategoryType, description, parentID *string) (*models.Category, error)
	listCategoriesFn      func(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	getCategoriesByTypeFn func(categoryType models.CategoryType) ([]models.Category, error)
	getCategoryByIDFn     func(id string) (*models.Category, error)
	updateCategoryFn      func(id string, update services.CategoryUpdate) (*models.Category, error)
	deleteCategoryFn      func(id string) error
}

func (m *mockCategoryService) CreateCategory(name string, categoryType models.CategoryType, description, parentID *string) (*models.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(name, categoryType, description, parentID)
	}
	return &models.Category{Base: models.Base{ID: categoryID}, Name: name, Type: categoryType}, nil
}

func (m *mockCategoryService) ListCategories(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(page)
	}
	resp := pagination.NewPageResponse([]models.Category{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

func (m *mockCategoryService) GetAllCategories() ([]models.Category, error) {
	return []models.Category{}, nil
}

func (m *mockCategoryService) GetCategoriesByType(categoryType models.CategoryType) ([]models.Category, error) {
	if m.getCategoriesByTypeFn != nil {
		return m.getCategoriesByTypeFn(categoryType)
	}
	return []models.Category{}, nil
}

func (m *mockCategoryService) GetCategoryByID(id string) (*models.Category, error) {
	if m.getCategoryByIDFn != nil {
		return m.getCategoryByIDFn(id)
	}
	return &models.Category{Base: models.Base{ID: id}}, nil
}

func (m *mockCategoryService) FindCategoryByName(name string) (*models.Category, error) {
	return &models.Category{Name: name}, nil
}

func (m *mockCategoryService) UpdateCategory(id string, update services.CategoryUpdate) (*models.Category, error) {
	if m.updateCategoryFn != nil {
		return m.updateCategoryFn(id, update)
	}
	return &models.Category{Base: models.Base{ID: id}}, nil
}

func (m *mockCategoryService) DeleteCategory(id string) error {
	if m.deleteCategoryFn != nil {
		return m.deleteCategoryFn(id)
	}
	return nil
}

var _ services.CategoryServicer = (*mockCategoryService)(nil)

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn     func(input services.TransactionInput) (*models.Transaction, error)
	listTransactionsFn      func(page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getTransactionByIDFn    func(id string) (*models.Transaction, error)
	getByTypeFn             func(t models.TransactionType) ([]models.Transaction, error)
	getByCategoryFn         func(categoryID string) ([]models.Transaction, error)
	getByDateRangeFn        func(start, end time.Time) ([]models.Transaction, error)
	updateTransactionFn     func(id string, update services.TransactionUpdate) (*models.Transaction, error)
	deleteTransactionFn     func(id string) error
	sumByTypeFn             func(t models.TransactionType) (decimal.Decimal, error)
	sumByTypeAndDateRangeFn func(t models.TransactionType, start, end time.Time) (decimal.Decimal, error)
	sumByCategoryFn         func(categoryID string, start, end time.Time) (decimal.Decimal, error)
}

func (m *mockTransactionService) CreateTransaction(input services.TransactionInput) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(input)
	}
	return &models.Transaction{Base: models.Base{ID: transactionID}, Amount: input.Amount}, nil
}

func (m *mockTransactionService) ListTransactions(page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.listTransactionsFn != nil {
		return m.listTransactionsFn(page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetAllTransactions() ([]models.Transaction, error) {
	return []models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionByID(id string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(id)
	}
	return &models.Transaction{Base: models.Base{ID: id}}, nil
}

func (m *mockTransactionService) GetTransactionsByType(t models.TransactionType) ([]models.Transaction, error) {
	if m.getByTypeFn != nil {
		return m.getByTypeFn(t)
	}
	return []models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionsByCategory(categoryID string) ([]models.Transaction, error) {
	if m.getByCategoryFn != nil {
		return m.getByCategoryFn(categoryID)
	}
	return []models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionsByDateRange(start, end time.Time) ([]models.Transaction, error) {
	if m.getByDateRangeFn != nil {
		return m.getByDateRangeFn(start, end)
	}
	return []models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateTransaction(id string, update services.TransactionUpdate) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(id, update)
	}
	return &models.Transaction{Base: models.Base{ID: id}}, nil
}

func (m *mockTransactionService) DeleteTransaction(id string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(id)
	}
	return nil
}

func (m *mockTransactionService) SumByType(t models.TransactionType) (decimal.Decimal, error) {
	if m.sumByTypeFn != nil {
		return m.sumByTypeFn(t)
	}
	return decimal.Zero, nil
}

func (m *mockTransactionService) SumByTypeAndDateRange(t models.TransactionType, start, end time.Time) (decimal.Decimal, error) {
	if m.sumByTypeAndDateRangeFn != nil {
		return m.sumByTypeAndDateRangeFn(t, start, end)
	}
	return decimal.Zero, nil
}

func (m *mockTransactionService) SumByCategoryAndDateRange(categoryID string, start, end time.Time) (decimal.Decimal, error) {
	if m.sumByCategoryFn != nil {
		return m.sumByCategoryFn(categoryID, start, end)
	}
	return decimal.Zero, nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

// --- mock budget service ---

type mockBudgetService struct {
	createBudgetFn        func(input services.BudgetInput) (*models.Budget, error)
	getBudgetByIDFn       func(id string) (*models.Budget, error)
	getCurrentBudgetsFn   func(asOf time.Time) ([]models.Budget, error)
	updateBudgetFn        func(id string, update services.BudgetUpdate) (*models.Budget, error)
	deleteBudgetFn        func(id string) error
	getSpendPercentageFn  func(id string) (int64, error)
	isThresholdExceededFn func(id string) (bool, error)
}

func (m *mockBudgetService) LinkTransaction(_, _ string) error { return nil }

func (m *mockBudgetService) CreateBudget(input services.BudgetInput) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(input)
	}
	return &models.Budget{Base: models.Base{ID: budgetID}, Name: input.Name, Amount: input.Amount}, nil
}

func (m *mockBudgetService) ListBudgets(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	resp := pagination.NewPageResponse([]models.Budget{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

func (m *mockBudgetService) GetBudgetByID(id string) (*models.Budget, error) {
	if m.getBudgetByIDFn != nil {
		return m.getBudgetByIDFn(id)
	}
	return &models.Budget{Base: models.Base{ID: id}}, nil
}

func (m *mockBudgetService) GetBudgetsByCategory(_ string) ([]models.Budget, error) {
	return []models.Budget{}, nil
}

func (m *mockBudgetService) GetCurrentBudgets(asOf time.Time) ([]models.Budget, error) {
	if m.getCurrentBudgetsFn != nil {
		return m.getCurrentBudgetsFn(asOf)
	}
	return []models.Budget{}, nil
}

func (m *mockBudgetService) UpdateBudget(id string, update services.BudgetUpdate) (*models.Budget, error) {
	if m.updateBudgetFn != nil {
		return m.updateBudgetFn(id, update)
	}
	return &models.Budget{Base: models.Base{ID: id}}, nil
}

func (m *mockBudgetService) DeleteBudget(id string) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(id)
	}
	return nil
}

func (m *mockBudgetService) GetSpendPercentage(id string) (int64, error) {
	if m.getSpendPercentageFn != nil {
		return m.getSpendPercentageFn(id)
	}
	return 0, nil
}

func (m *mockBudgetService) IsThresholdExceeded(id string) (bool, error) {
	if m.isThresholdExceededFn != nil {
		return m.isThresholdExceededFn(id)
	}
	return false, nil
}

func (m *mockBudgetService) GetLinkedTransactions(_ string) ([]models.Transaction, error) {
	return []models.Transaction{}, nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

// --- mock saving goal service ---

type mockSavingGoalService struct {
	createSavingGoalFn  func(input services.SavingGoalInput) (*models.SavingGoal, error)
	getSavingGoalByIDFn func(id string) (*models.SavingGoal, error)
	getProgressFn       func(id string) (int64, error)
	getMonthlyFn        func(id string) (decimal.Decimal, error)
	addContributionFn   func(id string, amount decimal.Decimal, date *time.Time, description *string) (*models.SavingContribution, error)
	updateSavingGoalFn  func(id string, update services.SavingGoalUpdate) (*models.SavingGoal, error)
	deleteSavingGoalFn  func(id string) error
}

func (m *mockSavingGoalService) CreateSavingGoal(input services.SavingGoalInput) (*models.SavingGoal, error) {
	if m.createSavingGoalFn != nil {
		return m.createSavingGoalFn(input)
	}
	return &models.SavingGoal{Base: models.Base{ID: goalID}, Name: input.Name, TargetAmount: input.TargetAmount}, nil
}

func (m *mockSavingGoalService) ListSavingGoals(page pagination.PageRequest) (*pagination.PageResponse[models.SavingGoal], error) {
	resp := pagination.NewPageResponse([]models.SavingGoal{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

func (m *mockSavingGoalService) GetAllSavingGoals() ([]models.SavingGoal, error) {
	return []models.SavingGoal{}, nil
}

func (m *mockSavingGoalService) GetSavingGoalByID(id string) (*models.SavingGoal, error) {
	if m.getSavingGoalByIDFn != nil {
		return m.getSavingGoalByIDFn(id)
	}
	return &models.SavingGoal{Base: models.Base{ID: id}}, nil
}

func (m *mockSavingGoalService) GetUpcomingGoals() ([]models.SavingGoal, error) {
	return []models.SavingGoal{}, nil
}

func (m *mockSavingGoalService) UpdateSavingGoal(id string, update services.SavingGoalUpdate) (*models.SavingGoal, error) {
	if m.updateSavingGoalFn != nil {
		return m.updateSavingGoalFn(id, update)
	}
	return &models.SavingGoal{Base: models.Base{ID: id}}, nil
}

func (m *mockSavingGoalService) DeleteSavingGoal(id string) error {
	if m.deleteSavingGoalFn != nil {
		return m.deleteSavingGoalFn(id)
	}
	return nil
}

func (m *mockSavingGoalService) GetProgress(id string) (int64, error) {
	if m.getProgressFn != nil {
		return m.getProgressFn(id)
	}
	return 0, nil
}

func (m *mockSavingGoalService) GetRecommendedMonthlyContribution(id string) (decimal.Decimal, error) {
	if m.getMonthlyFn != nil {
		return m.getMonthlyFn(id)
	}
	return decimal.Zero, nil
}

func (m *mockSavingGoalService) AddContribution(id string, amount decimal.Decimal, date *time.Time, description *string) (*models.SavingContribution, error) {
	if m.addContributionFn != nil {
		return m.addContributionFn(id, amount, date, description)
	}
	return &models.SavingContribution{SavingGoalID: id, Amount: amount}, nil
}

func (m *mockSavingGoalService) GetContributions(_ string) ([]models.SavingContribution, error) {
	return []models.SavingContribution{}, nil
}

var _ services.SavingGoalServicer = (*mockSavingGoalService)(nil)

// --- mock report service ---

type mockReportService struct {
	getSummaryFn   func(start, end time.Time) (*services.FinancialSummary, error)
	getLastNDaysFn func(days int) (*services.FinancialSummary, error)
}

func (m *mockReportService) GetSummary(start, end time.Time) (*services.FinancialSummary, error) {
	if m.getSummaryFn != nil {
		return m.getSummaryFn(start, end)
	}
	return &services.FinancialSummary{}, nil
}

func (m *mockReportService) GetCurrentMonthSummary() (*services.FinancialSummary, error) {
	return &services.FinancialSummary{PeriodStart: "current"}, nil
}

func (m *mockReportService) GetLastMonthSummary() (*services.FinancialSummary, error) {
	return &services.FinancialSummary{PeriodStart: "last"}, nil
}

func (m *mockReportService) GetLastNDaysSummary(days int) (*services.FinancialSummary, error) {
	if m.getLastNDaysFn != nil {
		return m.getLastNDaysFn(days)
	}
	return &services.FinancialSummary{}, nil
}

var _ services.ReportServicer = (*mockReportService)(nil)

// --- mock notification service ---

type mockNotificationService struct {
	items        []notification.Notification
	markedRead   []string
	markAllCalls int
	checkBudgets func(ctx context.Context) (int, error)
	checkGoals   func(ctx context.Context) (int, error)
}

func (m *mockNotificationService) Add(n notification.Notification) notification.Notification {
	m.items = append(m.items, n)
	return n
}

func (m *mockNotificationService) GetAll() []notification.Notification { return m.items }

func (m *mockNotificationService) GetUnread() []notification.Notification {
	var out []notification.Notification
	for _, n := range m.items {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out
}

func (m *mockNotificationService) MarkAsRead(id string) { m.markedRead = append(m.markedRead, id) }

func (m *mockNotificationService) MarkAllAsRead() { m.markAllCalls++ }

func (m *mockNotificationService) CheckBudgetThresholds(ctx context.Context) (int, error) {
	if m.checkBudgets != nil {
		return m.checkBudgets(ctx)
	}
	return 0, nil
}

func (m *mockNotificationService) CheckSavingGoalContributions(ctx context.Context) (int, error) {
	if m.checkGoals != nil {
		return m.checkGoals(ctx)
	}
	return 0, nil
}

var _ services.NotificationServicer = (*mockNotificationService)(nil)

// --- mock import service ---

type mockImportService struct {
	importCSVFn func(ctx context.Context, r io.Reader, defaultCategoryID *string) (*services.ImportResult, error)
}

func (m *mockImportService) ImportCSV(ctx context.Context, r io.Reader, defaultCategoryID *string) (*services.ImportResult, error) {
	if m.importCSVFn != nil {
		return m.importCSVFn(ctx, r, defaultCategoryID)
	}
	return &services.ImportResult{Failures: []services.LineIssue{}, Warnings: []services.LineIssue{}}, nil
}

var _ services.ImportServicer = (*mockImportService)(nil)
