package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
	now           func() time.Time
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{
		budgetService: budgetService,
		auditService:  auditService,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateBudgetRequest represents the request payload for creating a budget.
type CreateBudgetRequest struct {
	Name                string           `json:"name" binding:"required,min=1,max=100"`
	CategoryID          string           `json:"category_id" binding:"required,uuid"`
	Amount              *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string"`
	StartDate           time.Time        `json:"start_date" binding:"required"`
	EndDate             time.Time        `json:"end_date" binding:"required"`
	ThresholdPercentage *int             `json:"threshold_percentage" binding:"omitempty,gt=0"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
type UpdateBudgetRequest struct {
	Name                *string          `json:"name" binding:"omitempty,min=1,max=100"`
	CategoryID          *string          `json:"category_id" binding:"omitempty,uuid"`
	Amount              *decimal.Decimal `json:"amount" swaggertype:"string"`
	StartDate           *time.Time       `json:"start_date"`
	EndDate             *time.Time       `json:"end_date"`
	ThresholdPercentage *int             `json:"threshold_percentage" binding:"omitempty,gt=0"`
}

// SpendPercentageResponse carries a budget's spend percentage.
type SpendPercentageResponse struct {
	BudgetID           string `json:"budget_id"`
	SpendingPercentage int64  `json:"spending_percentage"`
}

// ThresholdResponse reports whether a budget's threshold has been reached.
type ThresholdResponse struct {
	BudgetID          string `json:"budget_id"`
	ThresholdExceeded bool   `json:"threshold_exceeded"`
}

// CreateBudget handles the creation of a new budget.
// @Summary     Create a budget
// @Description Create a spending cap for a category over an inclusive day window
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.CreateBudget(services.BudgetInput{
		Name:                req.Name,
		CategoryID:          req.CategoryID,
		Amount:              *req.Amount,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		ThresholdPercentage: req.ThresholdPercentage,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("CREATE_BUDGET", "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "amount": budget.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetBudgets handles listing budgets.
// @Summary     Get budgets
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Budget] "Paginated budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [get]
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.budgetService.ListBudgets(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCurrentBudgets handles listing the budgets active on a day.
// @Summary     Get current budgets
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       date query string false "Day to check (defaults to today)"
// @Success     200 {array} models.Budget "Budgets"
// @Failure     400 {object} ErrorResponse "Invalid date"
// @Router      /budgets/current [get]
func (h *BudgetHandler) GetCurrentBudgets(c *gin.Context) {
	asOf := h.now()
	date, err := parseOptionalTimeQuery(c, "date", false)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if date != nil {
		asOf = *date
	}

	budgets, err := h.budgetService.GetCurrentBudgets(asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budgets": budgets})
}

// GetBudgetsByCategory handles listing the budgets of a category.
// @Summary     Get budgets by category
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       categoryId path string true "Category ID"
// @Success     200 {array} models.Budget "Budgets"
// @Failure     400 {object} ErrorResponse "Invalid category ID"
// @Router      /budgets/category/{categoryId} [get]
func (h *BudgetHandler) GetBudgetsByCategory(c *gin.Context) {
	categoryID, err := parsePathID(c, "categoryId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgets, err := h.budgetService.GetBudgetsByCategory(categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budgets": budgets})
}

// GetBudget handles retrieving a specific budget.
// @Summary     Get budget by ID
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Budget details"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// GetSpendingPercentage handles computing how much of a budget is spent.
// @Summary     Get budget spending percentage
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} SpendPercentageResponse "Whole percentage, truncated"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/spending-percentage [get]
func (h *BudgetHandler) GetSpendingPercentage(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	pct, err := h.budgetService.GetSpendPercentage(budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SpendPercentageResponse{BudgetID: budgetID, SpendingPercentage: pct})
}

// GetThresholdExceeded handles checking a budget against its threshold.
// @Summary     Check budget threshold
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} ThresholdResponse "Threshold state"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/threshold-exceeded [get]
func (h *BudgetHandler) GetThresholdExceeded(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	exceeded, err := h.budgetService.IsThresholdExceeded(budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ThresholdResponse{BudgetID: budgetID, ThresholdExceeded: exceeded})
}

// GetBudgetTransactions handles listing the transactions linked to a budget.
// @Summary     Get budget transactions
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {array} models.Transaction "Linked transactions"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/transactions [get]
func (h *BudgetHandler) GetBudgetTransactions(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.budgetService.GetLinkedTransactions(budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// UpdateBudget handles updating an existing budget.
// @Summary     Update budget
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to change"
// @Success     200 {object} models.Budget "Updated budget"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Budget or category not found"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.UpdateBudget(budgetID, services.BudgetUpdate{
		Name:                req.Name,
		CategoryID:          req.CategoryID,
		Amount:              req.Amount,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		ThresholdPercentage: req.ThresholdPercentage,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("UPDATE_BUDGET", "budget", budgetID, c.ClientIP(),
		map[string]interface{}{"name": budget.Name, "amount": budget.Amount.String()})

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget handles deleting a budget. Its transactions are kept and
// unlinked.
// @Summary     Delete budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} MessageResponse "Budget deleted"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("DELETE_BUDGET", "budget", budgetID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted successfully"})
}
