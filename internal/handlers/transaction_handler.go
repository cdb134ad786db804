package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/models"
	"finmanager/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the request payload for creating a transaction.
// Amount accepts a JSON number or string.
type CreateTransactionRequest struct {
	Amount      *decimal.Decimal       `json:"amount" binding:"required" swaggertype:"string"`
	Description string                 `json:"description" binding:"max=255"`
	Timestamp   *time.Time             `json:"timestamp"`
	CategoryID  string                 `json:"category_id" binding:"required,uuid"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	BudgetID    *string                `json:"budget_id" binding:"omitempty,uuid"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction.
// An empty budget_id unlinks the transaction.
type UpdateTransactionRequest struct {
	Amount      *decimal.Decimal        `json:"amount" swaggertype:"string"`
	Description *string                 `json:"description" binding:"omitempty,max=255"`
	Timestamp   *time.Time              `json:"timestamp"`
	CategoryID  *string                 `json:"category_id" binding:"omitempty,uuid"`
	Type        *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	BudgetID    *string                 `json:"budget_id"`
}

// SumResponse carries a monetary total.
type SumResponse struct {
	Sum decimal.Decimal `json:"sum" swaggertype:"string"`
}

// CreateTransaction handles the creation of a new transaction.
// @Summary     Create a transaction
// @Description Record a transaction and link it to its budget when one is given
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category or budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.CreateTransaction(services.TransactionInput{
		Amount:      *req.Amount,
		Description: req.Description,
		Timestamp:   req.Timestamp,
		CategoryID:  req.CategoryID,
		Type:        req.Type,
		BudgetID:    req.BudgetID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("CREATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"amount": transaction.Amount.String(), "type": req.Type, "category_id": req.CategoryID})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransactions handles listing transactions with optional filters.
// @Summary     Get transactions
// @Description Get a paginated list of transactions, newest first
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       from_date   query string false "Start of window (RFC 3339 or YYYY-MM-DD)"
// @Param       to_date     query string false "End of window (RFC 3339 or YYYY-MM-DD)"
// @Param       type        query string false "INCOME or EXPENSE"
// @Param       category_id query string false "Category ID"
// @Param       budget_id   query string false "Budget ID"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var filter services.TransactionFilter
	if filter.FromDate, err = parseOptionalTimeQuery(c, "from_date", false); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.ToDate, err = parseOptionalTimeQuery(c, "to_date", true); err != nil {
		respondWithError(c, err)
		return
	}
	if v := c.Query("type"); v != "" {
		t := models.TransactionType(strings.ToUpper(v))
		if !t.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be INCOME or EXPENSE"))
			return
		}
		filter.Type = &t
	}
	if v := c.Query("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := c.Query("budget_id"); v != "" {
		filter.BudgetID = &v
	}

	result, err := h.transactionService.ListTransactions(page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction handles retrieving a specific transaction.
// @Summary     Get transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// GetTransactionsByType handles listing transactions of one type.
// @Summary     Get transactions by type
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       type path string true "INCOME or EXPENSE"
// @Success     200 {array} models.Transaction "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid type"
// @Router      /transactions/type/{type} [get]
func (h *TransactionHandler) GetTransactionsByType(c *gin.Context) {
	txType, err := pathTransactionType(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.GetTransactionsByType(txType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetTransactionsByCategory handles listing the transactions of a category.
// @Summary     Get transactions by category
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       categoryId path string true "Category ID"
// @Success     200 {array} models.Transaction "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid category ID"
// @Router      /transactions/category/{categoryId} [get]
func (h *TransactionHandler) GetTransactionsByCategory(c *gin.Context) {
	categoryID, err := parsePathID(c, "categoryId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.GetTransactionsByCategory(categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetTransactionsByDateRange handles listing transactions inside a window.
// @Summary     Get transactions by date range
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       start query string true "Start (RFC 3339 or YYYY-MM-DD)"
// @Param       end   query string true "End, inclusive (RFC 3339 or YYYY-MM-DD)"
// @Success     200 {array} models.Transaction "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid window"
// @Router      /transactions/date-range [get]
func (h *TransactionHandler) GetTransactionsByDateRange(c *gin.Context) {
	start, end, err := windowQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.GetTransactionsByDateRange(start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetSumByType handles totalling all transactions of a type.
// @Summary     Sum by type
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       type path string true "INCOME or EXPENSE"
// @Success     200 {object} SumResponse "Total"
// @Failure     400 {object} ErrorResponse "Invalid type"
// @Router      /transactions/sum/type/{type} [get]
func (h *TransactionHandler) GetSumByType(c *gin.Context) {
	txType, err := pathTransactionType(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sum, err := h.transactionService.SumByType(txType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SumResponse{Sum: sum})
}

// GetSumByTypeAndDateRange handles totalling a type inside a window.
// @Summary     Sum by type and date range
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       type  path  string true "INCOME or EXPENSE"
// @Param       start query string true "Start (RFC 3339 or YYYY-MM-DD)"
// @Param       end   query string true "End, inclusive (RFC 3339 or YYYY-MM-DD)"
// @Success     200 {object} SumResponse "Total"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /transactions/sum/type/{type}/date-range [get]
func (h *TransactionHandler) GetSumByTypeAndDateRange(c *gin.Context) {
	txType, err := pathTransactionType(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	start, end, err := windowQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sum, err := h.transactionService.SumByTypeAndDateRange(txType, start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SumResponse{Sum: sum})
}

// GetSumByCategoryAndDateRange handles totalling a category inside a window.
// @Summary     Sum by category and date range
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       categoryId path  string true "Category ID"
// @Param       start      query string true "Start (RFC 3339 or YYYY-MM-DD)"
// @Param       end        query string true "End, inclusive (RFC 3339 or YYYY-MM-DD)"
// @Success     200 {object} SumResponse "Total"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /transactions/sum/category/{categoryId}/date-range [get]
func (h *TransactionHandler) GetSumByCategoryAndDateRange(c *gin.Context) {
	categoryID, err := parsePathID(c, "categoryId")
	if err != nil {
		respondWithError(c, err)
		return
	}
	start, end, err := windowQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sum, err := h.transactionService.SumByCategoryAndDateRange(categoryID, start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SumResponse{Sum: sum})
}

// UpdateTransaction handles updating a transaction.
// @Summary     Update transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to change"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction, category or budget not found"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(transactionID, services.TransactionUpdate{
		Amount:      req.Amount,
		Description: req.Description,
		Timestamp:   req.Timestamp,
		CategoryID:  req.CategoryID,
		Type:        req.Type,
		BudgetID:    req.BudgetID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("UPDATE_TRANSACTION", "transaction", transactionID, c.ClientIP(),
		map[string]interface{}{"amount": transaction.Amount.String(), "type": transaction.Type})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles deleting a transaction.
// @Summary     Delete transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("DELETE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

func pathTransactionType(c *gin.Context) (models.TransactionType, error) {
	t := models.TransactionType(strings.ToUpper(c.Param("type")))
	if !t.Valid() {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be INCOME or EXPENSE")
	}
	return t, nil
}

// windowQuery reads the start and end query parameters of a date range.
func windowQuery(c *gin.Context) (time.Time, time.Time, error) {
	start, err := parseTimeQuery(c, "start", false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseTimeQuery(c, "end", true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "end must not be before start")
	}
	return start, end, nil
}
