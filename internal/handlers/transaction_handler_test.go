package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/models"
	"finmanager/internal/pagination"
	"finmanager/internal/services"
)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	r.POST("/transactions", handler.CreateTransaction)
	r.GET("/transactions", handler.GetTransactions)
	r.GET("/transactions/type/:type", handler.GetTransactionsByType)
	r.GET("/transactions/category/:categoryId", handler.GetTransactionsByCategory)
	r.GET("/transactions/date-range", handler.GetTransactionsByDateRange)
	r.GET("/transactions/sum/type/:type", handler.GetSumByType)
	r.GET("/transactions/sum/type/:type/date-range", handler.GetSumByTypeAndDateRange)
	r.GET("/transactions/sum/category/:categoryId/date-range", handler.GetSumByCategoryAndDateRange)
	r.GET("/transactions/:id", handler.GetTransaction)
	r.PUT("/transactions/:id", handler.UpdateTransaction)
	r.DELETE("/transactions/:id", handler.DeleteTransaction)
	return r
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.TransactionInput
		svc := &mockTransactionService{
			createTransactionFn: func(input services.TransactionInput) (*models.Transaction, error) {
				got = input
				return &models.Transaction{
					Base:       models.Base{ID: transactionID},
					Amount:     input.Amount,
					CategoryID: input.CategoryID,
					Type:       input.Type,
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(svc, audit))

		rec := doRequest(r, "POST", "/transactions",
			`{"amount":"42.10","description":"Lunch","category_id":"`+categoryID+`","type":"EXPENSE"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["type"] != "EXPENSE" {
			t.Errorf("expected EXPENSE, got %v", tx["type"])
		}
		if !got.Amount.Equal(decimal.RequireFromString("42.1")) {
			t.Errorf("expected 42.10, got %s", got.Amount)
		}
		if got.Timestamp != nil {
			t.Errorf("expected nil timestamp, got %v", got.Timestamp)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "CREATE_TRANSACTION" {
			t.Errorf("expected CREATE_TRANSACTION audit entry, got %v", audit.entries)
		}
	})

	t.Run("passes the timestamp and budget through", func(t *testing.T) {
		var got services.TransactionInput
		svc := &mockTransactionService{
			createTransactionFn: func(input services.TransactionInput) (*models.Transaction, error) {
				got = input
				return &models.Transaction{Base: models.Base{ID: transactionID}}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"amount":10,"category_id":"`+categoryID+`","type":"INCOME","timestamp":"2024-02-01T08:30:00Z","budget_id":"`+budgetID+`"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Timestamp == nil || !got.Timestamp.Equal(time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC)) {
			t.Errorf("unexpected timestamp %v", got.Timestamp)
		}
		if got.BudgetID == nil || *got.BudgetID != budgetID {
			t.Errorf("expected budget %s, got %v", budgetID, got.BudgetID)
		}
	})

	t.Run("returns 400 on unknown type", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"amount":"10","category_id":"`+categoryID+`","type":"TRANSFER"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on non-numeric amount", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"amount":"ten","category_id":"`+categoryID+`","type":"EXPENSE"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 on unknown budget", func(t *testing.T) {
		svc := &mockTransactionService{
			createTransactionFn: func(_ services.TransactionInput) (*models.Transaction, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"amount":"10","category_id":"`+categoryID+`","type":"EXPENSE","budget_id":"`+budgetID+`"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})
}

func TestTransactionHandler_GetTransactions(t *testing.T) {
	t.Run("builds the filter from the query", func(t *testing.T) {
		var got services.TransactionFilter
		svc := &mockTransactionService{
			listTransactionsFn: func(page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				got = filter
				resp := pagination.NewPageResponse([]models.Transaction{}, page.Page, page.PageSize, 0)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions?from_date=2024-01-01&to_date=2024-01-31&type=expense&category_id="+categoryID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Type == nil || *got.Type != models.TransactionTypeExpense {
			t.Errorf("expected EXPENSE filter, got %v", got.Type)
		}
		if got.CategoryID == nil || *got.CategoryID != categoryID {
			t.Errorf("expected category filter, got %v", got.CategoryID)
		}
		wantTo := time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC)
		if got.ToDate == nil || !got.ToDate.Equal(wantTo) {
			t.Errorf("expected to_date %v, got %v", wantTo, got.ToDate)
		}
		if got.BudgetID != nil {
			t.Errorf("expected no budget filter, got %v", *got.BudgetID)
		}
	})

	t.Run("returns 400 on invalid type", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions?type=refund", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on oversized page", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions?page_size=1000", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_Lookups(t *testing.T) {
	t.Run("by type is case-insensitive", func(t *testing.T) {
		var got models.TransactionType
		svc := &mockTransactionService{
			getByTypeFn: func(tt models.TransactionType) ([]models.Transaction, error) {
				got = tt
				return []models.Transaction{{Base: models.Base{ID: transactionID}}}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/type/income", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got != models.TransactionTypeIncome {
			t.Errorf("expected INCOME, got %s", got)
		}
		if n := len(parseJSON(t, rec)["transactions"].([]interface{})); n != 1 {
			t.Errorf("expected 1 transaction, got %d", n)
		}
	})

	t.Run("by category rejects a malformed id", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/category/food", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("date range requires both ends", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/date-range?start=2024-01-01", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("date range rejects an inverted window", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/date-range?start=2024-02-01&end=2024-01-01", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("date range accepts a single day", func(t *testing.T) {
		var start, end time.Time
		svc := &mockTransactionService{
			getByDateRangeFn: func(s, e time.Time) ([]models.Transaction, error) {
				start, end = s, e
				return nil, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/date-range?start=2024-01-05&end=2024-01-05", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if end.Sub(start) != 24*time.Hour-time.Nanosecond {
			t.Errorf("expected a full-day window, got %v to %v", start, end)
		}
	})
}

func TestTransactionHandler_Sums(t *testing.T) {
	svc := &mockTransactionService{
		sumByTypeFn: func(_ models.TransactionType) (decimal.Decimal, error) {
			return decimal.RequireFromString("123.45"), nil
		},
		sumByTypeAndDateRangeFn: func(_ models.TransactionType, _, _ time.Time) (decimal.Decimal, error) {
			return decimal.RequireFromString("10"), nil
		},
		sumByCategoryFn: func(_ string, _, _ time.Time) (decimal.Decimal, error) {
			return decimal.RequireFromString("7.5"), nil
		},
	}
	r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"by type", "/transactions/sum/type/EXPENSE", "123.45"},
		{"by type and window", "/transactions/sum/type/INCOME/date-range?start=2024-01-01&end=2024-01-31", "10"},
		{"by category and window", "/transactions/sum/category/" + categoryID + "/date-range?start=2024-01-01&end=2024-01-31", "7.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(r, "GET", tt.path, "")

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := parseJSON(t, rec)["sum"]; got != tt.want {
				t.Errorf("expected sum %q, got %v", tt.want, got)
			}
		})
	}

	t.Run("rejects an unknown type", func(t *testing.T) {
		rec := doRequest(r, "GET", "/transactions/sum/type/SAVING", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("forwards an empty budget id", func(t *testing.T) {
		var got services.TransactionUpdate
		svc := &mockTransactionService{
			updateTransactionFn: func(id string, update services.TransactionUpdate) (*models.Transaction, error) {
				got = update
				return &models.Transaction{Base: models.Base{ID: id}}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/transactions/"+transactionID, `{"budget_id":"","amount":"5"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.BudgetID == nil || *got.BudgetID != "" {
			t.Errorf("expected empty budget id, got %v", got.BudgetID)
		}
		if got.Amount == nil || !got.Amount.Equal(decimal.NewFromInt(5)) {
			t.Errorf("expected amount 5, got %v", got.Amount)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockTransactionService{
			updateTransactionFn: func(_ string, _ services.TransactionUpdate) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/transactions/"+transactionID, `{"description":"x"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/transactions/"+transactionID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("returns 500 on unexpected error", func(t *testing.T) {
		svc := &mockTransactionService{
			deleteTransactionFn: func(_ string) error { return errBoom },
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/transactions/"+transactionID, "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INTERNAL_ERROR")
	})
}
