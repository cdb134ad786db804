// Package server assembles the services, the Gin router and the scheduled
// notification checks into a runnable HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"finmanager/internal/config"
	_ "finmanager/internal/docs" // registers the OpenAPI document
	"finmanager/internal/handlers"
	"finmanager/internal/logger"
	"finmanager/internal/middleware"
	"finmanager/internal/notification"
	"finmanager/internal/scheduler"
	"finmanager/internal/services"
	"finmanager/internal/validator"
)

const shutdownTimeout = 10 * time.Second

// Services bundles every service the API and the CLI talk to.
type Services struct {
	Audit         services.AuditServicer
	Categories    services.CategoryServicer
	Budgets       services.BudgetServicer
	Transactions  services.TransactionServicer
	SavingGoals   services.SavingGoalServicer
	Reports       services.ReportServicer
	Imports       services.ImportServicer
	Notifications services.NotificationServicer
}

// NewServices wires the services over db. Notifications go to store and, when
// publisher is non-nil, to the publisher as well.
func NewServices(db *gorm.DB, store *notification.Store, cfg *config.Config, publisher notification.Publisher) *Services {
	categories := services.NewCategoryService(db)
	budgets := services.NewBudgetService(db)
	transactions := services.NewTransactionService(db, budgets)
	goals := services.NewSavingGoalService(db)

	return &Services{
		Audit:        services.NewAuditService(db),
		Categories:   categories,
		Budgets:      budgets,
		Transactions: transactions,
		SavingGoals:  goals,
		Reports:      services.NewReportService(transactions, goals),
		Imports:      services.NewImportService(categories, transactions, cfg.ImportWorkers),
		Notifications: services.NewNotificationService(store, budgets, goals, services.NotificationOptions{
			Dedupe:    cfg.NotifyDedupe,
			Publisher: publisher,
		}),
	}
}

// NewRouter builds the Gin engine serving /api/v1, the health check and the
// swagger UI. Routes under /api/v1 require a bearer token when a JWT secret
// is configured.
func NewRouter(svcs *Services, cfg *config.Config) *gin.Engine {
	categoryHandler := handlers.NewCategoryHandler(svcs.Categories, svcs.Audit)
	transactionHandler := handlers.NewTransactionHandler(svcs.Transactions, svcs.Audit)
	budgetHandler := handlers.NewBudgetHandler(svcs.Budgets, svcs.Audit)
	goalHandler := handlers.NewSavingGoalHandler(svcs.SavingGoals, svcs.Audit)
	reportHandler := handlers.NewReportHandler(svcs.Reports)
	notificationHandler := handlers.NewNotificationHandler(svcs.Notifications)
	importHandler := handlers.NewImportHandler(svcs.Imports, svcs.Audit)
	auditHandler := handlers.NewAuditHandler(svcs.Audit)

	validator.Register()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())
	router.NoRoute(middleware.NoRoute())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	categories := v1.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/type/:type", categoryHandler.GetCategoriesByType)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	transactions := v1.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/type/:type", transactionHandler.GetTransactionsByType)
	transactions.GET("/category/:categoryId", transactionHandler.GetTransactionsByCategory)
	transactions.GET("/date-range", transactionHandler.GetTransactionsByDateRange)
	transactions.GET("/sum/type/:type", transactionHandler.GetSumByType)
	transactions.GET("/sum/type/:type/date-range", transactionHandler.GetSumByTypeAndDateRange)
	transactions.GET("/sum/category/:categoryId/date-range", transactionHandler.GetSumByCategoryAndDateRange)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	budgets := v1.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/current", budgetHandler.GetCurrentBudgets)
	budgets.GET("/category/:categoryId", budgetHandler.GetBudgetsByCategory)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.GET("/:id/spending-percentage", budgetHandler.GetSpendingPercentage)
	budgets.GET("/:id/threshold-exceeded", budgetHandler.GetThresholdExceeded)
	budgets.GET("/:id/transactions", budgetHandler.GetBudgetTransactions)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	goals := v1.Group("/saving-goals")
	goals.POST("", goalHandler.CreateSavingGoal)
	goals.GET("", goalHandler.GetSavingGoals)
	goals.GET("/upcoming", goalHandler.GetUpcomingGoals)
	goals.GET("/:id", goalHandler.GetSavingGoal)
	goals.GET("/:id/progress", goalHandler.GetProgress)
	goals.GET("/:id/monthly-contribution", goalHandler.GetMonthlyContribution)
	goals.GET("/:id/contributions", goalHandler.GetContributions)
	goals.POST("/:id/contributions", goalHandler.AddContribution)
	goals.PUT("/:id", goalHandler.UpdateSavingGoal)
	goals.DELETE("/:id", goalHandler.DeleteSavingGoal)

	reports := v1.Group("/reports/summary")
	reports.GET("", reportHandler.GetSummary)
	reports.GET("/current-month", reportHandler.GetCurrentMonthSummary)
	reports.GET("/last-month", reportHandler.GetLastMonthSummary)
	reports.GET("/last-days/:days", reportHandler.GetLastDaysSummary)

	notifications := v1.Group("/notifications")
	notifications.GET("", notificationHandler.GetNotifications)
	notifications.GET("/unread", notificationHandler.GetUnreadNotifications)
	notifications.PUT("/mark-all-read", notificationHandler.MarkAllAsRead)
	notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
	notifications.POST("/check-budget-thresholds", notificationHandler.CheckBudgetThresholds)
	notifications.POST("/check-saving-goals", notificationHandler.CheckSavingGoals)

	v1.POST("/import/transactions", importHandler.ImportTransactions)
	v1.GET("/audit-logs", auditHandler.GetAuditLogs)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ScheduleChecks registers the daily budget threshold scan and the weekly
// saving goal reminder scan on s.
func ScheduleChecks(s *scheduler.Scheduler, notifications services.NotificationServicer, cfg *config.Config) {
	s.Add("budget-threshold-check",
		scheduler.Daily{Hour: cfg.BudgetCheckHour},
		func(ctx context.Context) error {
			_, err := notifications.CheckBudgetThresholds(ctx)
			return err
		})
	s.Add("saving-goal-check",
		scheduler.Weekly{Weekday: cfg.GoalCheckWeekday, Hour: cfg.GoalCheckHour},
		func(ctx context.Context) error {
			_, err := notifications.CheckSavingGoalContributions(ctx)
			return err
		})
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Get().Infow("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Get().Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
