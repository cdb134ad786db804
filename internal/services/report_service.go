package services

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/models"
)

const isoDate = "2006-01-02"

// reportService builds financial summaries from the ledger and saving goals.
type reportService struct {
	transactions TransactionServicer
	goals        SavingGoalServicer
	now          func() time.Time
}

// NewReportService creates a new ReportServicer.
func NewReportService(transactions TransactionServicer, goals SavingGoalServicer) ReportServicer {
	return &reportService{
		transactions: transactions,
		goals:        goals,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetSummary summarizes the transactions in [start, end]. Goal progress is a
// snapshot over all goals and ignores the window.
func (s *reportService) GetSummary(start, end time.Time) (*FinancialSummary, error) {
	start, end = start.UTC(), end.UTC()
	if end.Before(start) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end must not be before start")
	}

	transactions, err := s.transactions.GetTransactionsByDateRange(start, end)
	if err != nil {
		return nil, err
	}

	totalIncome, err := s.transactions.SumByTypeAndDateRange(models.TransactionTypeIncome, start, end)
	if err != nil {
		return nil, err
	}
	totalExpenses, err := s.transactions.SumByTypeAndDateRange(models.TransactionTypeExpense, start, end)
	if err != nil {
		return nil, err
	}

	goals, err := s.goals.GetAllSavingGoals()
	if err != nil {
		return nil, err
	}
	progress := make(map[string]int64, len(goals))
	for i := range goals {
		progress[goals[i].Name] = goalProgress(&goals[i])
	}

	return &FinancialSummary{
		TotalIncome:        totalIncome,
		TotalExpenses:      totalExpenses,
		Balance:            totalIncome.Sub(totalExpenses),
		IncomeByCategory:   amountsByCategory(transactions, models.TransactionTypeIncome),
		ExpensesByCategory: amountsByCategory(transactions, models.TransactionTypeExpense),
		SavingGoalProgress: progress,
		PeriodStart:        start.Format(isoDate),
		PeriodEnd:          end.Format(isoDate),
	}, nil
}

// GetCurrentMonthSummary covers the first of this month up to now.
func (s *reportService) GetCurrentMonthSummary() (*FinancialSummary, error) {
	now := s.now()
	return s.GetSummary(firstOfMonth(now), now)
}

// GetLastMonthSummary covers the whole previous calendar month, ending at
// 23:59:59 on its last day.
func (s *reportService) GetLastMonthSummary() (*FinancialSummary, error) {
	thisMonth := firstOfMonth(s.now())
	start := thisMonth.AddDate(0, -1, 0)
	end := thisMonth.AddDate(0, 0, -1).Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	return s.GetSummary(start, end)
}

// GetLastNDaysSummary covers midnight n days ago up to now.
func (s *reportService) GetLastNDaysSummary(days int) (*FinancialSummary, error) {
	if days < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "days must not be negative")
	}
	now := s.now()
	return s.GetSummary(models.TruncateDay(now.AddDate(0, 0, -days)), now)
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// amountsByCategory totals the transactions of one type per category name.
func amountsByCategory(transactions []models.Transaction, txType models.TransactionType) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range transactions {
		if tx.Type != txType {
			continue
		}
		name := tx.CategoryID
		if tx.Category != nil {
			name = tx.Category.Name
		}
		totals[name] = totals[name].Add(tx.Amount)
	}
	return totals
}
