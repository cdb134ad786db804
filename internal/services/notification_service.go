package services

import (
	"context"
	"fmt"
	"time"

	"finmanager/internal/logger"
	"finmanager/internal/models"
	"finmanager/internal/notification"
)

// goalReminderProgressCeiling is the progress below which a goal close to
// its target date gets a reminder.
const goalReminderProgressCeiling = 80

// NotificationOptions tunes a notification service.
type NotificationOptions struct {
	// Dedupe skips a scan notification when an unread one with the same
	// type and related id is already in the log.
	Dedupe bool
	// Publisher, when set, receives every appended notification.
	Publisher notification.Publisher
}

// notificationService owns the scans that feed the notification log.
type notificationService struct {
	store   *notification.Store
	budgets BudgetServicer
	goals   SavingGoalServicer
	opts    NotificationOptions
	now     func() time.Time
}

// NewNotificationService creates a new NotificationServicer writing to store.
func NewNotificationService(store *notification.Store, budgets BudgetServicer, goals SavingGoalServicer, opts NotificationOptions) NotificationServicer {
	return &notificationService{
		store:   store,
		budgets: budgets,
		goals:   goals,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Add appends n to the log as is.
func (s *notificationService) Add(n notification.Notification) notification.Notification {
	stored := s.store.Append(n)
	s.publish(context.Background(), stored)
	return stored
}

// GetAll returns every notification in insertion order.
func (s *notificationService) GetAll() []notification.Notification {
	return s.store.All()
}

// GetUnread returns the unread notifications in insertion order.
func (s *notificationService) GetUnread() []notification.Notification {
	return s.store.Unread()
}

// MarkAsRead flags one notification as read. Unknown ids are ignored.
func (s *notificationService) MarkAsRead(id string) {
	s.store.MarkRead(id)
}

// MarkAllAsRead flags every notification as read.
func (s *notificationService) MarkAllAsRead() {
	s.store.MarkAllRead()
}

// CheckBudgetThresholds notifies about every current budget whose spend has
// reached its threshold and returns how many notifications were appended.
func (s *notificationService) CheckBudgetThresholds(ctx context.Context) (int, error) {
	budgets, err := s.budgets.GetCurrentBudgets(s.now())
	if err != nil {
		return 0, err
	}

	appended := 0
	for _, budget := range budgets {
		if err := ctx.Err(); err != nil {
			return appended, err
		}

		pct, err := s.budgets.GetSpendPercentage(budget.ID)
		if err != nil {
			return appended, err
		}
		if pct < int64(budget.ThresholdPercentage) {
			continue
		}

		id := budget.ID
		if s.append(ctx, notification.Notification{
			Title:     "Budget threshold exceeded",
			Message:   fmt.Sprintf("Your budget '%s' has reached %d%% of the allocated amount.", budget.Name, pct),
			Type:      notification.TypeBudgetThreshold,
			RelatedID: &id,
		}) {
			appended++
		}
	}

	logger.Get().Infow("budget threshold check finished", "budgets", len(budgets), "notifications", appended)
	return appended, nil
}

// CheckSavingGoalContributions reminds about unfinished goals that are
// behind and due within the upcoming horizon.
func (s *notificationService) CheckSavingGoalContributions(ctx context.Context) (int, error) {
	goals, err := s.goals.GetAllSavingGoals()
	if err != nil {
		return 0, err
	}

	horizon := models.TruncateDay(s.now()).AddDate(0, upcomingHorizonMonths, 0)
	appended := 0
	for i := range goals {
		if err := ctx.Err(); err != nil {
			return appended, err
		}

		goal := &goals[i]
		progress := goalProgress(goal)
		if progress >= goalReminderProgressCeiling || !goal.TargetDate.Before(horizon) {
			continue
		}

		monthly, err := s.goals.GetRecommendedMonthlyContribution(goal.ID)
		if err != nil {
			return appended, err
		}

		id := goal.ID
		if s.append(ctx, notification.Notification{
			Title: "Saving goal reminder",
			Message: fmt.Sprintf("Your saving goal '%s' is at %d%%. Consider contributing %s per month to reach your target.",
				goal.Name, progress, monthly.StringFixed(2)),
			Type:      notification.TypeSavingGoalReminder,
			RelatedID: &id,
		}) {
			appended++
		}
	}

	logger.Get().Infow("saving goal check finished", "goals", len(goals), "notifications", appended)
	return appended, nil
}

// append stores n, honoring the dedupe option, and reports whether it was
// added.
func (s *notificationService) append(ctx context.Context, n notification.Notification) bool {
	var stored notification.Notification
	if s.opts.Dedupe {
		var added bool
		if stored, added = s.store.AppendUnlessUnread(n); !added {
			return false
		}
	} else {
		stored = s.store.Append(n)
	}

	logger.Get().Infow("notification appended", "id", stored.ID, "type", stored.Type, "title", stored.Title)
	s.publish(ctx, stored)
	return true
}

func (s *notificationService) publish(ctx context.Context, n notification.Notification) {
	if s.opts.Publisher == nil {
		return
	}
	if err := s.opts.Publisher.Publish(ctx, n); err != nil {
		logger.Get().Warnw("failed to publish notification", "id", n.ID, "type", n.Type, "error", err)
	}
}
