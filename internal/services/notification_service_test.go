package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"finmanager/internal/models"
	"finmanager/internal/notification"
	"finmanager/internal/testutil"
)

type recordingPublisher struct {
	mu   sync.Mutex
	got  []notification.Notification
	fail bool
}

func (p *recordingPublisher) Publish(_ context.Context, n notification.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, n)
	if p.fail {
		return errors.New("broker unavailable")
	}
	return nil
}

// newNotificationFixture freezes every clock at 2024-03-15 09:00 UTC and
// seeds one exceeded current budget and one lagging goal due within three
// months.
func newNotificationFixture(t *testing.T, opts NotificationOptions) (*notificationService, *models.Budget, *models.SavingGoal, func()) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	now := func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }

	budgets := NewBudgetService(db)
	goals := NewSavingGoalService(db)
	goals.(*savingGoalService).now = now

	svc := NewNotificationService(notification.NewStore(), budgets, goals, opts).(*notificationService)
	svc.now = now

	food := testutil.CreateTestCategoryNamed(t, db, "Food", models.CategoryTypeExpense)
	income := testutil.CreateTestCategoryNamed(t, db, "Salary", models.CategoryTypeIncome)

	exceeded := testutil.CreateTestBudget(t, db, food.ID, "100", testutil.Day(2024, 3, 1), testutil.Day(2024, 3, 31))
	testutil.CreateTestTransaction(t, db, food.ID, models.TransactionTypeExpense, "85", testutil.Day(2024, 3, 2), &exceeded.ID)
	// income does not count towards spend
	testutil.CreateTestTransaction(t, db, income.ID, models.TransactionTypeIncome, "500", testutil.Day(2024, 3, 2), &exceeded.ID)

	underBudget := testutil.CreateTestBudget(t, db, food.ID, "100", testutil.Day(2024, 3, 1), testutil.Day(2024, 3, 31))
	testutil.CreateTestTransaction(t, db, food.ID, models.TransactionTypeExpense, "50", testutil.Day(2024, 3, 3), &underBudget.ID)

	pastBudget := testutil.CreateTestBudget(t, db, food.ID, "10", testutil.Day(2024, 2, 1), testutil.Day(2024, 2, 29))
	testutil.CreateTestTransaction(t, db, food.ID, models.TransactionTypeExpense, "90", testutil.Day(2024, 2, 3), &pastBudget.ID)

	lagging := testutil.CreateTestSavingGoal(t, db, "1000", "100", testutil.Day(2024, 5, 1))
	testutil.CreateTestSavingGoal(t, db, "1000", "850", testutil.Day(2024, 5, 1))
	testutil.CreateTestSavingGoal(t, db, "1000", "1000", testutil.Day(2024, 4, 1))
	testutil.CreateTestSavingGoal(t, db, "1000", "0", testutil.Day(2025, 1, 1))

	return svc, exceeded, lagging, func() { testutil.TeardownTestDB(t, db) }
}

func TestCheckBudgetThresholds(t *testing.T) {
	svc, exceeded, _, teardown := newNotificationFixture(t, NotificationOptions{})
	defer teardown()

	n, err := svc.CheckBudgetThresholds(context.Background())
	testutil.AssertNoError(t, err)
	if n != 1 {
		t.Fatalf("expected 1 notification, got %d", n)
	}

	all := svc.GetAll()
	if len(all) != 1 {
		t.Fatalf("expected 1 stored notification, got %d", len(all))
	}
	got := all[0]
	if got.Type != notification.TypeBudgetThreshold {
		t.Errorf("expected BUDGET_THRESHOLD, got %s", got.Type)
	}
	if got.RelatedID == nil || *got.RelatedID != exceeded.ID {
		t.Errorf("expected related id %s, got %v", exceeded.ID, got.RelatedID)
	}
	if got.Title != "Budget threshold exceeded" {
		t.Errorf("unexpected title %q", got.Title)
	}
	want := "Your budget '" + exceeded.Name + "' has reached 85% of the allocated amount."
	if got.Message != want {
		t.Errorf("expected message %q, got %q", want, got.Message)
	}

	t.Run("repeated_scan_appends_again", func(t *testing.T) {
		n, err := svc.CheckBudgetThresholds(context.Background())
		testutil.AssertNoError(t, err)
		if n != 1 || len(svc.GetAll()) != 2 {
			t.Errorf("expected a second notification, got n=%d total=%d", n, len(svc.GetAll()))
		}
	})
}

func TestCheckBudgetThresholds_Dedupe(t *testing.T) {
	svc, _, _, teardown := newNotificationFixture(t, NotificationOptions{Dedupe: true})
	defer teardown()

	for i := 0; i < 2; i++ {
		_, err := svc.CheckBudgetThresholds(context.Background())
		testutil.AssertNoError(t, err)
	}
	if len(svc.GetAll()) != 1 {
		t.Fatalf("expected 1 notification while unread, got %d", len(svc.GetAll()))
	}

	svc.MarkAllAsRead()
	n, err := svc.CheckBudgetThresholds(context.Background())
	testutil.AssertNoError(t, err)
	if n != 1 {
		t.Errorf("expected a fresh notification once the previous one is read, got %d", n)
	}
}

func TestCheckBudgetThresholds_CancelledContext(t *testing.T) {
	svc, _, _, teardown := newNotificationFixture(t, NotificationOptions{})
	defer teardown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CheckBudgetThresholds(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(svc.GetAll()) != 0 {
		t.Error("no notification should be appended after cancellation")
	}
}

func TestCheckSavingGoalContributions(t *testing.T) {
	svc, _, lagging, teardown := newNotificationFixture(t, NotificationOptions{})
	defer teardown()

	n, err := svc.CheckSavingGoalContributions(context.Background())
	testutil.AssertNoError(t, err)
	if n != 1 {
		t.Fatalf("expected only the lagging goal to be reminded, got %d", n)
	}

	got := svc.GetUnread()[0]
	if got.Type != notification.TypeSavingGoalReminder {
		t.Errorf("expected SAVING_GOAL_REMINDER, got %s", got.Type)
	}
	if got.RelatedID == nil || *got.RelatedID != lagging.ID {
		t.Errorf("expected related id %s", lagging.ID)
	}
	// 900 remaining over one whole month
	want := "Your saving goal '" + lagging.Name + "' is at 10%. Consider contributing 900.00 per month to reach your target."
	if got.Message != want {
		t.Errorf("expected message %q, got %q", want, got.Message)
	}
}

func TestNotificationLog(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _, _, teardown := newNotificationFixture(t, NotificationOptions{Publisher: pub})
	defer teardown()

	general := svc.Add(notification.Notification{Title: "Welcome", Message: "hello"})
	if general.Type != notification.TypeGeneral || general.ID == "" {
		t.Errorf("expected a GENERAL notification with an id, got %+v", general)
	}

	_, err := svc.CheckBudgetThresholds(context.Background())
	testutil.AssertNoError(t, err)

	if len(pub.got) != 2 {
		t.Fatalf("expected every appended notification to be published, got %d", len(pub.got))
	}

	svc.MarkAsRead("unknown")
	svc.MarkAsRead(general.ID)
	unread := svc.GetUnread()
	if len(unread) != 1 || unread[0].Type != notification.TypeBudgetThreshold {
		t.Errorf("expected only the budget notification unread, got %+v", unread)
	}

	svc.MarkAllAsRead()
	if len(svc.GetUnread()) != 0 || len(svc.GetAll()) != 2 {
		t.Error("mark all as read must keep entries and clear the unread list")
	}
}

func TestNotificationPublishFailureIsNotSurfaced(t *testing.T) {
	pub := &recordingPublisher{fail: true}
	svc, _, _, teardown := newNotificationFixture(t, NotificationOptions{Publisher: pub})
	defer teardown()

	n, err := svc.CheckBudgetThresholds(context.Background())
	testutil.AssertNoError(t, err)
	if n != 1 || len(svc.GetAll()) != 1 {
		t.Errorf("expected the notification to be stored despite the publish error")
	}
	if len(pub.got) != 1 || !strings.HasPrefix(pub.got[0].Title, "Budget") {
		t.Errorf("expected one publish attempt, got %d", len(pub.got))
	}
}
