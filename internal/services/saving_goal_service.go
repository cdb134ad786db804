package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/keylock"
	"finmanager/internal/models"
	"finmanager/internal/pagination"
)

// upcomingHorizonMonths is how far ahead a target date may lie for a goal to
// count as upcoming.
const upcomingHorizonMonths = 3

var cent = decimal.New(1, -2)

// savingGoalService handles saving goals and their contributions.
type savingGoalService struct {
	db    *gorm.DB
	locks keylock.Map
	now   func() time.Time
}

// NewSavingGoalService creates a new SavingGoalServicer.
func NewSavingGoalService(db *gorm.DB) SavingGoalServicer {
	return &savingGoalService{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreateSavingGoal creates a goal with a zero current amount.
func (s *savingGoalService) CreateSavingGoal(input SavingGoalInput) (*models.SavingGoal, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "saving goal name is required")
	}
	if input.TargetAmount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must not be negative")
	}
	if input.TargetDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target date is required")
	}

	start := models.TruncateDay(s.now())
	if input.StartDate != nil && !input.StartDate.IsZero() {
		start = models.TruncateDay(*input.StartDate)
	}

	if err := s.ensureNameFree(name, ""); err != nil {
		return nil, err
	}

	goal := &models.SavingGoal{
		Name:          name,
		Description:   input.Description,
		TargetAmount:  input.TargetAmount,
		CurrentAmount: decimal.Zero,
		StartDate:     start,
		TargetDate:    models.TruncateDay(input.TargetDate),
	}

	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// ListSavingGoals returns a paginated list of goals, nearest target first.
func (s *savingGoalService) ListSavingGoals(page pagination.PageRequest) (*pagination.PageResponse[models.SavingGoal], error) {
	result, err := pagination.Find[models.SavingGoal](s.db.Model(&models.SavingGoal{}), page, "target_date")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetAllSavingGoals returns every goal, nearest target first.
func (s *savingGoalService) GetAllSavingGoals() ([]models.SavingGoal, error) {
	var goals []models.SavingGoal
	if err := s.db.Order("target_date").Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goals, nil
}

// GetSavingGoalByID retrieves a goal by ID.
func (s *savingGoalService) GetSavingGoalByID(goalID string) (*models.SavingGoal, error) {
	return findSavingGoal(s.db, goalID)
}

// GetUpcomingGoals returns goals whose target date falls before three months
// from today. Goals already past their target date are included.
func (s *savingGoalService) GetUpcomingGoals() ([]models.SavingGoal, error) {
	horizon := models.TruncateDay(s.now()).AddDate(0, upcomingHorizonMonths, 0)

	var goals []models.SavingGoal
	if err := s.db.Where("target_date < ?", horizon).Order("target_date").Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goals, nil
}

// UpdateSavingGoal applies the non-nil fields of update to a goal.
func (s *savingGoalService) UpdateSavingGoal(goalID string, update SavingGoalUpdate) (*models.SavingGoal, error) {
	goal, err := s.GetSavingGoalByID(goalID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "saving goal name is required")
		}
		if name != goal.Name {
			if err := s.ensureNameFree(name, goalID); err != nil {
				return nil, err
			}
		}
		updates["name"] = name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.TargetAmount != nil {
		if update.TargetAmount.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must not be negative")
		}
		updates["target_amount"] = *update.TargetAmount
	}
	if update.StartDate != nil && !update.StartDate.IsZero() {
		updates["start_date"] = models.TruncateDay(*update.StartDate)
	}
	if update.TargetDate != nil && !update.TargetDate.IsZero() {
		updates["target_date"] = models.TruncateDay(*update.TargetDate)
	}

	if len(updates) > 0 {
		if err := s.db.Model(goal).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetSavingGoalByID(goalID)
}

// DeleteSavingGoal removes a goal together with its contributions.
func (s *savingGoalService) DeleteSavingGoal(goalID string) error {
	goal, err := s.GetSavingGoalByID(goalID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(goalID)
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("saving_goal_id = ?", goalID).Delete(&models.SavingContribution{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(goal).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetProgress returns the share of the target already saved, in percent.
func (s *savingGoalService) GetProgress(goalID string) (int64, error) {
	goal, err := s.GetSavingGoalByID(goalID)
	if err != nil {
		return 0, err
	}
	return goalProgress(goal), nil
}

// GetRecommendedMonthlyContribution returns how much to put aside each month
// to reach the target on time.
func (s *savingGoalService) GetRecommendedMonthlyContribution(goalID string) (decimal.Decimal, error) {
	goal, err := s.GetSavingGoalByID(goalID)
	if err != nil {
		return decimal.Zero, err
	}
	return recommendedMonthly(goal, models.TruncateDay(s.now())), nil
}

// AddContribution records a contribution and adds its amount to the goal in
// one database transaction. Contributions to the same goal are serialized.
func (s *savingGoalService) AddContribution(goalID string, amount decimal.Decimal, date *time.Time, description *string) (*models.SavingContribution, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "contribution amount must be positive")
	}

	day := models.TruncateDay(s.now())
	if date != nil && !date.IsZero() {
		day = models.TruncateDay(*date)
	}

	unlock := s.locks.Lock(goalID)
	defer unlock()

	var contribution *models.SavingContribution
	err := s.db.Transaction(func(tx *gorm.DB) error {
		goal, err := findSavingGoal(tx, goalID)
		if err != nil {
			return err
		}

		contribution = &models.SavingContribution{
			SavingGoalID: goalID,
			Amount:       amount,
			Date:         day,
			Description:  description,
		}
		if err := tx.Create(contribution).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Model(goal).Update("current_amount", goal.CurrentAmount.Add(amount)).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contribution, nil
}

// GetContributions returns a goal's contributions, oldest first.
func (s *savingGoalService) GetContributions(goalID string) ([]models.SavingContribution, error) {
	if _, err := s.GetSavingGoalByID(goalID); err != nil {
		return nil, err
	}

	var contributions []models.SavingContribution
	if err := s.db.Where("saving_goal_id = ?", goalID).Order("date, created_at").Find(&contributions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return contributions, nil
}

func (s *savingGoalService) ensureNameFree(name, exceptID string) error {
	query := s.db.Model(&models.SavingGoal{}).Where("name = ?", name)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.WithMessage(apperrors.ErrDuplicateSavingGoal, "Saving goal with name '"+name+"' already exists")
	}
	return nil
}

func findSavingGoal(db *gorm.DB, goalID string) (*models.SavingGoal, error) {
	var goal models.SavingGoal
	if err := db.Where("id = ?", goalID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(apperrors.ErrSavingGoalNotFound, "Saving goal", goalID)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

// goalProgress rounds current/target half-up to two places and only then
// scales to percent, so 0.666 reports 67 and 0.994 reports 99.
func goalProgress(goal *models.SavingGoal) int64 {
	if goal.TargetAmount.IsZero() {
		return 0
	}
	return goal.CurrentAmount.DivRound(goal.TargetAmount, 2).Mul(hundred).IntPart()
}

// recommendedMonthly spreads the remaining amount over the whole months left
// until the target date, rounding up to the cent. Without a whole month left
// the full remainder is due.
func recommendedMonthly(goal *models.SavingGoal, today time.Time) decimal.Decimal {
	remaining := goal.Remaining()

	target := models.TruncateDay(goal.TargetDate)
	if target.Before(today) {
		return remaining
	}

	months := wholeMonthsBetween(today, target)
	if months <= 0 {
		return remaining
	}

	q, r := remaining.QuoRem(decimal.NewFromInt(int64(months)), 2)
	if r.IsPositive() {
		q = q.Add(cent)
	}
	return q
}

// wholeMonthsBetween counts complete calendar months from from to to. A month
// is complete once to's day of month reaches from's.
func wholeMonthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if months > 0 && to.Day() < from.Day() {
		months--
	} else if months < 0 && to.Day() > from.Day() {
		months++
	}
	return months
}
