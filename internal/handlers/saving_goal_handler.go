package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/services"
)

// SavingGoalHandler handles saving-goal requests.
type SavingGoalHandler struct {
	goalService  services.SavingGoalServicer
	auditService services.AuditServicer
}

// NewSavingGoalHandler creates a new SavingGoalHandler.
func NewSavingGoalHandler(goalService services.SavingGoalServicer, auditService services.AuditServicer) *SavingGoalHandler {
	return &SavingGoalHandler{goalService: goalService, auditService: auditService}
}

// CreateSavingGoalRequest represents the request payload for creating a goal.
type CreateSavingGoalRequest struct {
	Name         string           `json:"name" binding:"required,min=1,max=100"`
	Description  *string          `json:"description" binding:"omitempty,max=500"`
	TargetAmount *decimal.Decimal `json:"target_amount" binding:"required" swaggertype:"string"`
	StartDate    *time.Time       `json:"start_date"`
	TargetDate   time.Time        `json:"target_date" binding:"required"`
}

// UpdateSavingGoalRequest represents the request payload for updating a goal.
// The current amount is not editable; use contributions.
type UpdateSavingGoalRequest struct {
	Name         *string          `json:"name" binding:"omitempty,min=1,max=100"`
	Description  *string          `json:"description" binding:"omitempty,max=500"`
	TargetAmount *decimal.Decimal `json:"target_amount" swaggertype:"string"`
	StartDate    *time.Time       `json:"start_date"`
	TargetDate   *time.Time       `json:"target_date"`
}

// AddContributionRequest represents the request payload for a contribution.
type AddContributionRequest struct {
	Amount      *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string"`
	Date        *time.Time       `json:"date"`
	Description *string          `json:"description" binding:"omitempty,max=255"`
}

// ProgressResponse carries a goal's progress percentage.
type ProgressResponse struct {
	GoalID   string `json:"goal_id"`
	Progress int64  `json:"progress"`
}

// MonthlyContributionResponse carries the recommended monthly contribution.
type MonthlyContributionResponse struct {
	GoalID              string          `json:"goal_id"`
	MonthlyContribution decimal.Decimal `json:"monthly_contribution" swaggertype:"string"`
}

// CreateSavingGoal handles the creation of a new goal.
// @Summary     Create a saving goal
// @Tags        saving-goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateSavingGoalRequest true "Goal details"
// @Success     201 {object} models.SavingGoal "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /saving-goals [post]
func (h *SavingGoalHandler) CreateSavingGoal(c *gin.Context) {
	var req CreateSavingGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.CreateSavingGoal(services.SavingGoalInput{
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: *req.TargetAmount,
		StartDate:    req.StartDate,
		TargetDate:   req.TargetDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("CREATE_SAVING_GOAL", "saving_goal", goal.ID, c.ClientIP(),
		map[string]interface{}{"name": goal.Name, "target_amount": goal.TargetAmount.String()})

	c.JSON(http.StatusCreated, gin.H{"saving_goal": goal})
}

// GetSavingGoals handles listing goals.
// @Summary     Get saving goals
// @Tags        saving-goals
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.SavingGoal] "Paginated goals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /saving-goals [get]
func (h *SavingGoalHandler) GetSavingGoals(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.goalService.ListSavingGoals(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetUpcomingGoals handles listing goals due within three months.
// @Summary     Get upcoming saving goals
// @Tags        saving-goals
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.SavingGoal "Goals"
// @Router      /saving-goals/upcoming [get]
func (h *SavingGoalHandler) GetUpcomingGoals(c *gin.Context) {
	goals, err := h.goalService.GetUpcomingGoals()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"saving_goals": goals})
}

// GetSavingGoal handles retrieving a specific goal.
// @Summary     Get saving goal by ID
// @Tags        saving-goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} models.SavingGoal "Goal details"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /saving-goals/{id} [get]
func (h *SavingGoalHandler) GetSavingGoal(c *gin.Context) {
	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.GetSavingGoalByID(goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"saving_goal": goal})
}

// GetProgress handles computing a goal's progress.
// @Summary     Get saving goal progress
// @Tags        saving-goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} ProgressResponse "Whole percentage, may exceed 100"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /saving-goals/{id}/progress [get]
func (h *SavingGoalHandler) GetProgress(c *gin.Context) {
	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.goalService.GetProgress(goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ProgressResponse{GoalID: goalID, Progress: progress})
}

// GetMonthlyContribution handles computing the recommended monthly amount.
// @Summary     Get recommended monthly contribution
// @Tags        saving-goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} MonthlyContributionResponse "Amount per month"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /saving-goals/{id}/monthly-contribution [get]
func (h *SavingGoalHandler) GetMonthlyContribution(c *gin.Context) {
	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	monthly, err := h.goalService.GetRecommendedMonthlyContribution(goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MonthlyContributionResponse{GoalID: goalID, MonthlyContribution: monthly})
}

// GetContributions handles listing a goal's contributions.
// @Summary     Get saving goal contributions
// @Tags        saving-goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {array} models.SavingContribution "Contributions"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /saving-goals/{id}/contributions [get]
func (h *SavingGoalHandler) GetContributions(c *gin.Context) {
	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	contributions, err := h.goalService.GetContributions(goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contributions": contributions})
}

// AddContribution handles recording money put towards a goal.
// @Summary     Add a contribution
// @Tags        saving-goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Goal ID"
// @Param       request body AddContributionRequest true "Contribution"
// @Success     201 {object} models.SavingContribution "Contribution recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /saving-goals/{id}/contributions [post]
func (h *SavingGoalHandler) AddContribution(c *gin.Context) {
	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	contribution, err := h.goalService.AddContribution(goalID, *req.Amount, req.Date, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("ADD_CONTRIBUTION", "saving_goal", goalID, c.ClientIP(),
		map[string]interface{}{"contribution_id": contribution.ID, "amount": contribution.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"contribution": contribution})
}

// UpdateSavingGoal handles updating a goal.
// @Summary     Update saving goal
// @Tags        saving-goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                  true "Goal ID"
// @Param       request body UpdateSavingGoalRequest true "Fields to change"
// @Success     200 {object} models.SavingGoal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /saving-goals/{id} [put]
func (h *SavingGoalHandler) UpdateSavingGoal(c *gin.Context) {
	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSavingGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.UpdateSavingGoal(goalID, services.SavingGoalUpdate{
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		StartDate:    req.StartDate,
		TargetDate:   req.TargetDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("UPDATE_SAVING_GOAL", "saving_goal", goalID, c.ClientIP(),
		map[string]interface{}{"name": goal.Name, "target_amount": goal.TargetAmount.String()})

	c.JSON(http.StatusOK, gin.H{"saving_goal": goal})
}

// DeleteSavingGoal handles deleting a goal and its contributions.
// @Summary     Delete saving goal
// @Tags        saving-goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} MessageResponse "Goal deleted"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /saving-goals/{id} [delete]
func (h *SavingGoalHandler) DeleteSavingGoal(c *gin.Context) {
	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteSavingGoal(goalID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log("DELETE_SAVING_GOAL", "saving_goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Saving goal deleted successfully"})
}
