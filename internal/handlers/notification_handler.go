package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finmanager/internal/services"
)

// NotificationHandler exposes the notification log and its scans.
type NotificationHandler struct {
	notificationService services.NotificationServicer
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService services.NotificationServicer) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// CheckResponse reports how many notifications a scan appended.
type CheckResponse struct {
	Created int `json:"created"`
}

// GetNotifications handles listing every notification.
// @Summary     Get notifications
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} notification.Notification "Notifications, oldest first"
// @Router      /notifications [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.notificationService.GetAll()})
}

// GetUnreadNotifications handles listing unread notifications.
// @Summary     Get unread notifications
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} notification.Notification "Unread notifications"
// @Router      /notifications/unread [get]
func (h *NotificationHandler) GetUnreadNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.notificationService.GetUnread()})
}

// MarkAsRead handles flagging one notification as read. Unknown ids are
// accepted and ignored.
// @Summary     Mark notification as read
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Notification ID"
// @Success     200 {object} MessageResponse "Marked"
// @Router      /notifications/{id}/read [put]
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	h.notificationService.MarkAsRead(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllAsRead handles flagging every notification as read.
// @Summary     Mark all notifications as read
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} MessageResponse "Marked"
// @Router      /notifications/mark-all-read [put]
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	h.notificationService.MarkAllAsRead()
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

// CheckBudgetThresholds handles running the budget threshold scan now.
// @Summary     Run budget threshold check
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} CheckResponse "Notifications created"
// @Router      /notifications/check-budget-thresholds [post]
func (h *NotificationHandler) CheckBudgetThresholds(c *gin.Context) {
	created, err := h.notificationService.CheckBudgetThresholds(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, CheckResponse{Created: created})
}

// CheckSavingGoals handles running the saving goal reminder scan now.
// @Summary     Run saving goal check
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} CheckResponse "Notifications created"
// @Router      /notifications/check-saving-goals [post]
func (h *NotificationHandler) CheckSavingGoals(c *gin.Context) {
	created, err := h.notificationService.CheckSavingGoalContributions(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, CheckResponse{Created: created})
}
