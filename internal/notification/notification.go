// Package notification holds the process-wide notification log. The log is
// created empty at startup, lives only in memory, and is gone after a
// restart.
package notification

import (
	"context"
	"time"
)

// Type classifies a notification.
type Type string

const (
	TypeBudgetThreshold    Type = "BUDGET_THRESHOLD"
	TypeSavingGoalReminder Type = "SAVING_GOAL_REMINDER"
	TypeGeneral            Type = "GENERAL"
)

// Notification is a single entry in the log.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Date      time.Time `json:"date"`
	IsRead    bool      `json:"is_read"`
	RelatedID *string   `json:"related_id,omitempty"`
}

// sameKey reports whether n and other are about the same entity and kind.
func (n Notification) sameKey(other Notification) bool {
	if n.Type != other.Type {
		return false
	}
	if n.RelatedID == nil || other.RelatedID == nil {
		return n.RelatedID == nil && other.RelatedID == nil
	}
	return *n.RelatedID == *other.RelatedID
}

// Publisher receives every notification appended to the log.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}
