package amqp

import (
	"encoding/json"
	"time"

	"finmanager/internal/notification"
)

// NotificationMessage is the wire form of an appended notification.
type NotificationMessage struct {
	ID          string            `json:"id"`
	Type        notification.Type `json:"type"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	RelatedID   *string           `json:"related_id,omitempty"`
	Date        time.Time         `json:"date"`
	PublishedAt time.Time         `json:"published_at"`
}

// NewNotificationMessage wraps n for publishing.
func NewNotificationMessage(n notification.Notification) *NotificationMessage {
	return &NotificationMessage{
		ID:          n.ID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		RelatedID:   n.RelatedID,
		Date:        n.Date,
		PublishedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON decodes a message published by Client.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
