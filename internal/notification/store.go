package notification

import (
	"sync"
	"time"

	"finmanager/internal/uuid"
)

// Store is an append-only, concurrency-safe notification log. Entries are
// never removed; only their read flag changes.
type Store struct {
	mu    sync.RWMutex
	items []Notification
	now   func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

func (s *Store) prepare(n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.New()
	}
	if n.Date.IsZero() {
		n.Date = s.now()
	}
	if n.Type == "" {
		n.Type = TypeGeneral
	}
	return n
}

// Append adds n to the log, filling in id, date and type when missing, and
// returns the stored copy.
func (s *Store) Append(n Notification) Notification {
	n = s.prepare(n)

	s.mu.Lock()
	s.items = append(s.items, n)
	s.mu.Unlock()

	return n
}

// AppendUnlessUnread appends n only if no unread notification with the same
// type and related id is already in the log. The check and the append happen
// under one lock.
func (s *Store) AppendUnlessUnread(n Notification) (Notification, bool) {
	n = s.prepare(n)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if !existing.IsRead && existing.sameKey(n) {
			return existing, false
		}
	}
	s.items = append(s.items, n)
	return n, true
}

// All returns a snapshot of every notification in insertion order.
func (s *Store) All() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Unread returns a snapshot of the unread notifications in insertion order.
func (s *Store) Unread() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notification, 0, len(s.items))
	for _, n := range s.items {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out
}

// MarkRead flags the notification with id as read. Unknown ids are ignored;
// the return value reports whether one was found.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsRead = true
			return true
		}
	}
	return false
}

// MarkAllRead flags every notification as read and returns how many changed.
func (s *Store) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for i := range s.items {
		if !s.items[i].IsRead {
			s.items[i].IsRead = true
			changed++
		}
	}
	return changed
}

// Len returns the number of stored notifications.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
