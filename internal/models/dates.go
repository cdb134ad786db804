package models

import "time"

// TruncateDay returns midnight UTC of the calendar day t falls on in its own
// location.
// Dates (budget windows, goal dates, contribution dates) are stored this way.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
