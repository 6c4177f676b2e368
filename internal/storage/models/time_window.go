package models

import "time"

// Time window types.
const (
	WindowTypeDaily     = "daily"
	WindowTypeWeekly    = "weekly"
	WindowTypeDateRange = "date_range"
	WindowTypeException = "exception"
)

// TimeWindow represents a single time-based access rule attached to a group.
//
// Which fields are required depends on Type: daily and weekly windows use
// StartTime/EndTime (and weekly additionally DaysOfWeek), date_range and
// exception windows use StartDate/EndDate. A window missing the fields its
// type requires is malformed; the evaluator treats it as never matching
// rather than failing.
type TimeWindow struct {
	ID         string    `json:"id,omitempty"`
	GroupID    string    `json:"group_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Type       string    `json:"type"`
	StartTime  string    `json:"start_time,omitempty"` // Format: "15:04"
	EndTime    string    `json:"end_time,omitempty"`   // Format: "15:04"
	DaysOfWeek []int     `json:"days_of_week,omitempty"` // 0 = Sunday, 6 = Saturday
	StartDate  string    `json:"start_date,omitempty"` // Format: "2006-01-02", inclusive
	EndDate    string    `json:"end_date,omitempty"`   // Format: "2006-01-02", inclusive
	Timezone   string    `json:"timezone,omitempty"`   // Stored only; evaluation uses UTC
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// IsException reports whether the window blocks access instead of granting it.
func (w *TimeWindow) IsException() bool {
	return w.Type == WindowTypeException
}

// KnownWindowType reports whether t is one of the recognized window types.
func KnownWindowType(t string) bool {
	switch t {
	case WindowTypeDaily, WindowTypeWeekly, WindowTypeDateRange, WindowTypeException:
		return true
	}
	return false
}
