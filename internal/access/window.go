package access

import (
	"time"

	"github.com/promptgate/backend/internal/storage/models"
)

// windowMatches reports whether the window admits the instant t.
// Exception windows report date containment here; the group evaluator turns
// containment into a block rather than a grant. A malformed window (missing
// or unparseable required fields) never matches.
func windowMatches(w models.TimeWindow, t time.Time) bool {
	switch w.Type {
	case models.WindowTypeDaily:
		return clockWithin(w, t)
	case models.WindowTypeWeekly:
		// Wrap-past-midnight windows are matched against the start day's
		// weekday only.
		return weekdayListed(w.DaysOfWeek, t) && clockWithin(w, t)
	case models.WindowTypeDateRange, models.WindowTypeException:
		return windowDatesContain(w, t)
	default:
		return false
	}
}

// windowNextStart returns the earliest instant after t at which the window
// begins admitting, or nil when none is computable. Exception windows never
// contribute a start; their lift instant is computed separately.
func windowNextStart(w models.TimeWindow, t time.Time) *time.Time {
	switch w.Type {
	case models.WindowTypeDaily:
		return nextDailyStart(w, t)
	case models.WindowTypeWeekly:
		return nextWeeklyStart(w, t)
	case models.WindowTypeDateRange:
		return nextDateRangeStart(w, t)
	default:
		return nil
	}
}

// clockWithin checks the half-open wall-clock interval [start, end).
// A start after the end wraps past midnight (e.g. 22:00-06:00).
func clockWithin(w models.TimeWindow, t time.Time) bool {
	start, ok := parseClockMinutes(w.StartTime)
	if !ok {
		return false
	}
	end, ok := parseClockMinutes(w.EndTime)
	if !ok {
		return false
	}

	cur := t.Hour()*60 + t.Minute()
	if start > end {
		return cur >= start || cur < end
	}
	return cur >= start && cur < end
}

// weekdayListed checks membership of t's weekday (0 = Sunday) in days.
func weekdayListed(days []int, t time.Time) bool {
	wd := int(t.Weekday())
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

// windowDatesContain checks inclusive calendar-date containment of t in
// [StartDate, EndDate].
func windowDatesContain(w models.TimeWindow, t time.Time) bool {
	start, ok := parseDate(w.StartDate)
	if !ok {
		return false
	}
	end, ok := parseDate(w.EndDate)
	if !ok {
		return false
	}

	day := dateOf(t)
	return !day.Before(start) && !day.After(end)
}

func nextDailyStart(w models.TimeWindow, t time.Time) *time.Time {
	start, ok := parseClockMinutes(w.StartTime)
	if !ok {
		return nil
	}
	if _, ok := parseClockMinutes(w.EndTime); !ok {
		return nil
	}

	day := t
	if t.Hour()*60+t.Minute() >= start {
		day = t.AddDate(0, 0, 1)
	}
	next := instantOnDay(day, start)
	return &next
}

func nextWeeklyStart(w models.TimeWindow, t time.Time) *time.Time {
	start, ok := parseClockMinutes(w.StartTime)
	if !ok {
		return nil
	}
	if _, ok := parseClockMinutes(w.EndTime); !ok {
		return nil
	}
	if len(w.DaysOfWeek) == 0 {
		return nil
	}

	cur := t.Hour()*60 + t.Minute()

	// Scan today (only if the start is still ahead) and the next seven
	// days for a listed weekday.
	for offset := 0; offset <= 7; offset++ {
		day := t.AddDate(0, 0, offset)
		if !weekdayListed(w.DaysOfWeek, day) {
			continue
		}
		if offset == 0 && cur >= start {
			continue
		}
		next := instantOnDay(day, start)
		return &next
	}

	return nil
}

func nextDateRangeStart(w models.TimeWindow, t time.Time) *time.Time {
	start, ok := parseDate(w.StartDate)
	if !ok {
		return nil
	}
	if _, ok := parseDate(w.EndDate); !ok {
		return nil
	}

	// Only a range that has not begun yet has a future start. A range that
	// already contains t needs no transition, and an exhausted range never
	// admits again.
	if dateOf(t).Before(start) {
		return &start
	}
	return nil
}

// exceptionLift returns the instant an exception window stops blocking:
// start of the day after its end date. Nil when the end date is malformed.
func exceptionLift(w models.TimeWindow) *time.Time {
	end, ok := parseDate(w.EndDate)
	if !ok {
		return nil
	}
	lift := end.AddDate(0, 0, 1)
	return &lift
}

// parseClockMinutes parses a "15:04" wall-clock string into minutes since
// midnight.
func parseClockMinutes(value string) (int, bool) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// parseDate parses a "2006-01-02" calendar date as midnight UTC.
func parseDate(value string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// dateOf truncates t to midnight UTC of its calendar date.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// instantOnDay builds the instant at the given minutes-since-midnight on
// day's calendar date.
func instantOnDay(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, time.UTC)
}
