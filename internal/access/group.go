package access

import (
	"time"

	"github.com/promptgate/backend/internal/storage/models"
)

// regularWindow grants access while it matches.
type regularWindow struct {
	models.TimeWindow
}

func (w regularWindow) matchesAt(t time.Time) bool {
	return windowMatches(w.TimeWindow, t)
}

func (w regularWindow) nextStartAfter(t time.Time) *time.Time {
	return windowNextStart(w.TimeWindow, t)
}

// exceptionWindow blocks access while its date range contains t, overriding
// any regular window. Keeping it a distinct type means an exception can
// never be consulted as a grant by mistake.
type exceptionWindow struct {
	models.TimeWindow
}

func (w exceptionWindow) blocksAt(t time.Time) bool {
	return windowDatesContain(w.TimeWindow, t)
}

func (w exceptionWindow) liftsAt() *time.Time {
	return exceptionLift(w.TimeWindow)
}

// partitionWindows splits windows into regular and exception kinds.
func partitionWindows(windows []models.TimeWindow) ([]regularWindow, []exceptionWindow) {
	var regular []regularWindow
	var exceptions []exceptionWindow
	for _, w := range windows {
		if w.IsException() {
			exceptions = append(exceptions, exceptionWindow{w})
		} else {
			regular = append(regular, regularWindow{w})
		}
	}
	return regular, exceptions
}

// GroupStatus is the outcome of evaluating a single group's windows.
type GroupStatus struct {
	Allowed         bool
	NextAllowedTime *time.Time
}

// EvaluateGroup decides whether one group's windows admit the instant now.
//
// A group with no active windows falls back to the policy default. An
// exception window whose date range contains now denies regardless of any
// regular window; otherwise any matching regular window grants. When the
// group denies, NextAllowedTime carries the earliest computable instant at
// which it could admit again, or nil when none exists.
//
// Comparison uses a single canonical clock: now is normalized to UTC.
func EvaluateGroup(group models.GroupWithWindows, now time.Time, policy Policy) GroupStatus {
	now = now.UTC()

	active := group.ActiveWindows()
	if len(active) == 0 {
		return GroupStatus{Allowed: policy.DefaultAllowWhenNoTimeWindows}
	}

	regular, exceptions := partitionWindows(active)

	var blocking []exceptionWindow
	for _, ex := range exceptions {
		if ex.blocksAt(now) {
			blocking = append(blocking, ex)
		}
	}
	if len(blocking) > 0 {
		// Access resumes no earlier than an exception lift or a regular
		// window start, whichever comes first.
		var next *time.Time
		for _, ex := range blocking {
			next = earlierOf(next, ex.liftsAt())
		}
		for _, w := range regular {
			next = earlierOf(next, w.nextStartAfter(now))
		}
		return GroupStatus{Allowed: false, NextAllowedTime: next}
	}

	for _, w := range regular {
		if w.matchesAt(now) {
			return GroupStatus{Allowed: true}
		}
	}

	var next *time.Time
	for _, w := range regular {
		next = earlierOf(next, w.nextStartAfter(now))
	}
	return GroupStatus{Allowed: false, NextAllowedTime: next}
}

// earlierOf returns the earlier of two optional instants.
func earlierOf(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.Before(*a) {
		return b
	}
	return a
}
