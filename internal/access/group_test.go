package access

import (
	"testing"
	"time"

	"github.com/promptgate/backend/internal/storage/models"
)

func groupWith(windows ...models.TimeWindow) models.GroupWithWindows {
	return models.GroupWithWindows{
		Group:       models.Group{ID: "g1", Name: "Test Group"},
		TimeWindows: windows,
	}
}

func TestEvaluateGroupNoActiveWindows(t *testing.T) {
	inactive := dailyWindow("09:00", "17:00")
	inactive.IsActive = false

	groups := []models.GroupWithWindows{
		groupWith(),
		groupWith(inactive),
	}

	for _, g := range groups {
		status := EvaluateGroup(g, mondayAt(12, 0), Policy{DefaultAllowWhenNoTimeWindows: true})
		if !status.Allowed {
			t.Error("group without active windows should admit when the default allows")
		}

		status = EvaluateGroup(g, mondayAt(12, 0), Policy{DefaultAllowWhenNoTimeWindows: false})
		if status.Allowed {
			t.Error("group without active windows should deny when the default denies")
		}
		if status.NextAllowedTime != nil {
			t.Errorf("no-window denial has no next allowed time, got %v", status.NextAllowedTime)
		}
	}
}

func TestEvaluateGroupRegularWindowGrants(t *testing.T) {
	g := groupWith(dailyWindow("09:00", "17:00"))

	status := EvaluateGroup(g, mondayAt(10, 0), DefaultPolicy())
	if !status.Allowed {
		t.Fatal("matching daily window should admit")
	}
	if status.NextAllowedTime != nil {
		t.Fatalf("admitting group carries no next allowed time, got %v", status.NextAllowedTime)
	}
}

func TestEvaluateGroupExceptionOverridesRegular(t *testing.T) {
	// The daily window matches Monday 10:00, but the exception covers the
	// 15th and wins.
	g := groupWith(
		dailyWindow("09:00", "17:00"),
		exceptionWindowFor("2024-01-15", "2024-01-15"),
	)

	status := EvaluateGroup(g, mondayAt(10, 0), DefaultPolicy())
	if status.Allowed {
		t.Fatal("exception covering today must deny despite a matching regular window")
	}

	// The exception lifts Tuesday at midnight, before the daily window's
	// next start Tuesday 09:00.
	lift := time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC)
	if status.NextAllowedTime == nil || !status.NextAllowedTime.Equal(lift) {
		t.Fatalf("next allowed = %v, want exception lift %v", status.NextAllowedTime, lift)
	}
}

func TestEvaluateGroupExceptionKeepsEarlierRegularStart(t *testing.T) {
	// A multi-day exception blocks Monday evening; the daily window's next
	// start (Tuesday 09:00) precedes the lift (Thursday 00:00) and wins the
	// candidate comparison.
	g := groupWith(
		dailyWindow("09:00", "17:00"),
		exceptionWindowFor("2024-01-15", "2024-01-17"),
	)

	status := EvaluateGroup(g, mondayAt(18, 0), DefaultPolicy())
	if status.Allowed {
		t.Fatal("exception covering today must deny")
	}

	tuesdayStart := time.Date(2024, time.January, 16, 9, 0, 0, 0, time.UTC)
	if status.NextAllowedTime == nil || !status.NextAllowedTime.Equal(tuesdayStart) {
		t.Fatalf("next allowed = %v, want %v", status.NextAllowedTime, tuesdayStart)
	}
}

func TestEvaluateGroupInactiveExceptionIgnored(t *testing.T) {
	blackout := exceptionWindowFor("2024-01-15", "2024-01-15")
	blackout.IsActive = false

	g := groupWith(dailyWindow("09:00", "17:00"), blackout)

	status := EvaluateGroup(g, mondayAt(10, 0), DefaultPolicy())
	if !status.Allowed {
		t.Fatal("inactive exception must not block")
	}
}

func TestEvaluateGroupPastExceptionDoesNotBlock(t *testing.T) {
	g := groupWith(
		dailyWindow("09:00", "17:00"),
		exceptionWindowFor("2024-01-01", "2024-01-05"),
	)

	status := EvaluateGroup(g, mondayAt(10, 0), DefaultPolicy())
	if !status.Allowed {
		t.Fatal("expired exception must not block")
	}
}

func TestEvaluateGroupDeniedPicksEarliestStart(t *testing.T) {
	// Monday 10:00: the afternoon window starts at 14:00 today, the weekly
	// Tuesday window not before tomorrow 09:00.
	g := groupWith(
		dailyWindow("14:00", "15:00"),
		weeklyWindow([]int{2}, "09:00", "17:00"),
	)

	status := EvaluateGroup(g, mondayAt(10, 0), DefaultPolicy())
	if status.Allowed {
		t.Fatal("no window matches Monday 10:00")
	}
	if status.NextAllowedTime == nil || !status.NextAllowedTime.Equal(mondayAt(14, 0)) {
		t.Fatalf("next allowed = %v, want %v", status.NextAllowedTime, mondayAt(14, 0))
	}
}

func TestEvaluateGroupMalformedWindowContributesNothing(t *testing.T) {
	malformed := models.TimeWindow{Type: models.WindowTypeDaily, StartTime: "09:00", IsActive: true}

	// Alone: denies with no candidate.
	status := EvaluateGroup(groupWith(malformed), mondayAt(10, 0), DefaultPolicy())
	if status.Allowed {
		t.Fatal("malformed window must not admit")
	}
	if status.NextAllowedTime != nil {
		t.Fatalf("malformed window must not contribute a candidate, got %v", status.NextAllowedTime)
	}

	// Next to a valid window: only the valid one contributes.
	status = EvaluateGroup(groupWith(malformed, dailyWindow("14:00", "15:00")), mondayAt(10, 0), DefaultPolicy())
	if status.Allowed {
		t.Fatal("nothing matches Monday 10:00")
	}
	if status.NextAllowedTime == nil || !status.NextAllowedTime.Equal(mondayAt(14, 0)) {
		t.Fatalf("next allowed = %v, want %v", status.NextAllowedTime, mondayAt(14, 0))
	}
}

func TestEvaluateGroupExhaustedRangeYieldsNoCandidate(t *testing.T) {
	g := groupWith(dateRangeWindow("2024-01-01", "2024-01-05"))

	status := EvaluateGroup(g, mondayAt(10, 0), DefaultPolicy())
	if status.Allowed {
		t.Fatal("expired range must not admit")
	}
	if status.NextAllowedTime != nil {
		t.Fatalf("expired range yields no future admission, got %v", status.NextAllowedTime)
	}
}
