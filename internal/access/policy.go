package access

import (
	"strconv"
	"time"
)

// instantFormat is ISO-8601 with millisecond precision, the wire format for
// instants in messages and API responses, e.g. "2024-01-15T09:00:00.000Z".
const instantFormat = "2006-01-02T15:04:05.000Z07:00"

// FormatInstant renders t in UTC as an ISO-8601 string with millisecond
// precision.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(instantFormat)
}

// Denial messages returned in decisions.
const (
	noGroupsMessage       = "Access denied. You must be assigned to a group to send prompts."
	outsideWindowsMessage = "Access denied. You are currently outside your allowed time windows."
)

// Policy configures the evaluation defaults for users or groups that have
// no applicable rules.
type Policy struct {
	// DefaultAllowWhenNoGroups applies when the user belongs to no groups.
	DefaultAllowWhenNoGroups bool `json:"default_allow_when_no_groups"`

	// DefaultAllowWhenNoTimeWindows applies per group when that group has
	// zero active windows.
	DefaultAllowWhenNoTimeWindows bool `json:"default_allow_when_no_time_windows"`
}

// DefaultPolicy returns the stock policy: users without groups are denied,
// groups without windows admit.
func DefaultPolicy() Policy {
	return Policy{
		DefaultAllowWhenNoGroups:      false,
		DefaultAllowWhenNoTimeWindows: true,
	}
}

// Keys under which the policy is stored in the settings table.
const (
	SettingAllowWhenNoGroups      = "default_allow_when_no_groups"
	SettingAllowWhenNoTimeWindows = "default_allow_when_no_time_windows"
)

// PolicyFromSettings builds a Policy from stored key/value settings.
// Absent or unparseable values keep their defaults.
func PolicyFromSettings(values map[string]string) Policy {
	policy := DefaultPolicy()
	if v, err := strconv.ParseBool(values[SettingAllowWhenNoGroups]); err == nil {
		policy.DefaultAllowWhenNoGroups = v
	}
	if v, err := strconv.ParseBool(values[SettingAllowWhenNoTimeWindows]); err == nil {
		policy.DefaultAllowWhenNoTimeWindows = v
	}
	return policy
}

// Decision is the immutable result of an access evaluation.
type Decision struct {
	IsAllowed bool `json:"is_allowed"`

	// Message explains a denial. Empty when allowed.
	Message string `json:"message,omitempty"`

	// NextAllowedTime is the earliest instant at which access resumes.
	// Nil when allowed, or when no future admission is computable.
	NextAllowedTime *time.Time `json:"next_allowed_time,omitempty"`
}
