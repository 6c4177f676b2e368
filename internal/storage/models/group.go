// Package models defines data structures for storage entities.
package models

import "time"

// Group represents a named collection of users sharing time-window rules.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GroupWithWindows combines a group with its time windows.
type GroupWithWindows struct {
	Group
	TimeWindows []TimeWindow `json:"time_windows"`
}

// GroupWithMembers combines a group with its windows and member IDs.
type GroupWithMembers struct {
	GroupWithWindows
	MemberIDs []string `json:"member_ids"`
}

// ActiveWindows returns the group's windows with IsActive set.
// Inactive windows never participate in access evaluation.
func (g *GroupWithWindows) ActiveWindows() []TimeWindow {
	var active []TimeWindow
	for _, w := range g.TimeWindows {
		if w.IsActive {
			active = append(active, w)
		}
	}
	return active
}
