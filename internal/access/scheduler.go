package access

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/promptgate/backend/internal/storage"
	"github.com/promptgate/backend/internal/websocket"
)

// Status labels used in access change events.
const (
	StatusAllowed = "allowed"
	StatusDenied  = "denied"
)

// StatusScheduler periodically re-evaluates every group's window status and
// broadcasts transitions between allowed and denied.
type StatusScheduler struct {
	cron        *cron.Cron
	groupRepo   *storage.GroupRepository
	evaluator   *Evaluator
	broadcaster *websocket.EventBroadcaster

	// Track current status of each group (allowed or not)
	states   map[string]bool // groupID -> allowed
	statesMu sync.RWMutex

	interval time.Duration
	now      func() time.Time
}

// NewStatusScheduler creates a new group status scheduler. intervalMinutes
// controls how often groups are re-evaluated; values below one minute fall
// back to one.
func NewStatusScheduler(
	groupRepo *storage.GroupRepository,
	evaluator *Evaluator,
	hub *websocket.Hub,
	intervalMinutes int,
) *StatusScheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 1
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &StatusScheduler{
		cron:        cron.New(cron.WithSeconds()),
		groupRepo:   groupRepo,
		evaluator:   evaluator,
		broadcaster: broadcaster,
		states:      make(map[string]bool),
		interval:    time.Duration(intervalMinutes) * time.Minute,
		now:         time.Now,
	}
}

// Start begins the scheduler.
func (s *StatusScheduler) Start() {
	log.Println("Starting group status scheduler...")

	s.cron.AddFunc(intervalToCronSpec(s.interval), func() {
		s.evaluateStatuses()
	})

	// Initial evaluation
	go s.evaluateStatuses()

	s.cron.Start()
	log.Printf("Group status scheduler started (interval %s)", s.interval)
}

// Stop gracefully shuts down the scheduler.
func (s *StatusScheduler) Stop() {
	log.Println("Stopping group status scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Group status scheduler stopped")
}

// evaluateStatuses checks all groups and broadcasts any status transitions.
func (s *StatusScheduler) evaluateStatuses() {
	ctx := context.Background()

	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		log.Printf("Failed to list groups for status evaluation: %v", err)
		return
	}

	now := s.now()
	policy := s.evaluator.Policy()
	currentIDs := make(map[string]bool)

	for _, group := range groups {
		currentIDs[group.ID] = true

		status := EvaluateGroup(group, now, policy)
		wasAllowed := s.getState(group.ID)

		if status.Allowed == wasAllowed {
			continue
		}
		s.setState(group.ID, status.Allowed)

		log.Printf("Group %s (%s) access changed: %s -> %s",
			group.ID, group.Name, statusLabel(wasAllowed), statusLabel(status.Allowed))

		if s.broadcaster != nil {
			next := ""
			if !status.Allowed && status.NextAllowedTime != nil {
				next = FormatInstant(*status.NextAllowedTime)
			}
			s.broadcaster.BroadcastAccessStatusChanged(
				group.ID, group.Name,
				statusLabel(wasAllowed), statusLabel(status.Allowed), next)
		}
	}

	// Drop state for groups that no longer exist
	s.statesMu.Lock()
	for id := range s.states {
		if !currentIDs[id] {
			delete(s.states, id)
		}
	}
	s.statesMu.Unlock()
}

// getState returns the last known status of a group.
func (s *StatusScheduler) getState(groupID string) bool {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()
	return s.states[groupID]
}

// setState updates the last known status of a group.
func (s *StatusScheduler) setState(groupID string, allowed bool) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	s.states[groupID] = allowed
}

// Snapshot returns a copy of the last known status of every group.
func (s *StatusScheduler) Snapshot() map[string]bool {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()

	snapshot := make(map[string]bool, len(s.states))
	for id, allowed := range s.states {
		snapshot[id] = allowed
	}
	return snapshot
}

// Interval returns the evaluation interval.
func (s *StatusScheduler) Interval() time.Duration {
	return s.interval
}

// ForceEvaluate triggers an immediate status evaluation.
// Useful after creating or updating a group.
func (s *StatusScheduler) ForceEvaluate() {
	go s.evaluateStatuses()
}

// InitializeStates records the current status of all groups without
// broadcasting. Should be called before starting the scheduler so startup
// does not fire a transition for every group.
func (s *StatusScheduler) InitializeStates(ctx context.Context) error {
	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	policy := s.evaluator.Policy()
	for _, group := range groups {
		s.setState(group.ID, EvaluateGroup(group, now, policy).Allowed)
	}

	return nil
}

func statusLabel(allowed bool) string {
	if allowed {
		return StatusAllowed
	}
	return StatusDenied
}

// intervalToCronSpec converts an interval to a cron spec.
func intervalToCronSpec(interval time.Duration) string {
	if interval < time.Minute {
		interval = time.Minute
	}
	return "@every " + interval.String()
}
