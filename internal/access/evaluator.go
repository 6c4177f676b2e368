// Package access implements time-window access evaluation: deciding whether
// a user may act at a given instant based on the time windows attached to
// the groups the user belongs to.
package access

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/promptgate/backend/internal/storage/models"
)

// Evaluate decides whether the given groups admit the instant now. It is a
// pure function: the same (groups, now, policy) always yields the same
// decision.
//
// Groups compose with OR semantics - one admitting group grants access no
// matter how many others deny. When every group denies, the decision
// carries the minimum next allowed time across the denying groups, and the
// message embeds that instant when one exists.
func Evaluate(groups []models.GroupWithWindows, now time.Time, policy Policy) Decision {
	now = now.UTC()

	if len(groups) == 0 {
		if policy.DefaultAllowWhenNoGroups {
			return Decision{IsAllowed: true}
		}
		return Decision{IsAllowed: false, Message: noGroupsMessage}
	}

	var next *time.Time
	for _, group := range groups {
		status := EvaluateGroup(group, now, policy)
		if status.Allowed {
			return Decision{IsAllowed: true}
		}
		next = earlierOf(next, status.NextAllowedTime)
	}

	if next == nil {
		return Decision{IsAllowed: false, Message: outsideWindowsMessage}
	}
	return Decision{
		IsAllowed:       false,
		Message:         fmt.Sprintf("%s Access resumes at %s.", outsideWindowsMessage, FormatInstant(*next)),
		NextAllowedTime: next,
	}
}

// GroupProvider supplies the groups a user belongs to, windows included.
// A nil slice means the user has no groups.
type GroupProvider interface {
	GetUserGroups(ctx context.Context, userID string) ([]models.GroupWithWindows, error)
}

// Evaluator evaluates user access against a live policy. It is safe for
// concurrent use; the policy can be swapped at runtime and each evaluation
// reads it exactly once.
type Evaluator struct {
	provider GroupProvider

	mu     sync.RWMutex
	policy Policy

	now func() time.Time
}

// NewEvaluator creates an evaluator backed by the given group provider.
func NewEvaluator(provider GroupProvider, policy Policy) *Evaluator {
	return NewEvaluatorWithClock(provider, policy, nil)
}

// NewEvaluatorWithClock creates an evaluator with a custom time source.
// A nil now falls back to time.Now.
func NewEvaluatorWithClock(provider GroupProvider, policy Policy, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{provider: provider, policy: policy, now: now}
}

// Policy returns the policy applied to subsequent evaluations.
func (e *Evaluator) Policy() Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy
}

// SetPolicy swaps the policy applied to subsequent evaluations.
func (e *Evaluator) SetPolicy(policy Policy) {
	e.mu.Lock()
	e.policy = policy
	e.mu.Unlock()
}

// CheckTimeWindowAccess decides whether userID may act right now.
func (e *Evaluator) CheckTimeWindowAccess(ctx context.Context, userID string) Decision {
	return e.CheckTimeWindowAccessAt(ctx, userID, e.now())
}

// CheckTimeWindowAccessAt decides whether userID may act at the instant now.
//
// It never returns an error: a failed group fetch or an unresolvable
// instant fails open with a logged warning, so an infrastructure outage
// cannot lock legitimate users out.
func (e *Evaluator) CheckTimeWindowAccessAt(ctx context.Context, userID string, now time.Time) Decision {
	if now.IsZero() {
		log.Printf("Access check for user %s: no valid current time, failing open", userID)
		return Decision{IsAllowed: true}
	}

	groups, err := e.provider.GetUserGroups(ctx, userID)
	if err != nil {
		log.Printf("Access check for user %s: group lookup failed, failing open: %v", userID, err)
		return Decision{IsAllowed: true}
	}

	decision := Evaluate(groups, now, e.Policy())
	if !decision.IsAllowed {
		log.Printf("Access denied for user %s: %s", userID, decision.Message)
	}
	return decision
}
