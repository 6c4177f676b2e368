package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/promptgate/backend/internal/access"
)

type stubChecker struct {
	decision access.Decision
	lastUser string
}

func (s *stubChecker) CheckTimeWindowAccess(ctx context.Context, userID string) access.Decision {
	s.lastUser = userID
	return s.decision
}

func guardedRequest(t *testing.T, checker AccessChecker, userID string) *httptest.ResponseRecorder {
	t.Helper()

	handler := RequireTimeWindowAccess(checker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/prompts", nil)
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireTimeWindowAccessAllows(t *testing.T) {
	checker := &stubChecker{decision: access.Decision{IsAllowed: true}}

	rec := guardedRequest(t, checker, "alice")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if checker.lastUser != "alice" {
		t.Errorf("checker saw user %q, want alice", checker.lastUser)
	}
}

func TestRequireTimeWindowAccessRejectsMissingUser(t *testing.T) {
	checker := &stubChecker{decision: access.Decision{IsAllowed: true}}

	rec := guardedRequest(t, checker, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error != ErrUnauthorized {
		t.Errorf("error code = %q, want %q", body.Error, ErrUnauthorized)
	}
}

func TestRequireTimeWindowAccessDenies(t *testing.T) {
	next := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	checker := &stubChecker{decision: access.Decision{
		IsAllowed:       false,
		Message:         "Access denied. You are currently outside your allowed time windows. Access resumes at 2024-01-15T09:00:00.000Z.",
		NextAllowedTime: &next,
	}}

	rec := guardedRequest(t, checker, "alice")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	var body struct {
		Error   string            `json:"error"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error != ErrAccessDenied {
		t.Errorf("error code = %q, want %q", body.Error, ErrAccessDenied)
	}
	if body.Details["next_allowed_time"] != "2024-01-15T09:00:00.000Z" {
		t.Errorf("next_allowed_time = %q", body.Details["next_allowed_time"])
	}
}

func TestRequireTimeWindowAccessDeniesWithoutCandidate(t *testing.T) {
	checker := &stubChecker{decision: access.Decision{
		IsAllowed: false,
		Message:   "Access denied. You must be assigned to a group to send prompts.",
	}}

	rec := guardedRequest(t, checker, "bob")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Details != nil {
		t.Errorf("details should be omitted without a candidate, got %v", body.Details)
	}
}
