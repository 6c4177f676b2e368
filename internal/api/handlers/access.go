package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/promptgate/backend/internal/access"
	"github.com/promptgate/backend/internal/api/middleware"
)

// AccessCheckRequest asks whether a user may act, optionally at an explicit
// instant instead of now.
type AccessCheckRequest struct {
	UserID string `json:"user_id"`
	At     string `json:"at,omitempty"`
}

// AccessCheckResponse reports the access decision for a user.
type AccessCheckResponse struct {
	UserID          string  `json:"user_id"`
	IsAllowed       bool    `json:"is_allowed"`
	Message         string  `json:"message,omitempty"`
	NextAllowedTime *string `json:"next_allowed_time,omitempty"`
	CheckedAt       string  `json:"checked_at"`
}

// CheckAccess evaluates whether a user is inside an allowed time window.
func CheckAccess(evaluator *access.Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AccessCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.UserID == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "user_id is required")
			return
		}

		at := time.Now().UTC()
		if req.At != "" {
			parsed, err := time.Parse(time.RFC3339, req.At)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "at must be an RFC 3339 timestamp")
				return
			}
			at = parsed
		}

		decision := evaluator.CheckTimeWindowAccessAt(r.Context(), req.UserID, at)

		resp := AccessCheckResponse{
			UserID:    req.UserID,
			IsAllowed: decision.IsAllowed,
			Message:   decision.Message,
			CheckedAt: access.FormatInstant(at),
		}
		if decision.NextAllowedTime != nil {
			next := access.FormatInstant(*decision.NextAllowedTime)
			resp.NextAllowedTime = &next
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
