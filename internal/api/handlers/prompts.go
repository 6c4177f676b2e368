package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/promptgate/backend/internal/api/middleware"
)

// PromptResponse acknowledges an accepted prompt.
type PromptResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Prompt     string `json:"prompt"`
	AcceptedAt string `json:"accepted_at"`
}

// SubmitPrompt accepts a prompt submission. The time-window middleware
// guards this route, so reaching the handler means the user is inside an
// allowed window.
func SubmitPrompt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.Prompt == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Prompt is required")
			return
		}

		resp := PromptResponse{
			ID:         uuid.NewString(),
			UserID:     r.Header.Get(middleware.UserIDHeader),
			Prompt:     req.Prompt,
			AcceptedAt: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(resp)
	}
}
