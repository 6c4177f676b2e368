package middleware

import (
	"context"
	"net/http"

	"github.com/promptgate/backend/internal/access"
)

// UserIDHeader identifies the acting user on guarded requests.
const UserIDHeader = "X-User-ID"

// AccessChecker decides whether a user may act at the current instant.
type AccessChecker interface {
	CheckTimeWindowAccess(ctx context.Context, userID string) access.Decision
}

// RequireTimeWindowAccess rejects requests from users outside their allowed
// time windows with a 403. Requests without a user identity get a 401.
func RequireTimeWindowAccess(checker AccessChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(UserIDHeader)
			if userID == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "X-User-ID header is required")
				return
			}

			decision := checker.CheckTimeWindowAccess(r.Context(), userID)
			if !decision.IsAllowed {
				if decision.NextAllowedTime != nil {
					WriteErrorWithDetails(w, http.StatusForbidden, ErrAccessDenied, decision.Message,
						map[string]string{"next_allowed_time": access.FormatInstant(*decision.NextAllowedTime)})
					return
				}
				WriteError(w, http.StatusForbidden, ErrAccessDenied, decision.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
