package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/promptgate/backend/internal/access"
	"github.com/promptgate/backend/internal/api/middleware"
	"github.com/promptgate/backend/internal/storage"
	"github.com/promptgate/backend/internal/websocket"
)

// SettingsResponse represents settings in API responses. Values are kept as
// strings to mirror the settings table.
type SettingsResponse struct {
	DefaultAllowWhenNoGroups      string `json:"default_allow_when_no_groups"`
	DefaultAllowWhenNoTimeWindows string `json:"default_allow_when_no_time_windows"`
}

// GetSettings returns all settings.
func GetSettings(repo *storage.SettingsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		settings, err := repo.GetAll(ctx)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query settings")
			return
		}

		response := SettingsResponse{
			DefaultAllowWhenNoGroups:      settings[access.SettingAllowWhenNoGroups],
			DefaultAllowWhenNoTimeWindows: settings[access.SettingAllowWhenNoTimeWindows],
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// UpdateSettings updates settings and applies the new policy to the running
// evaluator.
func UpdateSettings(repo *storage.SettingsRepository, evaluator *access.Evaluator, hub *websocket.Hub, scheduler *access.StatusScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req SettingsResponse
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		// Validate every provided value before writing any of them.
		updates := map[string]string{
			access.SettingAllowWhenNoGroups:      req.DefaultAllowWhenNoGroups,
			access.SettingAllowWhenNoTimeWindows: req.DefaultAllowWhenNoTimeWindows,
		}
		for key, value := range updates {
			if value == "" {
				continue
			}
			if _, err := strconv.ParseBool(value); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, key+" must be true or false")
				return
			}
		}

		for key, value := range updates {
			if value == "" {
				continue
			}
			if err := repo.Set(ctx, key, value); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update settings")
				return
			}
		}

		settings, err := repo.GetAll(ctx)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query settings")
			return
		}

		if evaluator != nil {
			evaluator.SetPolicy(access.PolicyFromSettings(settings))
		}
		if scheduler != nil {
			scheduler.ForceEvaluate()
		}
		if hub != nil {
			websocket.NewEventBroadcaster(hub).BroadcastSettingsUpdated(settings)
		}

		response := SettingsResponse{
			DefaultAllowWhenNoGroups:      settings[access.SettingAllowWhenNoGroups],
			DefaultAllowWhenNoTimeWindows: settings[access.SettingAllowWhenNoTimeWindows],
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
