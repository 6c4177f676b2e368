// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/promptgate/backend/internal/access"
	"github.com/promptgate/backend/internal/storage"
	"github.com/promptgate/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Check database connection
		dbConnected := db.Ping() == nil

		// Determine overall status
		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		response := HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	GroupsCount        int    `json:"groups_count"`
	TimeWindowsCount   int    `json:"time_windows_count"`
	MembershipsCount   int    `json:"memberships_count"`
	GroupsAllowed      int    `json:"groups_allowed"`
	GroupsDenied       int    `json:"groups_denied"`
	EvaluationInterval string `json:"evaluation_interval,omitempty"`
	ConnectedClients   int    `json:"connected_clients"`
}

// Status returns a handler that provides system status information.
func Status(db *storage.DB, hub *websocket.Hub, scheduler *access.StatusScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Count groups
		var groupsCount int
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups").Scan(&groupsCount)

		// Count active time windows
		var windowsCount int
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM time_windows WHERE is_active = 1").Scan(&windowsCount)

		// Count memberships
		var membershipsCount int
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM group_members").Scan(&membershipsCount)

		response := StatusResponse{
			GroupsCount:      groupsCount,
			TimeWindowsCount: windowsCount,
			MembershipsCount: membershipsCount,
		}

		if scheduler != nil {
			for _, allowed := range scheduler.Snapshot() {
				if allowed {
					response.GroupsAllowed++
				} else {
					response.GroupsDenied++
				}
			}
			response.EvaluationInterval = scheduler.Interval().String()
		}
		if hub != nil {
			response.ConnectedClients = hub.ClientCount()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
