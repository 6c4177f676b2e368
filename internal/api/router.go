// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/promptgate/backend/internal/access"
	"github.com/promptgate/backend/internal/api/handlers"
	"github.com/promptgate/backend/internal/api/middleware"
	"github.com/promptgate/backend/internal/storage"
	"github.com/promptgate/backend/internal/websocket"
)

// NewRouter creates and configures the HTTP router with all API routes.
// This is a convenience wrapper that builds the repositories and evaluator
// from the database with default policy and no status scheduler.
func NewRouter(db *storage.DB, hub *websocket.Hub, staticDir string) *mux.Router {
	groupRepo := storage.NewGroupRepository(db)
	settingsRepo := storage.NewSettingsRepository(db)
	evaluator := access.NewEvaluator(groupRepo, access.DefaultPolicy())
	return NewRouterWithServices(db, hub, staticDir, groupRepo, settingsRepo, evaluator, nil)
}

// NewRouterWithServices creates and configures the HTTP router with all API
// routes and injects the evaluator and status scheduler.
func NewRouterWithServices(
	db *storage.DB,
	hub *websocket.Hub,
	staticDir string,
	groupRepo *storage.GroupRepository,
	settingsRepo *storage.SettingsRepository,
	evaluator *access.Evaluator,
	scheduler *access.StatusScheduler,
) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(db)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(db, hub, scheduler)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(hub)).Methods("GET")

	// Access evaluation endpoint
	api.HandleFunc("/access/check", handlers.CheckAccess(evaluator)).Methods("POST")

	// Group endpoints
	api.HandleFunc("/groups", handlers.ListGroups(groupRepo)).Methods("GET")
	api.HandleFunc("/groups", handlers.CreateGroup(groupRepo, hub, scheduler)).Methods("POST")
	api.HandleFunc("/groups/import", handlers.ImportGroups(groupRepo, hub, scheduler)).Methods("POST")
	api.HandleFunc("/groups/{id}", handlers.GetGroup(groupRepo)).Methods("GET")
	api.HandleFunc("/groups/{id}", handlers.UpdateGroup(groupRepo, hub, scheduler)).Methods("PUT")
	api.HandleFunc("/groups/{id}", handlers.DeleteGroup(groupRepo, hub, scheduler)).Methods("DELETE")
	api.HandleFunc("/groups/{id}/time-windows", handlers.GetGroupTimeWindows(groupRepo)).Methods("GET")
	api.HandleFunc("/groups/{id}/time-windows", handlers.SetGroupTimeWindows(groupRepo, hub, scheduler)).Methods("PUT")
	api.HandleFunc("/groups/{id}/members", handlers.GetGroupMembers(groupRepo)).Methods("GET")
	api.HandleFunc("/groups/{id}/members", handlers.SetGroupMembers(groupRepo, hub)).Methods("PUT")

	// Settings endpoints
	api.HandleFunc("/settings", handlers.GetSettings(settingsRepo)).Methods("GET")
	api.HandleFunc("/settings", handlers.UpdateSettings(settingsRepo, evaluator, hub, scheduler)).Methods("PUT")

	// Prompt submission, guarded by the time-window check
	guard := middleware.RequireTimeWindowAccess(evaluator)
	api.Handle("/prompts", guard(handlers.SubmitPrompt())).Methods("POST")

	// Serve static frontend files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}
