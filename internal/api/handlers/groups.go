package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/promptgate/backend/internal/access"
	"github.com/promptgate/backend/internal/api/middleware"
	"github.com/promptgate/backend/internal/storage"
	"github.com/promptgate/backend/internal/storage/models"
	"github.com/promptgate/backend/internal/websocket"
)

// TimeWindowPayload represents a time window in API requests and responses.
type TimeWindowPayload struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	Type       string `json:"type"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	DaysOfWeek []int  `json:"days_of_week,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	IsActive   bool   `json:"is_active"`
}

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	TimeWindows []TimeWindowPayload `json:"time_windows"`
	MemberIDs   []string            `json:"member_ids"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

// ListGroups returns all groups with their windows and members.
func ListGroups(repo *storage.GroupRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		groups, err := repo.List(ctx)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query groups")
			return
		}

		responses := make([]GroupResponse, 0, len(groups))
		for _, g := range groups {
			members, err := repo.GetMembers(ctx, g.ID)
			if err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query group members")
				return
			}
			responses = append(responses, toGroupResponse(g, members))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(responses)
	}
}

// CreateGroup creates a new group, optionally with windows and members.
func CreateGroup(repo *storage.GroupRepository, hub *websocket.Hub, scheduler *access.StatusScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req struct {
			Name        string              `json:"name"`
			TimeWindows []TimeWindowPayload `json:"time_windows"`
			MemberIDs   []string            `json:"member_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.Name == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Name is required")
			return
		}
		if msg := validateWindows(req.TimeWindows); msg != "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, msg)
			return
		}

		// Check for duplicate name (case-insensitive)
		exists, err := repo.NameExists(ctx, req.Name, "")
		if err == nil && exists {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "A group with this name already exists")
			return
		}

		group := &models.Group{Name: req.Name}
		if err := repo.Create(ctx, group); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create group")
			return
		}

		if len(req.TimeWindows) > 0 {
			if err := repo.SetTimeWindows(ctx, group.ID, toWindowModels(req.TimeWindows)); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to store time windows")
				return
			}
		}
		if len(req.MemberIDs) > 0 {
			if err := repo.SetMembers(ctx, group.ID, req.MemberIDs); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to store group members")
				return
			}
		}

		created, err := repo.GetByID(ctx, group.ID)
		if err != nil || created == nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load created group")
			return
		}

		if hub != nil {
			websocket.NewEventBroadcaster(hub).BroadcastGroupCreated(created)
		}
		if scheduler != nil {
			scheduler.ForceEvaluate()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(toGroupResponse(created.GroupWithWindows, created.MemberIDs))
	}
}

// GetGroup returns a single group by ID.
func GetGroup(repo *storage.GroupRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		group, err := repo.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query group")
			return
		}
		if group == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Group not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toGroupResponse(group.GroupWithWindows, group.MemberIDs))
	}
}

// UpdateGroup updates a group's name and optionally replaces its windows
// or members.
func UpdateGroup(repo *storage.GroupRepository, hub *websocket.Hub, scheduler *access.StatusScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		var req struct {
			Name        *string             `json:"name"`
			TimeWindows []TimeWindowPayload `json:"time_windows"`
			MemberIDs   []string            `json:"member_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.TimeWindows != nil {
			if msg := validateWindows(req.TimeWindows); msg != "" {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, msg)
				return
			}
		}

		existing, err := repo.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query group")
			return
		}
		if existing == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Group not found")
			return
		}

		if req.Name != nil {
			if *req.Name == "" {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Name cannot be empty")
				return
			}

			// Check for duplicate name (exclude the group being renamed)
			exists, err := repo.NameExists(ctx, *req.Name, id)
			if err == nil && exists {
				middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "A group with this name already exists")
				return
			}

			existing.Group.Name = *req.Name
			if err := repo.Update(ctx, &existing.Group); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update group")
				return
			}
		}

		if req.TimeWindows != nil {
			if err := repo.SetTimeWindows(ctx, id, toWindowModels(req.TimeWindows)); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to store time windows")
				return
			}
		}
		if req.MemberIDs != nil {
			if err := repo.SetMembers(ctx, id, req.MemberIDs); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to store group members")
				return
			}
		}

		if hub != nil {
			if updated, err := repo.GetByID(ctx, id); err == nil && updated != nil {
				websocket.NewEventBroadcaster(hub).BroadcastGroupUpdated(updated)
			}
		}
		if scheduler != nil {
			scheduler.ForceEvaluate()
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteGroup removes a group; its windows and memberships go with it.
func DeleteGroup(repo *storage.GroupRepository, hub *websocket.Hub, scheduler *access.StatusScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		existing, err := repo.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query group")
			return
		}
		if existing == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Group not found")
			return
		}

		if err := repo.Delete(ctx, id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete group")
			return
		}

		if hub != nil {
			websocket.NewEventBroadcaster(hub).BroadcastGroupDeleted(id, existing.Name)
		}
		if scheduler != nil {
			scheduler.ForceEvaluate()
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// GetGroupTimeWindows returns a group's time windows.
func GetGroupTimeWindows(repo *storage.GroupRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		group, err := repo.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query group")
			return
		}
		if group == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Group not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toWindowPayloads(group.TimeWindows))
	}
}

// SetGroupTimeWindows replaces a group's time windows with the given set.
func SetGroupTimeWindows(repo *storage.GroupRepository, hub *websocket.Hub, scheduler *access.StatusScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		var req []TimeWindowPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if msg := validateWindows(req); msg != "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, msg)
			return
		}

		group, err := repo.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query group")
			return
		}
		if group == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Group not found")
			return
		}

		if err := repo.SetTimeWindows(ctx, id, toWindowModels(req)); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to store time windows")
			return
		}

		if hub != nil {
			if updated, err := repo.GetByID(ctx, id); err == nil && updated != nil {
				websocket.NewEventBroadcaster(hub).BroadcastGroupUpdated(updated)
			}
		}
		if scheduler != nil {
			scheduler.ForceEvaluate()
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// GetGroupMembers returns the user IDs belonging to a group.
func GetGroupMembers(repo *storage.GroupRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		group, err := repo.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query group")
			return
		}
		if group == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Group not found")
			return
		}

		members := group.MemberIDs
		if members == nil {
			members = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(members)
	}
}

// SetGroupMembers replaces a group's membership with the given user IDs.
func SetGroupMembers(repo *storage.GroupRepository, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		var req []string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		group, err := repo.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query group")
			return
		}
		if group == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Group not found")
			return
		}

		if err := repo.SetMembers(ctx, id, req); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to store group members")
			return
		}

		if hub != nil {
			if updated, err := repo.GetByID(ctx, id); err == nil && updated != nil {
				websocket.NewEventBroadcaster(hub).BroadcastGroupUpdated(updated)
			}
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// validateWindows checks every payload for a known type and the fields that
// type requires. Returns an empty string when all windows are valid.
func validateWindows(payloads []TimeWindowPayload) string {
	for _, p := range payloads {
		if !models.KnownWindowType(p.Type) {
			return "Unknown window type: " + p.Type
		}

		switch p.Type {
		case models.WindowTypeDaily:
			if msg := validateClockTimes(p); msg != "" {
				return msg
			}
		case models.WindowTypeWeekly:
			if msg := validateClockTimes(p); msg != "" {
				return msg
			}
			if len(p.DaysOfWeek) == 0 {
				return "Weekly windows require days_of_week"
			}
			for _, d := range p.DaysOfWeek {
				if d < 0 || d > 6 {
					return "days_of_week values must be between 0 (Sunday) and 6 (Saturday)"
				}
			}
		case models.WindowTypeDateRange, models.WindowTypeException:
			if p.StartDate == "" || p.EndDate == "" {
				return "Date windows require start_date and end_date"
			}
			if _, err := time.Parse("2006-01-02", p.StartDate); err != nil {
				return "start_date must be formatted as YYYY-MM-DD"
			}
			if _, err := time.Parse("2006-01-02", p.EndDate); err != nil {
				return "end_date must be formatted as YYYY-MM-DD"
			}
		}
	}
	return ""
}

func validateClockTimes(p TimeWindowPayload) string {
	if p.StartTime == "" || p.EndTime == "" {
		return "Clock windows require start_time and end_time"
	}
	if _, err := time.Parse("15:04", p.StartTime); err != nil {
		return "start_time must be formatted as HH:MM"
	}
	if _, err := time.Parse("15:04", p.EndTime); err != nil {
		return "end_time must be formatted as HH:MM"
	}
	return ""
}

func toWindowModels(payloads []TimeWindowPayload) []models.TimeWindow {
	windows := make([]models.TimeWindow, 0, len(payloads))
	for _, p := range payloads {
		windows = append(windows, models.TimeWindow{
			ID:         p.ID,
			Name:       p.Name,
			Type:       p.Type,
			StartTime:  p.StartTime,
			EndTime:    p.EndTime,
			DaysOfWeek: p.DaysOfWeek,
			StartDate:  p.StartDate,
			EndDate:    p.EndDate,
			Timezone:   p.Timezone,
			IsActive:   p.IsActive,
		})
	}
	return windows
}

func toWindowPayloads(windows []models.TimeWindow) []TimeWindowPayload {
	payloads := make([]TimeWindowPayload, 0, len(windows))
	for _, w := range windows {
		payloads = append(payloads, TimeWindowPayload{
			ID:         w.ID,
			Name:       w.Name,
			Type:       w.Type,
			StartTime:  w.StartTime,
			EndTime:    w.EndTime,
			DaysOfWeek: w.DaysOfWeek,
			StartDate:  w.StartDate,
			EndDate:    w.EndDate,
			Timezone:   w.Timezone,
			IsActive:   w.IsActive,
		})
	}
	return payloads
}

func toGroupResponse(group models.GroupWithWindows, members []string) GroupResponse {
	if members == nil {
		members = []string{}
	}
	return GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		TimeWindows: toWindowPayloads(group.TimeWindows),
		MemberIDs:   members,
		CreatedAt:   group.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   group.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
