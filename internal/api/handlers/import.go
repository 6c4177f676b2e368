package handlers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/promptgate/backend/internal/access"
	"github.com/promptgate/backend/internal/api/middleware"
	"github.com/promptgate/backend/internal/storage"
	"github.com/promptgate/backend/internal/storage/models"
	"github.com/promptgate/backend/internal/websocket"
)

//go:embed schemas/group_import.schema.json
var groupImportSchema string

var (
	importSchemaOnce sync.Once
	importSchema     *jsonschema.Schema
	importSchemaErr  error
)

func compiledImportSchema() (*jsonschema.Schema, error) {
	importSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("group_import.schema.json", strings.NewReader(groupImportSchema)); err != nil {
			importSchemaErr = err
			return
		}
		importSchema, importSchemaErr = compiler.Compile("group_import.schema.json")
	})
	return importSchema, importSchemaErr
}

// ImportGroupPayload is one group in an import request.
type ImportGroupPayload struct {
	Name        string              `json:"name"`
	TimeWindows []TimeWindowPayload `json:"time_windows"`
	MemberIDs   []string            `json:"member_ids"`
}

// ImportRequest is a batch of groups to create atomically.
type ImportRequest struct {
	Groups []ImportGroupPayload `json:"groups"`
}

// ImportResponse reports the outcome of an import.
type ImportResponse struct {
	Imported int             `json:"imported"`
	Groups   []GroupResponse `json:"groups"`
}

// ImportGroups creates a batch of groups from a schema-validated payload.
// The batch is all-or-nothing: any invalid group rejects the whole request.
func ImportGroups(repo *storage.GroupRepository, hub *websocket.Hub, scheduler *access.StatusScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Failed to read request body")
			return
		}

		schema, err := compiledImportSchema()
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Import schema unavailable")
			return
		}

		var payload any
		if err := json.Unmarshal(raw, &payload); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if err := schema.Validate(payload); err != nil {
			middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation,
				"Import payload failed schema validation", err.Error())
			return
		}

		// Strict decode catches fields the schema missed.
		var req ImportRequest
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		seen := make(map[string]bool)
		for _, g := range req.Groups {
			if msg := validateWindows(g.TimeWindows); msg != "" {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, msg)
				return
			}

			lower := strings.ToLower(g.Name)
			if seen[lower] {
				middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict,
					"Duplicate group name in import: "+g.Name)
				return
			}
			seen[lower] = true

			exists, err := repo.NameExists(ctx, g.Name, "")
			if err == nil && exists {
				middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict,
					"A group with this name already exists: "+g.Name)
				return
			}
		}

		batch := make([]models.GroupWithMembers, 0, len(req.Groups))
		for _, g := range req.Groups {
			batch = append(batch, models.GroupWithMembers{
				GroupWithWindows: models.GroupWithWindows{
					Group:       models.Group{Name: g.Name},
					TimeWindows: toWindowModels(g.TimeWindows),
				},
				MemberIDs: g.MemberIDs,
			})
		}

		if err := repo.Import(ctx, batch); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to import groups")
			return
		}

		resp := ImportResponse{Imported: len(batch), Groups: make([]GroupResponse, 0, len(batch))}
		var broadcaster *websocket.EventBroadcaster
		if hub != nil {
			broadcaster = websocket.NewEventBroadcaster(hub)
		}
		for i := range batch {
			created, err := repo.GetByID(ctx, batch[i].ID)
			if err != nil || created == nil {
				continue
			}
			resp.Groups = append(resp.Groups, toGroupResponse(created.GroupWithWindows, created.MemberIDs))

			if broadcaster != nil {
				broadcaster.BroadcastGroupCreated(created)
			}
		}
		if broadcaster != nil {
			broadcaster.BroadcastNotification("success", "Groups Imported",
				fmt.Sprintf("Imported %d groups", len(batch)))
		}

		if scheduler != nil {
			scheduler.ForceEvaluate()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(resp)
	}
}
