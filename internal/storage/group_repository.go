package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/promptgate/backend/internal/storage/models"
)

// GroupRepository handles database operations for groups, their time
// windows, and their memberships. Its GetUserGroups method is the
// membership provider behind the access evaluator.
type GroupRepository struct {
	BaseRepository
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *DB) *GroupRepository {
	return &GroupRepository{BaseRepository: NewBaseRepository(db)}
}

// Create creates a new group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = GenerateID()
	}
	group.CreatedAt = r.Now()
	group.UpdatedAt = group.CreatedAt

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO groups (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, group.ID, group.Name, group.CreatedAt, group.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting group: %w", err)
	}

	return nil
}

// GetByID retrieves a group by ID with its windows and member IDs.
// Returns nil when no such group exists.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*models.GroupWithMembers, error) {
	var group models.GroupWithMembers
	err := r.DB().QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM groups WHERE id = ?
	`, id).Scan(&group.ID, &group.Name, &group.CreatedAt, &group.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying group: %w", err)
	}

	windows, err := r.GetTimeWindows(ctx, id)
	if err != nil {
		return nil, err
	}
	group.TimeWindows = windows

	members, err := r.GetMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	group.MemberIDs = members

	return &group, nil
}

// List retrieves all groups with their time windows.
func (r *GroupRepository) List(ctx context.Context) ([]models.GroupWithWindows, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM groups ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()

	var groups []models.GroupWithWindows
	for rows.Next() {
		var g models.GroupWithWindows
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		windows, err := r.GetTimeWindows(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].TimeWindows = windows
	}

	return groups, nil
}

// Update updates a group's name.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE groups SET name = ?, updated_at = ? WHERE id = ?
	`, group.Name, group.UpdatedAt, group.ID)
	if err != nil {
		return fmt.Errorf("updating group: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("group not found: %s", group.ID)
	}

	return nil
}

// Delete deletes a group; its windows and memberships cascade.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("group not found: %s", id)
	}

	return nil
}

// NameExists reports whether another group already uses the name
// (case-insensitive). excludeID skips the group being renamed.
func (r *GroupRepository) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	var count int
	err := r.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM groups WHERE LOWER(name) = LOWER(?) AND id != ?
	`, name, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking group name: %w", err)
	}
	return count > 0, nil
}

// GetTimeWindows retrieves all time windows for a group.
func (r *GroupRepository) GetTimeWindows(ctx context.Context, groupID string) ([]models.TimeWindow, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, group_id, name, type, start_time, end_time, days_of_week,
		       start_date, end_date, timezone, is_active, created_at, updated_at
		FROM time_windows WHERE group_id = ?
		ORDER BY created_at, id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying time windows: %w", err)
	}
	defer rows.Close()

	var windows []models.TimeWindow
	for rows.Next() {
		var w models.TimeWindow
		var days string
		if err := rows.Scan(&w.ID, &w.GroupID, &w.Name, &w.Type, &w.StartTime, &w.EndTime,
			&days, &w.StartDate, &w.EndDate, &w.Timezone, &w.IsActive,
			&w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning time window: %w", err)
		}
		w.DaysOfWeek = splitDays(days)
		windows = append(windows, w)
	}

	return windows, rows.Err()
}

// SetTimeWindows replaces all time windows for a group.
func (r *GroupRepository) SetTimeWindows(ctx context.Context, groupID string, windows []models.TimeWindow) error {
	if _, err := r.DB().ExecContext(ctx, "DELETE FROM time_windows WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("clearing time windows: %w", err)
	}
	return r.insertTimeWindows(ctx, r.DB(), groupID, windows)
}

// insertTimeWindows inserts windows for a group on any queryable handle, so
// bulk imports can run it inside a transaction.
func (r *GroupRepository) insertTimeWindows(ctx context.Context, q Queryable, groupID string, windows []models.TimeWindow) error {
	now := r.Now()
	for _, w := range windows {
		id := w.ID
		if id == "" {
			id = GenerateID()
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO time_windows (id, group_id, name, type, start_time, end_time,
			                          days_of_week, start_date, end_date, timezone,
			                          is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, groupID, w.Name, w.Type, w.StartTime, w.EndTime, joinDays(w.DaysOfWeek),
			w.StartDate, w.EndDate, w.Timezone, w.IsActive, now, now); err != nil {
			return fmt.Errorf("inserting time window: %w", err)
		}
	}
	return nil
}

// GetMembers retrieves the user IDs belonging to a group.
func (r *GroupRepository) GetMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		members = append(members, userID)
	}

	return members, rows.Err()
}

// SetMembers replaces a group's membership with the given user IDs.
// Empty IDs are skipped; duplicates collapse via the primary key.
func (r *GroupRepository) SetMembers(ctx context.Context, groupID string, userIDs []string) error {
	if _, err := r.DB().ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("clearing members: %w", err)
	}

	now := r.Now()
	for _, userID := range userIDs {
		if userID == "" {
			continue
		}
		if _, err := r.DB().ExecContext(ctx, `
			INSERT OR IGNORE INTO group_members (group_id, user_id, added_at)
			VALUES (?, ?, ?)
		`, groupID, userID, now); err != nil {
			return fmt.Errorf("inserting member: %w", err)
		}
	}
	return nil
}

// GetUserGroups retrieves the groups a user belongs to, windows included.
// A user in no groups yields a nil slice. This implements the evaluator's
// GroupProvider interface.
func (r *GroupRepository) GetUserGroups(ctx context.Context, userID string) ([]models.GroupWithWindows, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT g.id, g.name, g.created_at, g.updated_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ?
		ORDER BY g.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user groups: %w", err)
	}
	defer rows.Close()

	var groups []models.GroupWithWindows
	for rows.Next() {
		var g models.GroupWithWindows
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning user group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		windows, err := r.GetTimeWindows(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].TimeWindows = windows
	}

	return groups, nil
}

// Import creates a batch of groups with their windows and members in one
// transaction, so a failure partway leaves nothing behind.
func (r *GroupRepository) Import(ctx context.Context, groups []models.GroupWithMembers) error {
	return r.Transaction(func(tx *sql.Tx) error {
		now := r.Now()
		for i := range groups {
			g := &groups[i]
			if g.ID == "" {
				g.ID = GenerateID()
			}
			g.CreatedAt = now
			g.UpdatedAt = now

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO groups (id, name, created_at, updated_at)
				VALUES (?, ?, ?, ?)
			`, g.ID, g.Name, g.CreatedAt, g.UpdatedAt); err != nil {
				return fmt.Errorf("inserting group %s: %w", g.Name, err)
			}

			if err := r.insertTimeWindows(ctx, tx, g.ID, g.TimeWindows); err != nil {
				return err
			}

			for _, userID := range g.MemberIDs {
				if userID == "" {
					continue
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT OR IGNORE INTO group_members (group_id, user_id, added_at)
					VALUES (?, ?, ?)
				`, g.ID, userID, now); err != nil {
					return fmt.Errorf("inserting member: %w", err)
				}
			}
		}
		return nil
	})
}

// joinDays encodes a day-of-week set as a comma-separated string.
func joinDays(days []int) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}

// splitDays decodes a comma-separated day-of-week string.
func splitDays(value string) []int {
	if value == "" {
		return nil
	}
	var days []int
	for _, part := range strings.Split(value, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	return days
}
