package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/promptgate/backend/internal/storage/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "promptgate-test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return db
}

func TestGroupCRUD(t *testing.T) {
	repo := NewGroupRepository(newTestDB(t))
	ctx := context.Background()

	group := &models.Group{Name: "Engineering"}
	if err := repo.Create(ctx, group); err != nil {
		t.Fatalf("creating group: %v", err)
	}
	if group.ID == "" {
		t.Fatal("create should assign an ID")
	}

	got, err := repo.GetByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("getting group: %v", err)
	}
	if got == nil || got.Name != "Engineering" {
		t.Fatalf("got %+v, want Engineering", got)
	}
	if len(got.TimeWindows) != 0 || len(got.MemberIDs) != 0 {
		t.Fatalf("fresh group should have no windows or members, got %+v", got)
	}

	group.Name = "Platform"
	if err := repo.Update(ctx, group); err != nil {
		t.Fatalf("updating group: %v", err)
	}
	got, err = repo.GetByID(ctx, group.ID)
	if err != nil || got == nil || got.Name != "Platform" {
		t.Fatalf("after rename got %+v (err %v), want Platform", got, err)
	}

	if err := repo.Delete(ctx, group.ID); err != nil {
		t.Fatalf("deleting group: %v", err)
	}
	got, err = repo.GetByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("getting deleted group: %v", err)
	}
	if got != nil {
		t.Fatalf("deleted group still present: %+v", got)
	}
}

func TestGroupNameExists(t *testing.T) {
	repo := NewGroupRepository(newTestDB(t))
	ctx := context.Background()

	group := &models.Group{Name: "Engineering"}
	if err := repo.Create(ctx, group); err != nil {
		t.Fatalf("creating group: %v", err)
	}

	exists, err := repo.NameExists(ctx, "engineering", "")
	if err != nil {
		t.Fatalf("checking name: %v", err)
	}
	if !exists {
		t.Error("name check should be case-insensitive")
	}

	// The group itself is excluded when renaming.
	exists, err = repo.NameExists(ctx, "Engineering", group.ID)
	if err != nil {
		t.Fatalf("checking name: %v", err)
	}
	if exists {
		t.Error("a group must not collide with its own name")
	}
}

func TestSetTimeWindowsReplaces(t *testing.T) {
	repo := NewGroupRepository(newTestDB(t))
	ctx := context.Background()

	group := &models.Group{Name: "Engineering"}
	if err := repo.Create(ctx, group); err != nil {
		t.Fatalf("creating group: %v", err)
	}

	windows := []models.TimeWindow{
		{Name: "Business hours", Type: models.WindowTypeWeekly, DaysOfWeek: []int{1, 2, 3, 4, 5},
			StartTime: "09:00", EndTime: "17:00", IsActive: true},
		{Name: "Maintenance", Type: models.WindowTypeException,
			StartDate: "2024-03-01", EndDate: "2024-03-02", IsActive: true},
	}
	if err := repo.SetTimeWindows(ctx, group.ID, windows); err != nil {
		t.Fatalf("setting windows: %v", err)
	}

	got, err := repo.GetTimeWindows(ctx, group.ID)
	if err != nil {
		t.Fatalf("getting windows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d windows, want 2", len(got))
	}
	if got[0].StartTime != "09:00" || got[0].EndTime != "17:00" {
		t.Errorf("times did not round-trip: %+v", got[0])
	}
	if len(got[0].DaysOfWeek) != 5 || got[0].DaysOfWeek[0] != 1 || got[0].DaysOfWeek[4] != 5 {
		t.Errorf("days did not round-trip: %v", got[0].DaysOfWeek)
	}
	if got[1].Type != models.WindowTypeException || got[1].EndDate != "2024-03-02" {
		t.Errorf("exception window did not round-trip: %+v", got[1])
	}

	// Replacing drops the previous set.
	replacement := []models.TimeWindow{
		{Name: "Evenings", Type: models.WindowTypeDaily, StartTime: "18:00", EndTime: "22:00", IsActive: true},
	}
	if err := repo.SetTimeWindows(ctx, group.ID, replacement); err != nil {
		t.Fatalf("replacing windows: %v", err)
	}
	got, err = repo.GetTimeWindows(ctx, group.ID)
	if err != nil {
		t.Fatalf("getting windows: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Evenings" {
		t.Fatalf("replacement did not take effect: %+v", got)
	}
}

func TestMembershipAndUserGroups(t *testing.T) {
	repo := NewGroupRepository(newTestDB(t))
	ctx := context.Background()

	engineering := &models.Group{Name: "Engineering"}
	support := &models.Group{Name: "Support"}
	for _, g := range []*models.Group{engineering, support} {
		if err := repo.Create(ctx, g); err != nil {
			t.Fatalf("creating group: %v", err)
		}
	}
	if err := repo.SetTimeWindows(ctx, engineering.ID, []models.TimeWindow{
		{Type: models.WindowTypeDaily, StartTime: "09:00", EndTime: "17:00", IsActive: true},
	}); err != nil {
		t.Fatalf("setting windows: %v", err)
	}

	if err := repo.SetMembers(ctx, engineering.ID, []string{"alice", "bob"}); err != nil {
		t.Fatalf("setting members: %v", err)
	}
	if err := repo.SetMembers(ctx, support.ID, []string{"bob"}); err != nil {
		t.Fatalf("setting members: %v", err)
	}

	groups, err := repo.GetUserGroups(ctx, "alice")
	if err != nil {
		t.Fatalf("getting user groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "Engineering" {
		t.Fatalf("alice's groups = %+v, want Engineering only", groups)
	}
	if len(groups[0].TimeWindows) != 1 || groups[0].TimeWindows[0].StartTime != "09:00" {
		t.Fatalf("windows not preloaded: %+v", groups[0].TimeWindows)
	}

	groups, err = repo.GetUserGroups(ctx, "bob")
	if err != nil {
		t.Fatalf("getting user groups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("bob's groups = %+v, want both", groups)
	}

	groups, err = repo.GetUserGroups(ctx, "nobody")
	if err != nil {
		t.Fatalf("getting user groups: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("unknown user's groups = %+v, want none", groups)
	}

	// Membership replacement removes dropped users.
	if err := repo.SetMembers(ctx, engineering.ID, []string{"carol"}); err != nil {
		t.Fatalf("replacing members: %v", err)
	}
	members, err := repo.GetMembers(ctx, engineering.ID)
	if err != nil {
		t.Fatalf("getting members: %v", err)
	}
	if len(members) != 1 || members[0] != "carol" {
		t.Fatalf("members = %v, want [carol]", members)
	}
}

func TestImportRollsBackOnFailure(t *testing.T) {
	repo := NewGroupRepository(newTestDB(t))
	ctx := context.Background()

	// The duplicate primary key makes the second insert fail; the first
	// group must not survive.
	batch := []models.GroupWithMembers{
		{GroupWithWindows: models.GroupWithWindows{Group: models.Group{ID: "dup", Name: "First"}}},
		{GroupWithWindows: models.GroupWithWindows{Group: models.Group{ID: "dup", Name: "Second"}}},
	}
	if err := repo.Import(ctx, batch); err == nil {
		t.Fatal("import with duplicate IDs should fail")
	}

	groups, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("listing groups: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("failed import left %d groups behind", len(groups))
	}
}

func TestImportCreatesGroupsWithWindows(t *testing.T) {
	repo := NewGroupRepository(newTestDB(t))
	ctx := context.Background()

	batch := []models.GroupWithMembers{
		{
			GroupWithWindows: models.GroupWithWindows{
				Group: models.Group{Name: "Imported"},
				TimeWindows: []models.TimeWindow{
					{Type: models.WindowTypeDaily, StartTime: "08:00", EndTime: "12:00", IsActive: true},
				},
			},
			MemberIDs: []string{"alice", "bob"},
		},
	}
	if err := repo.Import(ctx, batch); err != nil {
		t.Fatalf("importing: %v", err)
	}

	groups, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("listing groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "Imported" {
		t.Fatalf("groups = %+v", groups)
	}
	if len(groups[0].TimeWindows) != 1 || groups[0].TimeWindows[0].EndTime != "12:00" {
		t.Fatalf("imported windows = %+v", groups[0].TimeWindows)
	}

	members, err := repo.GetMembers(ctx, groups[0].ID)
	if err != nil {
		t.Fatalf("getting members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("imported members = %v, want alice and bob", members)
	}
}

func TestSettingsRepository(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))
	ctx := context.Background()

	// The initial migration seeds the policy defaults.
	value, err := repo.Get(ctx, "default_allow_when_no_groups")
	if err != nil {
		t.Fatalf("getting seeded setting: %v", err)
	}
	if value != "false" {
		t.Fatalf("seeded default_allow_when_no_groups = %q, want false", value)
	}

	if err := repo.Set(ctx, "default_allow_when_no_groups", "true"); err != nil {
		t.Fatalf("setting value: %v", err)
	}
	value, err = repo.Get(ctx, "default_allow_when_no_groups")
	if err != nil || value != "true" {
		t.Fatalf("updated value = %q (err %v), want true", value, err)
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("getting all settings: %v", err)
	}
	if all["default_allow_when_no_time_windows"] != "true" {
		t.Fatalf("settings map = %v", all)
	}

	value, err = repo.Get(ctx, "missing_key")
	if err != nil || value != "" {
		t.Fatalf("missing key = %q (err %v), want empty", value, err)
	}
}
