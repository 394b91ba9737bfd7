package database

import (
	"context"
	"testing"
	"time"

	"github.com/actionsum/devtrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActivity(app string, typ models.ActivityType, start time.Time, seconds int64) *models.ActivityLog {
	return &models.ActivityLog{
		AppName:         app,
		WindowTitle:     app + " window",
		ActivityType:    typ,
		StartedAt:       start,
		EndedAt:         start.Add(time.Duration(seconds) * time.Second),
		DurationSeconds: seconds,
	}
}

func TestInsertActivity(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	log := newActivity("code", models.ActivityCode, start, 42)
	log.FilePath = "main.go"
	log.Metadata = map[string]any{"session_id": "01HX"}
	require.NoError(t, repo.InsertActivity(ctx, log))
	assert.NotZero(t, log.ID)

	got, err := repo.LatestActivity(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "main.go", got.FilePath)
	assert.Equal(t, int64(42), got.DurationSeconds)
	assert.True(t, got.StartedAt.Equal(start))
	assert.Equal(t, "01HX", got.Metadata["session_id"])
	assert.Nil(t, got.ProjectID)
}

func TestInsertActivity_RejectsUnknownType(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	log := newActivity("steam", models.ActivityType("gaming"), time.Now(), 30)
	err := repo.InsertActivity(ctx, log)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)

	count, err := repo.CountActivities(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInsertActivity_RejectsShortInterval(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	err := repo.InsertActivity(context.Background(), newActivity("code", models.ActivityCode, time.Now(), 4))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestInsertActivity_RejectsInconsistentInterval(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	mismatch := newActivity("code", models.ActivityCode, time.Now(), 30)
	mismatch.DurationSeconds = 45
	err := repo.InsertActivity(ctx, mismatch)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.False(t, IsTransient(err))

	reversed := newActivity("code", models.ActivityCode, time.Now(), 30)
	reversed.EndedAt = reversed.StartedAt.Add(-time.Minute)
	err = repo.InsertActivity(ctx, reversed)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLatestActivity_Empty(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	got, err := repo.LatestActivity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestActivitiesBetween(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.InsertActivity(ctx, newActivity("a", models.ActivityCode, base, 60)))
	require.NoError(t, repo.InsertActivity(ctx, newActivity("b", models.ActivityBrowsing, base.Add(2*time.Hour), 60)))
	require.NoError(t, repo.InsertActivity(ctx, newActivity("c", models.ActivityDesign, base.Add(5*time.Hour), 60)))

	logs, err := repo.ActivitiesBetween(ctx, base.Add(30*time.Second), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "a", logs[0].AppName)
	assert.Equal(t, "b", logs[1].AppName)
}

func TestProjects(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	p := &models.Project{Name: "proj", Path: "/home/dev/proj", Tags: []string{"go"}}
	require.NoError(t, repo.InsertProject(ctx, p))
	require.NotEmpty(t, p.ID)
	assert.NotEmpty(t, p.Color)

	byPath, err := repo.GetProjectByPath(ctx, "/home/dev/proj")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byPath.ID)
	assert.Equal(t, []string{"go"}, byPath.Tags)

	byID, err := repo.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "proj", byID.Name)

	_, err = repo.GetProjectByPath(ctx, "/nowhere")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.InsertProject(ctx, &models.Project{Name: "again", Path: "/home/dev/proj"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestInsertProjects_Batch(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	existing := &models.Project{Name: "old", Path: "/src/old"}
	require.NoError(t, repo.InsertProject(ctx, existing))

	stored, err := repo.InsertProjects(ctx, []*models.Project{
		{Name: "new", Path: "/src/new"},
		{Name: "renamed", Path: "/src/old"},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "new", stored[0].Name)
	assert.Equal(t, existing.ID, stored[1].ID)
	assert.Equal(t, "old", stored[1].Name)

	all, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestInsertProjects_AllOrNothing(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.InsertProjects(ctx, []*models.Project{
		{ID: "same", Name: "one", Path: "/src/one"},
		{ID: "same", Name: "two", Path: "/src/two"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)

	all, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "partial batch was committed")
}

func TestTouchProject(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	p := &models.Project{Name: "proj", Path: "/p"}
	require.NoError(t, repo.InsertProject(ctx, p))

	later := time.Now().Add(time.Hour)
	require.NoError(t, repo.TouchProject(ctx, p.ID, later))

	got, err := repo.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(later.UTC()), "updated_at = %s, want %s", got.UpdatedAt, later)

	// Markers never move backwards.
	require.NoError(t, repo.TouchProject(ctx, p.ID, later.Add(-2*time.Hour)))
	got, err = repo.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(later.UTC()))
}

func TestSummaries(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	p := &models.Project{Name: "proj", Path: "/p"}
	require.NoError(t, repo.InsertProject(ctx, p))

	coding := newActivity("Code", models.ActivityCode, base, 100)
	coding.ProjectID = &p.ID
	require.NoError(t, repo.InsertActivity(ctx, coding))
	require.NoError(t, repo.InsertActivity(ctx, newActivity("code", models.ActivityCode, base.Add(time.Hour), 50)))
	require.NoError(t, repo.InsertActivity(ctx, newActivity("firefox", models.ActivityBrowsing, base.Add(2*time.Hour), 30)))

	idle := newActivity("idle", models.ActivityOther, base.Add(3*time.Hour), 600)
	idle.IsIdle = true
	require.NoError(t, repo.InsertActivity(ctx, idle))

	end := base.Add(24 * time.Hour)

	byType, err := repo.SummaryByType(ctx, base, end, true)
	require.NoError(t, err)
	require.Len(t, byType, 2)
	assert.Equal(t, "code", byType[0].Key)
	assert.Equal(t, int64(150), byType[0].TotalSeconds)
	assert.Equal(t, 2, byType[0].SessionCount)

	withIdle, err := repo.SummaryByType(ctx, base, end, false)
	require.NoError(t, err)
	assert.Equal(t, "other", withIdle[0].Key)

	byApp, err := repo.SummaryByApp(ctx, base, end, true)
	require.NoError(t, err)
	require.Len(t, byApp, 2)
	assert.Equal(t, "code", byApp[0].Key)

	byProject, err := repo.SummaryByProject(ctx, base, end, true)
	require.NoError(t, err)
	require.Len(t, byProject, 2)
	assert.Equal(t, p.ID, byProject[0].Key)
	assert.Equal(t, "proj", byProject[0].Label)
	assert.Equal(t, "", byProject[1].Key)
}

func TestClear(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.InsertActivity(ctx, newActivity("a", models.ActivityCode, time.Now(), 10)))
	require.NoError(t, repo.CreateErrorLog(ctx, &models.ErrorLog{Timestamp: time.Now(), Source: "probe", ErrorMsg: "boom"}))
	require.NoError(t, repo.InsertProject(ctx, &models.Project{Name: "p", Path: "/p"}))

	require.NoError(t, repo.Clear(ctx))

	count, err := repo.CountActivities(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	projects, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}
