package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/actionsum/devtrack/internal/classifier"
	"github.com/actionsum/devtrack/internal/database"
	"github.com/actionsum/devtrack/internal/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore records inserted intervals. Queued failures are returned one per
// call before inserts succeed again.
type memStore struct {
	mu       sync.Mutex
	logs     []*models.ActivityLog
	failures []error
	always   error
}

func (m *memStore) InsertActivity(ctx context.Context, a *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.always != nil {
		return m.always
	}
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return err
	}
	m.logs = append(m.logs, a)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func sample(app, title string, at time.Duration) Activity {
	return Activity{
		AppName:     app,
		WindowTitle: title,
		Type:        classifier.Classify(app, title),
		FilePath:    classifier.ExtractFilePath(title),
		Timestamp:   t0.Add(at),
	}
}

func TestMinimumDurationDiscard(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"four seconds", 4 * time.Second, 0},
		{"just under five", 4999 * time.Millisecond, 0},
		{"five seconds", 5 * time.Second, 1},
		{"ten seconds", 10 * time.Second, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			a := New(store, DefaultOptions())
			ctx := context.Background()

			require.NoError(t, a.Observe(ctx, sample("kitty", "vim", 0)))
			require.NoError(t, a.Observe(ctx, sample("Slack", "general", tt.elapsed)))

			assert.Equal(t, tt.want, store.count())
			if tt.want == 1 {
				assert.GreaterOrEqual(t, store.logs[0].DurationSeconds, int64(models.MinDurationSeconds))
			}
		})
	}
}

func TestIdentityStability(t *testing.T) {
	store := &memStore{}
	a := New(store, DefaultOptions())
	ctx := context.Background()

	const title = "resolver.go - devtrack - Visual Studio Code"
	require.NoError(t, a.Observe(ctx, sample("Code", title, 0)))
	first := a.Current()
	require.NotNil(t, first)

	for i := 1; i <= 5; i++ {
		require.NoError(t, a.Observe(ctx, sample("Code", title, time.Duration(2*i)*time.Second)))
		cur := a.Current()
		require.NotNil(t, cur)
		assert.Equal(t, first.ID, cur.ID)
		assert.Equal(t, first.StartedAt, cur.StartedAt)
	}
	assert.Equal(t, 0, store.count())
	assert.Equal(t, StateTracking, a.State())

	require.NoError(t, a.Observe(ctx, sample("Slack", "general", 12*time.Second)))
	require.Equal(t, 1, store.count())

	got := store.logs[0]
	assert.Equal(t, int64(12), got.DurationSeconds)
	assert.Equal(t, t0, got.StartedAt)
	assert.Equal(t, t0.Add(12*time.Second), got.EndedAt)
	assert.Equal(t, first.ID, got.Metadata["session_id"])
	assert.Equal(t, string(ReasonSwitch), got.Metadata["close_reason"])
	// The last identical sample is kept alongside the billed end.
	assert.Equal(t, t0.Add(10*time.Second).UTC().Format(time.RFC3339Nano), got.Metadata["last_seen"])
}

func TestIdentityIsExact(t *testing.T) {
	store := &memStore{}
	a := New(store, DefaultOptions())
	ctx := context.Background()

	require.NoError(t, a.Observe(ctx, sample("Word", "Report.docx - 1,204 words", 0)))
	id := a.Current().ID
	require.NoError(t, a.Observe(ctx, sample("Word", "Report.docx - 1,205 words", 6*time.Second)))

	assert.NotEqual(t, id, a.Current().ID)
	assert.Equal(t, 1, store.count())

	require.NoError(t, a.Observe(ctx, sample("word", "Report.docx - 1,205 words", 12*time.Second)))
	assert.Equal(t, 2, store.count(), "app name comparison is case-sensitive")
}

func TestProjectPathIsPartOfIdentity(t *testing.T) {
	store := &memStore{}
	a := New(store, DefaultOptions())
	ctx := context.Background()

	act := sample("Code", "main.go - Visual Studio Code", 0)
	act.ProjectPath = "/src/a"
	act.ProjectID = "a-id"
	require.NoError(t, a.Observe(ctx, act))

	other := act
	other.Timestamp = t0.Add(8 * time.Second)
	other.ProjectPath = "/src/b"
	require.NoError(t, a.Observe(ctx, other))

	require.Equal(t, 1, store.count())
	require.NotNil(t, store.logs[0].ProjectID)
	assert.Equal(t, "a-id", *store.logs[0].ProjectID)
	assert.Equal(t, "/src/a", store.logs[0].Metadata["project_path"])
}

func TestIdleForceFlush(t *testing.T) {
	store := &memStore{}
	a := New(store, DefaultOptions())
	ctx := context.Background()

	require.NoError(t, a.Observe(ctx, sample("Code", "main.go - Visual Studio Code", 0)))
	require.NoError(t, a.Observe(ctx, sample("Code", "main.go - Visual Studio Code", 10*time.Second)))
	require.NoError(t, a.Close(ctx, t0.Add(10*time.Second), ReasonIdle))

	assert.Equal(t, StateIdle, a.State())
	assert.Nil(t, a.Current())
	require.Equal(t, 1, store.count())
	assert.Equal(t, int64(10), store.logs[0].DurationSeconds)
	assert.Equal(t, string(ReasonIdle), store.logs[0].Metadata["close_reason"])

	// Closing again while Idle is a no-op.
	require.NoError(t, a.Close(ctx, t0.Add(20*time.Second), ReasonIdle))
	assert.Equal(t, 1, store.count())
}

func TestResumeStaysIdleUntilNextSample(t *testing.T) {
	store := &memStore{}
	a := New(store, DefaultOptions())
	ctx := context.Background()

	require.NoError(t, a.Observe(ctx, sample("kitty", "htop", 0)))
	require.NoError(t, a.Close(ctx, t0.Add(3*time.Second), ReasonLock))
	assert.Equal(t, StateIdle, a.State())
	assert.Equal(t, 0, store.count(), "short session discarded on lock")

	// The same window after unlock opens a fresh session.
	require.NoError(t, a.Observe(ctx, sample("kitty", "htop", time.Minute)))
	cur := a.Current()
	require.NotNil(t, cur)
	assert.Equal(t, t0.Add(time.Minute), cur.StartedAt)
}

func TestRecordIdle(t *testing.T) {
	tests := []struct {
		name       string
		recordIdle bool
		wantLogs   int
	}{
		{"disabled", false, 1},
		{"enabled", true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			opts := DefaultOptions()
			opts.RecordIdle = tt.recordIdle
			a := New(store, opts)
			ctx := context.Background()

			require.NoError(t, a.Observe(ctx, sample("Code", "a.go - Visual Studio Code", 0)))
			require.NoError(t, a.Close(ctx, t0.Add(10*time.Second), ReasonIdle))
			require.NoError(t, a.Observe(ctx, sample("Code", "a.go - Visual Studio Code", 400*time.Second)))

			require.Equal(t, tt.wantLogs, store.count())
			if tt.recordIdle {
				idle := store.logs[1]
				assert.True(t, idle.IsIdle)
				assert.Equal(t, IdleAppName, idle.AppName)
				assert.Equal(t, models.ActivityOther, idle.ActivityType)
				assert.Equal(t, int64(390), idle.DurationSeconds)
				assert.Equal(t, string(ReasonIdle), idle.Metadata["cause"])
			}
		})
	}
}

func TestTransientFailureIsRetried(t *testing.T) {
	store := &memStore{failures: []error{errors.Wrap(database.ErrBusy, "insert")}}
	a := New(store, DefaultOptions())
	ctx := context.Background()

	require.NoError(t, a.Observe(ctx, sample("Code", "a.go - Visual Studio Code", 0)))
	err := a.Observe(ctx, sample("Slack", "random", 10*time.Second))
	assert.ErrorIs(t, err, database.ErrBusy)
	assert.Equal(t, 1, a.Pending())
	assert.Equal(t, 0, store.count())
	assert.Equal(t, "Slack", a.Current().Activity.AppName)

	require.NoError(t, a.Observe(ctx, sample("Figma", "Mockups", 20*time.Second)))
	assert.Equal(t, 0, a.Pending())
	require.Equal(t, 2, store.count())
	assert.Equal(t, "Code", store.logs[0].AppName)
	assert.Equal(t, "Slack", store.logs[1].AppName)
	assert.Equal(t, 2, a.Flushed())
}

func TestUnsafeRetryIsDropped(t *testing.T) {
	for _, kind := range []error{database.ErrDuplicate, database.ErrInvalid} {
		t.Run(kind.Error(), func(t *testing.T) {
			store := &memStore{failures: []error{errors.Wrap(kind, "insert")}}
			a := New(store, DefaultOptions())
			ctx := context.Background()

			require.NoError(t, a.Observe(ctx, sample("Code", "a.go - Visual Studio Code", 0)))
			err := a.Observe(ctx, sample("Slack", "random", 10*time.Second))
			assert.ErrorIs(t, err, kind)
			assert.Equal(t, 0, a.Pending())
			assert.Equal(t, StateTracking, a.State())
		})
	}
}

func TestCorruptionIsSurfaced(t *testing.T) {
	store := &memStore{always: errors.Wrap(database.ErrCorrupt, "insert")}
	a := New(store, DefaultOptions())
	ctx := context.Background()

	require.NoError(t, a.Observe(ctx, sample("Code", "a.go - Visual Studio Code", 0)))
	err := a.Observe(ctx, sample("Slack", "random", 10*time.Second))
	assert.ErrorIs(t, err, database.ErrCorrupt)
	assert.Equal(t, 1, a.Pending())
}

func TestPendingQueueIsBounded(t *testing.T) {
	store := &memStore{always: errors.Wrap(database.ErrBusy, "insert")}
	opts := DefaultOptions()
	opts.MaxPending = 2
	a := New(store, opts)
	ctx := context.Background()

	apps := []string{"Code", "Slack", "Figma", "Zoom", "Spotify"}
	for i, app := range apps {
		_ = a.Observe(ctx, sample(app, app, time.Duration(i*10)*time.Second))
	}
	assert.Equal(t, 2, a.Pending())
}

func TestStopFlushesOpenSession(t *testing.T) {
	store := &memStore{}
	a := New(store, DefaultOptions())
	ctx := context.Background()

	require.NoError(t, a.Observe(ctx, sample("Code", "a.go - Visual Studio Code", 0)))
	require.NoError(t, a.Close(ctx, t0.Add(30*time.Second), ReasonStop))

	assert.Equal(t, StateIdle, a.State())
	require.Equal(t, 1, store.count())
	assert.Equal(t, int64(30), store.logs[0].DurationSeconds)
	assert.Equal(t, string(ReasonStop), store.logs[0].Metadata["close_reason"])
}

func TestEndToEndScenario(t *testing.T) {
	db, err := database.Connect(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	defer db.Close()
	repo := database.NewRepository(db)

	a := New(repo, DefaultOptions())
	ctx := context.Background()

	const (
		vscode = "Visual Studio Code"
		title  = "main.ts - proj - Visual Studio Code"
	)
	for tick := 0; tick < 5; tick++ {
		require.NoError(t, a.Observe(ctx, sample(vscode, title, time.Duration(2*tick)*time.Second)))
	}
	count, err := repo.CountActivities(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, a.Observe(ctx, sample("Google Chrome", "localhost:3000", 10*time.Second)))

	logs, err := repo.ActivitiesBetween(ctx, t0.Add(-time.Hour), t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 1)

	got := logs[0]
	assert.Equal(t, models.ActivityCode, got.ActivityType)
	assert.Equal(t, "main.ts", got.FilePath)
	assert.Equal(t, vscode, got.AppName)
	assert.InDelta(t, 10, got.DurationSeconds, 1)
	assert.False(t, got.IsIdle)

	cur := a.Current()
	require.NotNil(t, cur)
	assert.Equal(t, models.ActivityBrowsing, cur.Activity.Type)
	assert.Equal(t, t0.Add(10*time.Second), cur.StartedAt)
}
