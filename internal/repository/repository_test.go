package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusflow/backend/internal/db"
	"focusflow/backend/internal/flow"
	"focusflow/backend/internal/model"
	"focusflow/backend/internal/session"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	_, err = db.RunMigrations(database, migrationsDir)
	require.NoError(t, err)

	return database
}

func createTestUser(t *testing.T, database *sql.DB, email string) string {
	t.Helper()

	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, NewUserRepository(database).Create(context.Background(), user))
	return user.ID
}

func insertSessionRecord(t *testing.T, database *sql.DB, userID string, record *session.Record) {
	t.Helper()

	store := NewRecordStore(database)
	states := NewStateRepository(database)
	tx, err := states.BeginTx(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.InsertSessionRecordTx(context.Background(), tx, userID, record))
	require.NoError(t, tx.Commit())
}

func TestUserRepositoryRoundTrip(t *testing.T) {
	database := newTestDB(t)
	repo := NewUserRepository(database)
	ctx := context.Background()

	userID := createTestUser(t, database, "round@example.com")

	byEmail, err := repo.GetByEmail(ctx, "round@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, byEmail.ID)

	byID, err := repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "round@example.com", byID.Email)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStateRepositoryRoundTrip(t *testing.T) {
	database := newTestDB(t)
	repo := NewStateRepository(database)
	ctx := context.Background()

	userID := createTestUser(t, database, "state@example.com")
	require.NoError(t, repo.CreateInitialState(ctx, userID))

	state, err := repo.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Version)
	assert.Nil(t, state.Active)
	assert.Nil(t, state.Run)
	assert.Equal(t, model.DefaultDurationSettings(), state.Durations)

	startedAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	pausedAt := startedAt.Add(5 * time.Minute)
	state.Active = &session.Instance{
		ID:                     uuid.NewString(),
		Type:                   session.TypeDeepFocus,
		PlannedDurationSeconds: 3000,
		Status:                 session.StatusPaused,
		StartedAt:              startedAt,
		PausedAccumulated:      42*time.Second + 300*time.Millisecond,
		PauseStartedAt:         &pausedAt,
		LinkedTaskID:           "task-7",
	}
	state.Run = &flow.Run{
		ID:                 uuid.NewString(),
		FlowID:             "builtin-deep-work",
		CurrentStepIndex:   1,
		CompletedStepCount: 1,
		Status:             flow.RunPaused,
	}
	state.Durations.ClassicSeconds = 1800
	state.Version = 2
	state.UpdatedAt = pausedAt

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStateTx(ctx, tx, state))
	require.NoError(t, tx.Commit())

	loaded, err := repo.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Version)
	require.NotNil(t, loaded.Active)
	assert.Equal(t, state.Active.ID, loaded.Active.ID)
	assert.Equal(t, session.TypeDeepFocus, loaded.Active.Type)
	assert.Equal(t, session.StatusPaused, loaded.Active.Status)
	assert.True(t, loaded.Active.StartedAt.Equal(startedAt))
	assert.Equal(t, 42*time.Second+300*time.Millisecond, loaded.Active.PausedAccumulated)
	require.NotNil(t, loaded.Active.PauseStartedAt)
	assert.True(t, loaded.Active.PauseStartedAt.Equal(pausedAt))
	assert.Equal(t, "task-7", loaded.Active.LinkedTaskID)
	require.NotNil(t, loaded.Run)
	assert.Equal(t, state.Run.ID, loaded.Run.ID)
	assert.Equal(t, flow.RunPaused, loaded.Run.Status)
	assert.Equal(t, 1, loaded.Run.CompletedStepCount)
	assert.Equal(t, 1800, loaded.Durations.ClassicSeconds)

	// Clearing the session and run persists NULLs.
	loaded.Active = nil
	loaded.Run = nil
	loaded.Version = 3
	tx, err = repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStateTx(ctx, tx, loaded))
	require.NoError(t, tx.Commit())

	cleared, err := repo.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, cleared.Active)
	assert.Nil(t, cleared.Run)
	assert.Equal(t, 3, cleared.Version)
}

func TestStateRepositoryNotFound(t *testing.T) {
	database := newTestDB(t)
	repo := NewStateRepository(database)

	_, err := repo.GetState(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordStoreAppendAndQuery(t *testing.T) {
	database := newTestDB(t)
	store := NewRecordStore(database)
	ctx := context.Background()

	userID := createTestUser(t, database, "records@example.com")
	otherID := createTestUser(t, database, "other@example.com")

	day := func(d, hour int) time.Time {
		return time.Date(2025, 3, d, hour, 0, 0, 0, time.UTC)
	}
	seven := 7
	records := []session.Record{
		{ID: "r1", Type: session.TypeClassic, DurationSeconds: 1500, Completed: true, FocusQuality: &seven, Timestamp: day(1, 9)},
		{ID: "r2", Type: session.TypeClassic, DurationSeconds: 300, Completed: false, Timestamp: day(2, 10)},
		{ID: "r3", Type: session.TypeDeepFocus, DurationSeconds: 3000, Completed: true, LinkedTaskID: "task-1", Timestamp: day(3, 11)},
		{ID: "r4", Type: session.TypeShortBreak, DurationSeconds: 300, Completed: true, Timestamp: day(3, 12)},
	}
	for i := range records {
		insertSessionRecord(t, database, userID, &records[i])
	}

	// Newest first with a limit.
	recent, err := store.ListSessionRecords(ctx, userID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "r4", recent[0].ID)
	assert.Equal(t, "r3", recent[1].ID)

	// Inclusive range, oldest first.
	ranged, err := store.ListSessionRecordsRange(ctx, userID, day(2, 0), day(3, 11))
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "r2", ranged[0].ID)
	assert.Equal(t, "r3", ranged[1].ID)

	byType, err := store.ListSessionRecordsByType(ctx, userID, session.TypeClassic)
	require.NoError(t, err)
	require.Len(t, byType, 2)
	assert.False(t, byType[1].Completed)

	all, err := store.AllSessionRecords(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := store.GetSessionRecord(ctx, userID, "r1")
	require.NoError(t, err)
	require.NotNil(t, got.FocusQuality)
	assert.Equal(t, 7, *got.FocusQuality)
	assert.True(t, got.Timestamp.Equal(day(1, 9)))

	// Records are invisible across users.
	_, err = store.GetSessionRecord(ctx, otherID, "r1")
	assert.ErrorIs(t, err, ErrNotFound)
	none, err := store.AllSessionRecords(ctx, otherID)
	require.NoError(t, err)
	assert.Empty(t, none)

	// An empty window is an empty slice, not an error.
	empty, err := store.ListSessionRecordsRange(ctx, userID, day(20, 0), day(21, 0))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRecordStoreFlowRecords(t *testing.T) {
	database := newTestDB(t)
	store := NewRecordStore(database)
	states := NewStateRepository(database)
	ctx := context.Background()

	userID := createTestUser(t, database, "flows@example.com")

	first := &flow.CompletionRecord{
		ID:             uuid.NewString(),
		FlowID:         "builtin-classic-focus",
		StepsTotal:     8,
		StepsCompleted: 8,
		Success:        true,
		CompletedAt:    time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	second := &flow.CompletionRecord{
		ID:             uuid.NewString(),
		FlowID:         "builtin-quick-sprint",
		StepsTotal:     3,
		StepsCompleted: 1,
		Success:        false,
		CompletedAt:    time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC),
	}
	for _, record := range []*flow.CompletionRecord{first, second} {
		tx, err := states.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, store.InsertFlowRecordTx(ctx, tx, userID, record))
		require.NoError(t, tx.Commit())
	}

	listed, err := store.ListFlowRecords(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)
	assert.False(t, listed[0].Success)
	assert.Equal(t, 8, listed[1].StepsCompleted)
	assert.True(t, listed[1].Success)
}

func TestFlowRepositoryDefinitions(t *testing.T) {
	database := newTestDB(t)
	repo := NewFlowRepository(database)
	states := NewStateRepository(database)
	ctx := context.Background()

	inTx := func(fn func(tx *sql.Tx) error) error {
		tx, err := states.BeginTx(ctx)
		require.NoError(t, err)
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		require.NoError(t, tx.Commit())
		return nil
	}

	userID := createTestUser(t, database, "defs@example.com")
	otherID := createTestUser(t, database, "defs-other@example.com")

	// The migration seeds the builtin templates for everyone.
	builtins, err := repo.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, builtins, 3)
	for _, def := range builtins {
		assert.True(t, def.Builtin)
		assert.NoError(t, def.Validate())
	}

	deepWork, err := repo.GetByID(ctx, userID, "builtin-deep-work")
	require.NoError(t, err)
	assert.Equal(t, "Deep Work", deepWork.Name)
	require.Len(t, deepWork.Steps, 4)
	assert.Equal(t, session.TypeDeepFocus, deepWork.Steps[0].Type)
	assert.Equal(t, 600, deepWork.Steps[1].DurationSeconds)

	custom := &flow.Definition{
		ID:   uuid.NewString(),
		Name: "Evening Wind-down",
		Steps: []flow.Step{
			{Type: session.TypeQuickTask, DurationSeconds: 600},
			{Type: session.TypeShortBreak, DurationSeconds: 300},
		},
	}
	require.NoError(t, repo.Create(ctx, userID, custom))

	mine, err := repo.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, mine, 4)

	// Other users never see it.
	_, err = repo.GetByID(ctx, otherID, custom.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	custom.Name = "Evening Sprint"
	custom.Steps = custom.Steps[:1]
	require.NoError(t, inTx(func(tx *sql.Tx) error {
		return repo.UpdateTx(ctx, tx, userID, custom)
	}))
	updated, err := repo.GetByID(ctx, userID, custom.ID)
	require.NoError(t, err)
	assert.Equal(t, "Evening Sprint", updated.Name)
	assert.Len(t, updated.Steps, 1)

	// Builtins never match user-scoped writes.
	err = inTx(func(tx *sql.Tx) error {
		return repo.UpdateTx(ctx, tx, userID, deepWork)
	})
	assert.ErrorIs(t, err, ErrNotFound)
	err = inTx(func(tx *sql.Tx) error {
		return repo.DeleteTx(ctx, tx, userID, "builtin-deep-work")
	})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, inTx(func(tx *sql.Tx) error {
		return repo.DeleteTx(ctx, tx, userID, custom.ID)
	}))
	_, err = repo.GetByID(ctx, userID, custom.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// GetByIDTx sees the same rows as GetByID.
	require.NoError(t, inTx(func(tx *sql.Tx) error {
		def, getErr := repo.GetByIDTx(ctx, tx, userID, "builtin-quick-sprint")
		if getErr != nil {
			return getErr
		}
		assert.Equal(t, "Quick Sprint", def.Name)
		return nil
	}))
}
