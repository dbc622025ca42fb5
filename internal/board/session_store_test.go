package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"operaflow/internal/model"
	"operaflow/internal/store"
)

// storeSession runs a session against an in-memory store, the way the local
// board does. reload plays the list the board fetches after a bus event.
func storeSession(t *testing.T, seed ...model.Task) (*Session, func() []model.Task) {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st := store.NewStore(db)
	ctx := context.Background()
	for _, task := range seed {
		_, err := st.CreateTask(ctx, task)
		require.NoError(t, err)
	}
	load := func() []model.Task {
		tasks, err := st.ListTasks(ctx, store.Filter{})
		require.NoError(t, err)
		return tasks
	}
	s := NewSession(Options{Updater: st, Tasks: load(), AutosaveInterval: time.Hour})
	t.Cleanup(s.Close)
	return s, load
}

func taskByID(t *testing.T, s *Session, id int64) model.Task {
	t.Helper()
	task, ok := s.Task(id)
	require.True(t, ok, "task %d", id)
	return task
}

func TestReloadAfterReorderingMoveKeepsOneUndoStep(t *testing.T) {
	s, load := storeSession(t,
		model.Task{Label: "A", Start: "2024-01-01", End: "2024-01-05"},
		model.Task{Label: "B", Start: "2024-01-03", End: "2024-01-06"},
	)
	ids := []int64{s.Tasks()[0].ID, s.Tasks()[1].ID}

	_, err := s.Move(context.Background(), ids[0], 5)
	require.NoError(t, err)
	require.Equal(t, 2, s.HistoryLen())

	// Storage now lists B before A.
	assert.False(t, s.Sync(load()))
	assert.Equal(t, 2, s.HistoryLen())
	assert.True(t, s.AutosaveState().Dirty)
	assert.Equal(t, ids[0], s.Tasks()[0].ID, "session order is kept")

	require.True(t, s.Undo())
	a := taskByID(t, s, ids[0])
	assert.Equal(t, "2024-01-01", a.Start)
	assert.Equal(t, "2024-01-05", a.End)
}

func TestReloadKeepsUnsavedUndo(t *testing.T) {
	s, load := storeSession(t,
		model.Task{Label: "A", Start: "2024-01-01", End: "2024-01-05"},
		model.Task{Label: "B", Start: "2024-01-03", End: "2024-01-06"},
	)
	a, b := s.Tasks()[0].ID, s.Tasks()[1].ID
	ctx := context.Background()

	_, err := s.ResizeEnd(ctx, a, 1)
	require.NoError(t, err)
	require.True(t, s.Undo())
	require.Equal(t, "2024-01-05", taskByID(t, s, a).End)

	_, err = s.SetProgress(ctx, b, 50)
	require.NoError(t, err)
	s.Sync(load())

	assert.Equal(t, "2024-01-05", taskByID(t, s, a).End)
	assert.Equal(t, 50, taskByID(t, s, b).Progress)
	assert.True(t, s.AutosaveState().Dirty)
	assert.False(t, s.ConfirmLeave())

	require.NoError(t, s.Save(ctx))
	assert.False(t, s.Sync(load()))
	assert.Equal(t, "2024-01-05", taskByID(t, s, a).End)
	assert.False(t, s.AutosaveState().Dirty)
}

func TestReloadTakesOutsideChanges(t *testing.T) {
	initial := []model.Task{
		{ID: 1, Label: "A", Start: "2024-01-01", End: "2024-01-05"},
		{ID: 2, Label: "B", Start: "2024-01-03", End: "2024-01-06"},
	}
	s := newSession(t, newFakeUpdater(initial...), initial, nil, nil)
	_, err := s.ResizeEnd(context.Background(), 1, 2)
	require.NoError(t, err)

	fromStorage := []model.Task{
		{ID: 3, Label: "C", Start: "2024-02-01", End: "2024-02-02"},
		{ID: 1, Label: "A", Start: "2024-01-01", End: "2024-01-07"},
		{ID: 2, Label: "B renamed", Start: "2024-01-03", End: "2024-01-06"},
	}
	require.True(t, s.Sync(fromStorage))
	got := s.Tasks()
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "B renamed", got[1].Label)
	assert.True(t, s.AutosaveState().Dirty, "pending edit survives the merge")

	require.True(t, s.Sync(fromStorage[:2]))
	assert.Len(t, s.Tasks(), 2)
	_, ok := s.Task(2)
	assert.False(t, ok, "task deleted in storage is dropped")
}
