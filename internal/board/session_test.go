package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"operaflow/internal/model"
)

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) add(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) last() Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.notices) == 0 {
		return Notice{}
	}
	return l.notices[len(l.notices)-1]
}

func newSession(t *testing.T, up Updater, tasks []model.Task, notes *noticeLog, updated *[]model.Task) *Session {
	t.Helper()
	opts := Options{Updater: up, Tasks: tasks, AutosaveInterval: time.Hour}
	if notes != nil {
		opts.Notify = notes.add
	}
	if updated != nil {
		opts.OnTaskUpdated = func(task model.Task) { *updated = append(*updated, task) }
	}
	s := NewSession(opts)
	t.Cleanup(s.Close)
	return s
}

func TestDragEndScenario(t *testing.T) {
	initial := []model.Task{{ID: 1, Label: "Tache", Start: "2024-01-01", End: "2024-01-05", Progress: 0}}
	up := newFakeUpdater(initial...)
	notes := &noticeLog{}
	var updated []model.Task
	s := newSession(t, up, initial, notes, &updated)
	require.Equal(t, 1, s.HistoryLen())

	got, err := s.ResizeEnd(context.Background(), 1, 5)
	require.NoError(t, err)

	calls := up.dateCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, model.DateUpdate{TaskID: 1, Start: "2024-01-01", End: "2024-01-10"}, calls[0])
	assert.Equal(t, "2024-01-10", got.End)

	require.Equal(t, 2, s.HistoryLen())
	snaps := s.History()
	require.Len(t, snaps[1].Items, 1)
	assert.Equal(t, "2024-01-10", snaps[1].Items[0].End)

	require.Len(t, updated, 1)
	assert.Equal(t, int64(1), updated[0].ID)
	assert.Equal(t, MsgDatesUpdated, notes.last().Message)
	assert.True(t, s.AutosaveState().Dirty)
	assert.False(t, s.ConfirmLeave())
}

func TestFailedUpdateRevertsAndNotifies(t *testing.T) {
	initial := []model.Task{{ID: 1, Label: "Tache", Start: "2024-01-01", End: "2024-01-05"}}
	up := newFakeUpdater(initial...)
	up.err = errors.New("HTTP 500")
	notes := &noticeLog{}
	s := newSession(t, up, initial, notes, nil)
	rev, view := s.Revision(), s.ViewRevision()

	_, err := s.Move(context.Background(), 1, 2)
	require.Error(t, err)

	assert.Equal(t, initial, s.Tasks())
	assert.Equal(t, rev, s.Revision())
	assert.Greater(t, s.ViewRevision(), view)
	assert.Equal(t, 1, s.HistoryLen())
	n := notes.last()
	assert.Equal(t, NoticeError, n.Kind)
	assert.Equal(t, MsgUpdateFailed, n.Message)
	assert.False(t, s.AutosaveState().Dirty)
}

func TestUnknownTask(t *testing.T) {
	s := newSession(t, newFakeUpdater(), nil, nil, nil)
	_, err := s.Move(context.Background(), 99, 1)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestUndoRedoThroughSession(t *testing.T) {
	initial := []model.Task{{ID: 1, Label: "Tache", Start: "2024-01-01", End: "2024-01-05"}}
	up := newFakeUpdater(initial...)
	s := newSession(t, up, initial, nil, nil)
	ctx := context.Background()

	_, err := s.Move(ctx, 1, 1)
	require.NoError(t, err)
	_, err = s.SetProgress(ctx, 1, 60)
	require.NoError(t, err)
	require.Equal(t, 3, s.HistoryLen())

	assert.False(t, s.CanRedo())
	assert.False(t, s.Redo())

	require.True(t, s.HandleShortcut(ctx, "ctrl+z"))
	task, _ := s.Task(1)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, "2024-01-02", task.Start)

	require.True(t, s.Undo())
	assert.Equal(t, initial, s.Tasks())
	assert.False(t, s.Undo())
	assert.Equal(t, 3, s.HistoryLen(), "replays do not add snapshots")

	require.True(t, s.HandleShortcut(ctx, "ctrl+y"))
	require.True(t, s.HandleShortcut(ctx, "ctrl+shift+z"))
	task, _ = s.Task(1)
	assert.Equal(t, 60, task.Progress)
	assert.False(t, s.CanRedo())

	assert.False(t, s.HandleShortcut(ctx, "x"))
}

func TestSaveShortcutSendsOneBatch(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Label: "A", Start: "2024-01-01", End: "2024-01-05"},
		{ID: 2, Label: "B", Start: "2024-01-03", End: "2024-01-04"},
		{ID: 3, Label: "undated"},
	}
	up := newFakeUpdater(tasks...)
	notes := &noticeLog{}
	s := newSession(t, up, tasks, notes, nil)

	require.True(t, s.HandleShortcut(context.Background(), "ctrl+s"))
	batches := up.batchCalls()
	require.Len(t, batches, 1)
	assert.Equal(t, []model.DateUpdate{
		{TaskID: 1, Start: "2024-01-01", End: "2024-01-05"},
		{TaskID: 2, Start: "2024-01-03", End: "2024-01-04"},
	}, batches[0])
	assert.Empty(t, up.dateCalls())
	assert.Equal(t, MsgSaved, notes.last().Message)
}

func TestSaveReportsPartialFailure(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Label: "A", Start: "2024-01-01", End: "2024-01-05"},
		{ID: 2, Label: "B", Start: "2024-01-03", End: "2024-01-04"},
	}
	up := newFakeUpdater(tasks...)
	up.reject[2] = "not found"
	notes := &noticeLog{}
	s := newSession(t, up, tasks, notes, nil)
	_, err := s.Move(context.Background(), 1, 1)
	require.NoError(t, err)

	err = s.Save(context.Background())
	require.ErrorIs(t, err, ErrPartialSave)
	assert.Equal(t, MsgSaveFailed, notes.last().Message)
	assert.True(t, s.AutosaveState().Dirty)
}

func TestReplaceIsNotAPendingChange(t *testing.T) {
	up := newFakeUpdater()
	s := newSession(t, up, nil, nil, nil)
	s.Replace([]model.Task{{ID: 5, Label: "New", Start: "2024-05-01", End: "2024-05-02"}})

	assert.Len(t, s.Tasks(), 1)
	assert.Len(t, s.Layout().Bars, 1)
	assert.True(t, s.ConfirmLeave())
	assert.True(t, s.CanUndo())
}

func TestLayoutCachedByRevision(t *testing.T) {
	tasks := []model.Task{{ID: 1, Label: "A", Start: "2024-01-01", End: "2024-01-05"}}
	s := newSession(t, newFakeUpdater(tasks...), tasks, nil, nil)

	l1 := s.Layout()
	assert.Equal(t, 10, l1.Bars[0].Width)
	s.SetZoom(2)
	l2 := s.Layout()
	assert.Equal(t, 20, l2.Bars[0].Width)

	_, err := s.ResizeEnd(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 24, s.Layout().Bars[0].Width)
}

func TestCloseCancelsInFlightAndDiscardsResult(t *testing.T) {
	tasks := []model.Task{{ID: 1, Label: "A", Start: "2024-01-01", End: "2024-01-05"}}
	up := newFakeUpdater(tasks...)
	up.block = make(chan struct{})
	var updated []model.Task
	s := NewSession(Options{Updater: up, Tasks: tasks, OnTaskUpdated: func(t model.Task) { updated = append(updated, t) }})

	done := make(chan error, 1)
	go func() {
		_, err := s.Move(context.Background(), 1, 1)
		done <- err
	}()
	require.Eventually(t, func() bool { return len(up.dateCalls()) == 1 }, 2*time.Second, time.Millisecond)
	s.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("request was not cancelled")
	}
	assert.Empty(t, updated)
	assert.Equal(t, tasks, s.Tasks())
	assert.True(t, s.Closed())

	_, err := s.Move(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSyncIgnoresUnchangedList(t *testing.T) {
	tasks := []model.Task{{ID: 1, Label: "A", Start: "2024-01-01", End: "2024-01-05"}}
	s := newSession(t, newFakeUpdater(tasks...), tasks, nil, nil)
	rev := s.Revision()

	assert.False(t, s.Sync(model.CloneTasks(tasks)))
	assert.Equal(t, rev, s.Revision())
	assert.Equal(t, 1, s.HistoryLen())

	changed := model.CloneTasks(tasks)
	changed[0].Label = "A bis"
	assert.True(t, s.Sync(changed))
	assert.Equal(t, 2, s.HistoryLen())
	assert.True(t, s.ConfirmLeave())
}

func TestSyncIgnoresTimestamps(t *testing.T) {
	tasks := []model.Task{{ID: 1, Label: "A", Start: "2024-01-01", End: "2024-01-05"}}
	s := newSession(t, newFakeUpdater(tasks...), tasks, nil, nil)

	touched := model.CloneTasks(tasks)
	touched[0].UpdatedAt = time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	assert.False(t, s.Sync(touched))
	assert.Equal(t, 1, s.HistoryLen())
}

func TestSaveLeavesOutReversedLegacyRows(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Label: "A", Start: "2024-01-01", End: "2024-01-05"},
		{ID: 2, Label: "Legacy", Start: "2024-02-10", End: "2024-02-01"},
	}
	up := newFakeUpdater(tasks...)
	notes := &noticeLog{}
	s := newSession(t, up, tasks, notes, nil)
	require.Len(t, s.Layout().Bars, 2, "reversed rows still render")

	_, err := s.Move(context.Background(), 1, 1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Save(context.Background()))
	}

	batches := up.batchCalls()
	require.Len(t, batches, 3)
	assert.Equal(t, []model.DateUpdate{{TaskID: 1, Start: "2024-01-02", End: "2024-01-06"}}, batches[0])
	assert.False(t, s.AutosaveState().Dirty)
	assert.True(t, s.ConfirmLeave())
	assert.Equal(t, MsgSaved, notes.last().Message)

	notes.mu.Lock()
	defer notes.mu.Unlock()
	var skipped int
	for _, n := range notes.notices {
		if n.Message == fmt.Sprintf(MsgReversedSkipped, 1) {
			skipped++
			assert.Equal(t, NoticeInfo, n.Kind)
		}
	}
	assert.Equal(t, 3, skipped)
}
