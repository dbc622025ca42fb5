package board

import (
	"context"
	"sync"

	"operaflow/internal/model"
)

// fakeUpdater records calls and answers from its in-memory copy of tasks.
type fakeUpdater struct {
	mu       sync.Mutex
	tasks    map[int64]model.Task
	dates    []model.DateUpdate
	progress []model.ProgressUpdate
	batches  [][]model.DateUpdate
	err      error
	reject   map[int64]string
	block    chan struct{}
}

func newFakeUpdater(tasks ...model.Task) *fakeUpdater {
	f := &fakeUpdater{tasks: map[int64]model.Task{}, reject: map[int64]string{}}
	for _, t := range tasks {
		f.tasks[t.ID] = t
	}
	return f
}

func (f *fakeUpdater) wait(ctx context.Context) error {
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeUpdater) UpdateDates(ctx context.Context, u model.DateUpdate) (model.Task, error) {
	f.mu.Lock()
	f.dates = append(f.dates, u)
	err := f.err
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return model.Task{}, err
	}
	if err != nil {
		return model.Task{}, err
	}
	if err := model.CheckRange(u.Start, u.End); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[u.TaskID]
	t.Start, t.End = u.Start, u.End
	f.tasks[u.TaskID] = t
	return t, nil
}

func (f *fakeUpdater) UpdateProgress(ctx context.Context, u model.ProgressUpdate) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, u)
	if f.err != nil {
		return model.Task{}, f.err
	}
	t := f.tasks[u.TaskID]
	t.Progress = u.Progress
	f.tasks[u.TaskID] = t
	return t, nil
}

func (f *fakeUpdater) BatchUpdateDates(ctx context.Context, items []model.DateUpdate) ([]model.ItemResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]model.DateUpdate(nil), items...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.ItemResult, 0, len(items))
	for _, u := range items {
		if msg, ok := f.reject[u.TaskID]; ok {
			out = append(out, model.ItemResult{TaskID: u.TaskID, Error: msg})
			continue
		}
		if err := model.CheckRange(u.Start, u.End); err != nil {
			out = append(out, model.ItemResult{TaskID: u.TaskID, Error: err.Error()})
			continue
		}
		t := f.tasks[u.TaskID]
		t.Start, t.End = u.Start, u.End
		f.tasks[u.TaskID] = t
		out = append(out, model.ItemResult{TaskID: u.TaskID, OK: true, Task: &t})
	}
	return out, nil
}

func (f *fakeUpdater) dateCalls() []model.DateUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.DateUpdate(nil), f.dates...)
}

func (f *fakeUpdater) batchCalls() [][]model.DateUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]model.DateUpdate(nil), f.batches...)
}
