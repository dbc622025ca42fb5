package board

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"operaflow/internal/autosave"
	"operaflow/internal/history"
	"operaflow/internal/log"
	"operaflow/internal/metrics"
	"operaflow/internal/model"
)

var (
	// ErrClosed is returned by session operations after Close, including
	// requests that were in flight when it was called.
	ErrClosed = errors.New("board: session closed")
	// ErrUnknownTask means the id is not in the session's list.
	ErrUnknownTask = errors.New("board: unknown task")
	// ErrPartialSave wraps a bulk save where some items were rejected.
	ErrPartialSave = errors.New("some tasks were not saved")
)

type Options struct {
	Updater          Updater
	Tasks            []model.Task
	Zoom             float64
	HistoryLimit     int
	AutosaveInterval time.Duration
	Logger           *log.Logger
	Metrics          *metrics.Metrics
	// Notify receives every user-facing notice. It may be called from the
	// autosave goroutine.
	Notify func(Notice)
	// OnTaskUpdated is called after a confirmed single-task edit.
	OnTaskUpdated func(model.Task)
	Now           func() time.Time
}

// Session is the parent state of a board: it owns the task list and its
// revision, the undo history and the autosave controller.
type Session struct {
	updater       Updater
	logger        *log.Logger
	metrics       *metrics.Metrics
	notify        func(Notice)
	onTaskUpdated func(model.Task)
	now           func() time.Time
	autosave      *autosave.Controller

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	tasks []model.Task
	// stored is the last version of each task known to be in storage:
	// loaded, returned by an update, or accepted by a bulk save.
	stored  map[int64]model.Task
	rev     uint64
	hist    *history.History[model.Task]
	zoom    float64
	layout  *Layout
	viewRev uint64
	closed  bool
}

func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	hopts := []history.Option{history.WithClock(opts.Now)}
	if opts.HistoryLimit > 0 {
		hopts = append(hopts, history.WithLimit(opts.HistoryLimit))
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		updater:       opts.Updater,
		logger:        opts.Logger.With("component", "board"),
		metrics:       opts.Metrics,
		notify:        opts.Notify,
		onTaskUpdated: opts.OnTaskUpdated,
		now:           opts.Now,
		ctx:           ctx,
		cancel:        cancel,
		tasks:         model.CloneTasks(opts.Tasks),
		hist:          history.New[model.Task](hopts...),
		zoom:          ClampZoom(opts.Zoom),
	}
	if s.tasks == nil {
		s.tasks = []model.Task{}
	}
	s.stored = storedIndex(s.tasks)
	s.hist.Push(s.tasks, history.Explicit())
	s.metrics.SetHistoryDepth(s.hist.Len())

	s.autosave = autosave.New(autosave.Options{
		Interval:  opts.AutosaveInterval,
		Save:      s.saveAll,
		OnOutcome: s.saveOutcome,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
		Now:       opts.Now,
	})
	s.autosave.Observe(s.rev)
	return s
}

// Run drives the autosave timer until ctx ends or the session is closed.
func (s *Session) Run(ctx context.Context) {
	s.autosave.Run(ctx)
}

// Close cancels in-flight requests and stops autosave. Results that arrive
// afterwards are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.layout = nil
	s.mu.Unlock()
	s.cancel()
	s.autosave.Close()
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Tasks returns a copy of the current list.
func (s *Session) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneTasks(s.tasks)
}

func (s *Session) Task(id int64) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := model.FindTask(s.tasks, id)
	if i < 0 {
		return model.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// Revision changes every time the task list changes.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// ViewRevision also changes when a failed edit forces a redraw.
func (s *Session) ViewRevision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewRev
}

func (s *Session) Zoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

func (s *Session) SetZoom(z float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z = ClampZoom(z)
	if z != s.zoom {
		s.zoom = z
		s.layout = nil
	}
}

// Layout returns the board layout, rebuilt only when the list, the zoom or
// a forced refresh invalidated the cached one.
func (s *Session) Layout() Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layout == nil {
		l := Compute(s.tasks, s.zoom)
		s.layout = &l
	}
	return *s.layout
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo()
}

func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Len()
}

func (s *Session) History() []history.Snapshot[model.Task] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Snapshots()
}

func (s *Session) AutosaveState() autosave.State { return s.autosave.State() }

// ConfirmLeave reports whether the board can be left without losing work.
// It is best-effort: a save already in flight is not waited for.
func (s *Session) ConfirmLeave() bool { return s.autosave.ConfirmLeave() }

// Move shifts a task by delta days and persists the new dates.
func (s *Session) Move(ctx context.Context, id int64, delta int) (model.Task, error) {
	return s.changeDates(ctx, id, GestureMove, func(t model.Task) (model.DateUpdate, error) {
		return PlanMove(t, delta)
	})
}

func (s *Session) ResizeStart(ctx context.Context, id int64, delta int) (model.Task, error) {
	return s.changeDates(ctx, id, GestureResizeStart, func(t model.Task) (model.DateUpdate, error) {
		return PlanResizeStart(t, delta)
	})
}

func (s *Session) ResizeEnd(ctx context.Context, id int64, delta int) (model.Task, error) {
	return s.changeDates(ctx, id, GestureResizeEnd, func(t model.Task) (model.DateUpdate, error) {
		return PlanResizeEnd(t, delta)
	})
}

// SetDates persists an absolute date range for one task, as a completed drag
// does.
func (s *Session) SetDates(ctx context.Context, u model.DateUpdate) (model.Task, error) {
	return s.changeDates(ctx, u.TaskID, GestureMove, func(model.Task) (model.DateUpdate, error) {
		return u, nil
	})
}

func (s *Session) changeDates(ctx context.Context, id int64, kind GestureKind, plan func(model.Task) (model.DateUpdate, error)) (model.Task, error) {
	t, err := s.lookup(id)
	if err != nil {
		return model.Task{}, err
	}
	u, err := plan(t)
	if err != nil {
		return model.Task{}, s.failed(kind, err)
	}

	reqCtx, done := s.requestContext(ctx)
	updated, err := s.updater.UpdateDates(reqCtx, u)
	done()
	return s.settle(kind, MsgDatesUpdated, updated, err)
}

// SetProgress persists a task's completion, clamped to 0..100.
func (s *Session) SetProgress(ctx context.Context, id int64, pct int) (model.Task, error) {
	t, err := s.lookup(id)
	if err != nil {
		return model.Task{}, err
	}
	reqCtx, done := s.requestContext(ctx)
	updated, err := s.updater.UpdateProgress(reqCtx, PlanProgress(t, pct))
	done()
	return s.settle(GestureProgress, MsgProgressUpdated, updated, err)
}

func (s *Session) lookup(id int64) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Task{}, ErrClosed
	}
	i := model.FindTask(s.tasks, id)
	if i < 0 {
		return model.Task{}, fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	return s.tasks[i].Clone(), nil
}

// requestContext ties a request to both the caller and the session
// lifetime.
func (s *Session) requestContext(ctx context.Context) (context.Context, func()) {
	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return reqCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) settle(kind GestureKind, okMsg string, updated model.Task, err error) (model.Task, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("discarding result after close", "gesture", kind)
		return model.Task{}, ErrClosed
	}
	s.mu.Unlock()

	if err != nil {
		return model.Task{}, s.failed(kind, err)
	}
	s.metrics.RecordTaskUpdate(string(kind), nil)
	s.ApplyUpdated(updated)
	s.emit(Notice{Kind: NoticeSuccess, Message: okMsg})
	if s.onTaskUpdated != nil {
		s.onTaskUpdated(updated.Clone())
	}
	return updated, nil
}

// failed reverts the view to the unchanged list and reports err.
func (s *Session) failed(kind GestureKind, err error) error {
	s.mu.Lock()
	s.layout = nil
	s.viewRev++
	s.mu.Unlock()

	s.metrics.RecordTaskUpdate(string(kind), err)
	s.logger.WithError(err).Warn("task update failed", "gesture", kind)
	s.emit(Notice{Kind: NoticeError, Message: MsgUpdateFailed, Err: err})
	return err
}

// ApplyUpdated replaces a task with its persisted version and records the
// new list in the history.
func (s *Session) ApplyUpdated(t model.Task) {
	s.mu.Lock()
	i := model.FindTask(s.tasks, t.ID)
	if i < 0 {
		s.tasks = append(s.tasks, t.Clone())
	} else {
		s.tasks[i] = t.Clone()
	}
	s.stored[t.ID] = t.Clone()
	s.bumpLocked()
	s.hist.Push(s.tasks, history.Explicit())
	depth, rev := s.hist.Len(), s.rev
	s.mu.Unlock()

	s.metrics.SetHistoryDepth(depth)
	s.autosave.Observe(rev)
}

// Replace swaps in a list freshly loaded from storage. It is undoable but
// does not count as an unsaved change.
func (s *Session) Replace(tasks []model.Task) {
	s.mu.Lock()
	s.tasks = model.CloneTasks(tasks)
	if s.tasks == nil {
		s.tasks = []model.Task{}
	}
	s.stored = storedIndex(s.tasks)
	s.bumpLocked()
	s.hist.Push(s.tasks, history.Explicit())
	depth, rev := s.hist.Len(), s.rev
	s.mu.Unlock()

	s.metrics.SetHistoryDepth(depth)
	s.autosave.Reset(rev)
	s.emit(Notice{Kind: NoticeInfo, Message: MsgReloaded})
}

// Sync merges tasks loaded from storage into the current list and reports
// whether anything changed. A task is taken from storage only when its
// stored version moved since the session last saw it, so the session's own
// writes and its unsaved edits, such as an undo, are kept. The session's
// order is kept; new tasks are appended and deleted ones dropped.
func (s *Session) Sync(tasks []model.Task) bool {
	pending := s.autosave.State().Dirty

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	incoming := make(map[int64]model.Task, len(tasks))
	for _, t := range tasks {
		incoming[t.ID] = t
	}
	merged := make([]model.Task, 0, len(tasks))
	changed := false
	for _, cur := range s.tasks {
		in, ok := incoming[cur.ID]
		if !ok {
			if _, known := s.stored[cur.ID]; known {
				delete(s.stored, cur.ID)
				changed = true
				continue
			}
			merged = append(merged, cur)
			continue
		}
		delete(incoming, cur.ID)
		if prev, ok := s.stored[cur.ID]; ok && sameTask(prev, in) {
			merged = append(merged, cur)
			continue
		}
		s.stored[cur.ID] = in.Clone()
		if !sameTask(cur, in) {
			changed = true
		}
		merged = append(merged, in.Clone())
	}
	for _, t := range tasks {
		if _, ok := incoming[t.ID]; !ok {
			continue
		}
		delete(incoming, t.ID)
		s.stored[t.ID] = t.Clone()
		merged = append(merged, t.Clone())
		changed = true
	}
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.tasks = merged
	s.bumpLocked()
	s.hist.Push(s.tasks, history.Explicit())
	depth, rev := s.hist.Len(), s.rev
	s.mu.Unlock()

	s.metrics.SetHistoryDepth(depth)
	if pending {
		s.autosave.Observe(rev)
	} else {
		s.autosave.Reset(rev)
	}
	s.emit(Notice{Kind: NoticeInfo, Message: MsgReloaded})
	return true
}

func storedIndex(tasks []model.Task) map[int64]model.Task {
	out := make(map[int64]model.Task, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t.Clone()
	}
	return out
}

// sameTask ignores timestamps: a bulk save touches updated_at without
// changing what the board shows.
func sameTask(a, b model.Task) bool {
	a.CreatedAt, a.UpdatedAt = time.Time{}, time.Time{}
	b.CreatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	if len(a.ResourceIDs) == 0 && len(b.ResourceIDs) == 0 {
		a.ResourceIDs, b.ResourceIDs = nil, nil
	}
	return reflect.DeepEqual(a, b)
}

func (s *Session) bumpLocked() {
	s.rev++
	s.viewRev++
	s.layout = nil
}

// Undo restores the previous snapshot. It reports false when there is none.
func (s *Session) Undo() bool {
	return s.step(history.Backward)
}

// Redo re-applies an undone snapshot, only when one is available.
func (s *Session) Redo() bool {
	return s.step(history.Forward)
}

func (s *Session) step(dir history.Direction) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	var (
		list []model.Task
		ok   bool
	)
	if dir == history.Backward {
		list, ok = s.hist.Undo()
	} else if s.hist.CanRedo() {
		list, ok = s.hist.Redo()
	}
	if !ok {
		s.mu.Unlock()
		msg := MsgNothingToUndo
		if dir == history.Forward {
			msg = MsgNothingToRedo
		}
		s.emit(Notice{Kind: NoticeInfo, Message: msg})
		return false
	}
	s.tasks = list
	s.bumpLocked()
	// The list came out of the history; recording it again would erase the
	// redo branch.
	s.hist.Push(s.tasks, history.Replay(dir))
	rev := s.rev
	s.mu.Unlock()

	s.autosave.Observe(rev)
	msg := MsgUndone
	if dir == history.Forward {
		msg = MsgRedone
	}
	s.emit(Notice{Kind: NoticeInfo, Message: msg})
	return true
}

// Save persists the whole board now, whatever the dirty state.
func (s *Session) Save(ctx context.Context) error {
	return s.autosave.SaveNow(ctx)
}

// HandleShortcut runs the action bound to key. Save blocks until the
// request completes.
func (s *Session) HandleShortcut(ctx context.Context, key string) bool {
	switch ParseShortcut(key) {
	case ShortcutUndo:
		s.Undo()
	case ShortcutRedo:
		s.Redo()
	case ShortcutSave:
		// Failures reach the user through the save outcome notice.
		_ = s.Save(ctx)
	default:
		return false
	}
	return true
}

// saveAll sends the dates of every visible task in one batch. Legacy rows
// with reversed dates cannot be stored as they are; they are left out and
// reported without failing the save.
func (s *Session) saveAll(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	items, _ := Visible(s.tasks)
	s.mu.Unlock()

	updates := make([]model.DateUpdate, 0, len(items))
	reversed := 0
	for _, it := range items {
		if it.Reversed() {
			reversed++
			continue
		}
		updates = append(updates, model.DateUpdate{TaskID: it.Task.ID, Start: it.Task.Start, End: it.Task.End})
	}
	if reversed > 0 {
		s.emit(Notice{Kind: NoticeInfo, Message: fmt.Sprintf(MsgReversedSkipped, reversed)})
	}
	if len(updates) == 0 {
		return nil
	}

	reqCtx, done := s.requestContext(ctx)
	results, err := s.updater.BatchUpdateDates(reqCtx, updates)
	done()
	if err != nil {
		return err
	}

	failed := 0
	var first string
	s.mu.Lock()
	for _, r := range results {
		if !r.OK {
			if failed == 0 {
				first = fmt.Sprintf("tâche %d : %s", r.TaskID, r.Error)
			}
			failed++
			continue
		}
		if r.Task != nil {
			s.stored[r.TaskID] = r.Task.Clone()
		}
	}
	s.mu.Unlock()
	if failed > 0 {
		return fmt.Errorf("%w: %d/%d (%s)", ErrPartialSave, failed, len(results), first)
	}
	return nil
}

func (s *Session) saveOutcome(o autosave.Outcome) {
	switch {
	case o.Err != nil:
		s.emit(Notice{Kind: NoticeError, Message: MsgSaveFailed, Err: o.Err})
	case o.Trigger == autosave.TriggerInterval:
		s.emit(Notice{Kind: NoticeSuccess, Message: MsgAutosaved})
	default:
		s.emit(Notice{Kind: NoticeSuccess, Message: MsgSaved})
	}
}

func (s *Session) emit(n Notice) {
	if s.notify == nil {
		return
	}
	if n.At.IsZero() {
		n.At = s.now()
	}
	s.notify(n)
}
