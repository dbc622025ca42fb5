// Package history keeps a bounded, linear undo/redo sequence of list snapshots.
//
// A History is not safe for concurrent use; callers drive it from a single
// event loop.
package history

import "time"

// DefaultLimit is the maximum number of snapshots kept.
const DefaultLimit = 50

// Cloner is implemented by element types that must be deep-copied into snapshots.
type Cloner[T any] interface {
	Clone() T
}

type Direction int

const (
	Backward Direction = iota
	Forward
)

func (d Direction) String() string {
	if d == Forward {
		return "redo"
	}
	return "undo"
}

// Op tags a Push: either an explicit change made by the user, or the replay of
// an undo/redo that must not record a new entry.
type Op struct {
	replay bool
	dir    Direction
}

func Explicit() Op { return Op{} }

func Replay(dir Direction) Op { return Op{replay: true, dir: dir} }

func (o Op) IsReplay() bool { return o.replay }

func (o Op) Direction() Direction { return o.dir }

type Snapshot[T any] struct {
	Items     []T
	CreatedAt time.Time
}

type History[T Cloner[T]] struct {
	snaps  []Snapshot[T]
	cursor int
	limit  int
	now    func() time.Time
}

type Option func(*options)

type options struct {
	limit int
	now   func() time.Time
}

// WithLimit overrides DefaultLimit. Values below 1 are ignored.
func WithLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.limit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New returns an empty history. The first Push records the initial snapshot.
func New[T Cloner[T]](opts ...Option) *History[T] {
	o := options{limit: DefaultLimit, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &History[T]{cursor: -1, limit: o.limit, now: o.now}
}

// Push records list as the newest snapshot and reports whether an entry was added.
//
// Snapshots after the cursor are discarded first. A replay op records nothing.
func (h *History[T]) Push(list []T, op Op) bool {
	if op.IsReplay() {
		return false
	}
	h.snaps = append(h.snaps[:h.cursor+1], Snapshot[T]{Items: cloneAll(list), CreatedAt: h.now()})
	if len(h.snaps) > h.limit {
		drop := len(h.snaps) - h.limit
		clear(h.snaps[:drop])
		h.snaps = append(h.snaps[:0], h.snaps[drop:]...)
	}
	h.cursor = len(h.snaps) - 1
	return true
}

// Undo moves the cursor back one snapshot. It returns false without moving at
// the oldest snapshot.
func (h *History[T]) Undo() ([]T, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.cursor--
	return h.Current(), true
}

// Redo moves the cursor forward one snapshot. It returns false without moving
// at the newest snapshot.
func (h *History[T]) Redo() ([]T, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.cursor++
	return h.Current(), true
}

// Current returns a copy of the list at the cursor, or nil when empty.
func (h *History[T]) Current() []T {
	if h.cursor < 0 || h.cursor >= len(h.snaps) {
		return nil
	}
	return cloneAll(h.snaps[h.cursor].Items)
}

func (h *History[T]) CanUndo() bool { return h.cursor > 0 }

func (h *History[T]) CanRedo() bool { return h.cursor >= 0 && h.cursor < len(h.snaps)-1 }

func (h *History[T]) Len() int { return len(h.snaps) }

// Cursor is the index of the current snapshot, -1 when empty.
func (h *History[T]) Cursor() int { return h.cursor }

func (h *History[T]) Limit() int { return h.limit }

// Snapshots returns copies of every stored snapshot, oldest first.
func (h *History[T]) Snapshots() []Snapshot[T] {
	out := make([]Snapshot[T], len(h.snaps))
	for i, s := range h.snaps {
		out[i] = Snapshot[T]{Items: cloneAll(s.Items), CreatedAt: s.CreatedAt}
	}
	return out
}

func cloneAll[T Cloner[T]](list []T) []T {
	if list == nil {
		return nil
	}
	out := make([]T, len(list))
	for i := range list {
		out[i] = list[i].Clone()
	}
	return out
}
