// Package autosave decides when the planning board persists its task list:
// periodically while changes are pending, on demand, and never when nothing
// changed since the last successful save.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"operaflow/internal/log"
	"operaflow/internal/metrics"
)

const DefaultInterval = 30 * time.Second

// ErrClosed is returned by SaveNow once the controller has been closed.
var ErrClosed = errors.New("autosave: controller closed")

type Trigger string

const (
	TriggerInterval Trigger = "interval"
	TriggerManual   Trigger = "manual"
)

// SaveFunc persists the current task list. It must honour ctx.
type SaveFunc func(ctx context.Context) error

// Outcome reports one completed save attempt.
type Outcome struct {
	Trigger  Trigger
	Err      error
	At       time.Time
	Duration time.Duration
}

func (o Outcome) OK() bool { return o.Err == nil }

type State struct {
	Dirty     bool
	Saving    bool
	LastSaved time.Time
	LastError error
}

type Options struct {
	Interval  time.Duration
	Save      SaveFunc
	OnOutcome func(Outcome)
	Logger    *log.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

type Controller struct {
	interval  time.Duration
	save      SaveFunc
	onOutcome func(Outcome)
	logger    *log.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	observed  bool
	rev       uint64
	dirty     bool
	gen       uint64
	saving    int // saves in flight
	closed    bool
	lastSaved time.Time
	lastErr   error
}

func New(opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		interval:  opts.Interval,
		save:      opts.Save,
		onOutcome: opts.OnOutcome,
		logger:    opts.Logger.With("component", "autosave"),
		metrics:   opts.Metrics,
		now:       opts.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *Controller) Interval() time.Duration { return c.interval }

// Observe records the revision of the task list. The first call sets the
// baseline; any later call with a different revision marks the list dirty.
func (c *Controller) Observe(rev uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.observed {
		c.observed = true
		c.rev = rev
		return
	}
	if rev == c.rev {
		return
	}
	c.rev = rev
	c.dirty = true
	c.gen++
}

// Reset rebaselines on rev after the list was reloaded from storage. Pending
// changes are forgotten unless a save is running.
func (c *Controller) Reset(rev uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observed = true
	c.rev = rev
	if c.saving == 0 {
		c.dirty = false
	}
}

// MarkDirty flags a pending change without a revision bump.
func (c *Controller) MarkDirty() {
	c.mu.Lock()
	c.dirty = true
	c.gen++
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Dirty: c.dirty, Saving: c.saving > 0, LastSaved: c.lastSaved, LastError: c.lastErr}
}

// ConfirmLeave reports whether leaving the board is safe without prompting,
// i.e. no change is pending and no save is in flight.
func (c *Controller) ConfirmLeave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.dirty && c.saving == 0
}

// Run fires a save every interval while changes are pending. It returns when
// ctx is done or the controller is closed.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick performs one interval check. A tick is skipped when nothing changed
// or a save is already running.
func (c *Controller) tick(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed || !c.dirty || c.saving > 0 {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()
	_ = c.run(ctx, TriggerInterval)
	return true
}

// SaveNow saves immediately, regardless of the dirty flag.
func (c *Controller) SaveNow(ctx context.Context) error {
	return c.run(ctx, TriggerManual)
}

// Close cancels any in-flight save and stops Run. Outcomes of saves that
// complete after Close are not reported.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

func (c *Controller) run(ctx context.Context, trigger Trigger) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.save == nil {
		c.mu.Unlock()
		return errors.New("autosave: no save function")
	}
	c.saving++
	gen := c.gen
	c.mu.Unlock()

	saveCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	start := c.now()
	err := c.save(saveCtx)
	stop()
	cancel()
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	c.saving--
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err == nil {
		// Changes made while saving stay pending for the next run.
		if c.gen == gen {
			c.dirty = false
		}
		c.lastSaved = c.now()
		c.lastErr = nil
	} else {
		c.lastErr = err
	}
	onOutcome := c.onOutcome
	c.mu.Unlock()

	c.metrics.RecordSave(string(trigger), elapsed, err)
	if err != nil {
		c.logger.WithError(err).Warn("save failed", "trigger", trigger)
	} else {
		c.logger.Debug("saved", "trigger", trigger, "duration", elapsed)
	}
	if onOutcome != nil {
		onOutcome(Outcome{Trigger: trigger, Err: err, At: c.now(), Duration: elapsed})
	}
	return err
}
