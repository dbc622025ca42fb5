package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls int
	err   error
	hook  func(ctx context.Context) error
}

func (r *recorder) save(ctx context.Context) error {
	r.mu.Lock()
	r.calls++
	hook, err := r.hook, r.err
	r.mu.Unlock()
	if hook != nil {
		return hook(ctx)
	}
	return err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newController(t *testing.T, rec *recorder, outcomes *[]Outcome) *Controller {
	t.Helper()
	var mu sync.Mutex
	c := New(Options{
		Interval: time.Hour,
		Save:     rec.save,
		OnOutcome: func(o Outcome) {
			mu.Lock()
			defer mu.Unlock()
			if outcomes != nil {
				*outcomes = append(*outcomes, o)
			}
		},
	})
	t.Cleanup(c.Close)
	return c
}

func TestTickWithoutChangeNeverSaves(t *testing.T) {
	rec := &recorder{}
	c := newController(t, rec, nil)
	c.Observe(1)

	for i := 0; i < 5; i++ {
		assert.False(t, c.tick(context.Background()))
	}
	c.Observe(1)
	assert.False(t, c.tick(context.Background()))
	assert.Equal(t, 0, rec.count())
	assert.True(t, c.ConfirmLeave())
}

func TestTickSavesOnceAfterChange(t *testing.T) {
	rec := &recorder{}
	var outcomes []Outcome
	c := newController(t, rec, &outcomes)
	c.Observe(1)
	c.Observe(2)
	assert.False(t, c.ConfirmLeave())

	assert.True(t, c.tick(context.Background()))
	assert.False(t, c.tick(context.Background()))
	assert.Equal(t, 1, rec.count())
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].OK())
	assert.Equal(t, TriggerInterval, outcomes[0].Trigger)
	assert.False(t, c.State().Dirty)
	assert.True(t, c.ConfirmLeave())
}

func TestSaveNowAlwaysSavesExactlyOnce(t *testing.T) {
	rec := &recorder{}
	var outcomes []Outcome
	c := newController(t, rec, &outcomes)
	c.Observe(7)

	require.NoError(t, c.SaveNow(context.Background()))
	assert.Equal(t, 1, rec.count())
	require.Len(t, outcomes, 1)
	assert.Equal(t, TriggerManual, outcomes[0].Trigger)
	assert.False(t, c.State().LastSaved.IsZero())
}

func TestFailedSaveKeepsDirty(t *testing.T) {
	boom := errors.New("network down")
	rec := &recorder{err: boom}
	var outcomes []Outcome
	c := newController(t, rec, &outcomes)
	c.Observe(1)
	c.Observe(2)

	assert.True(t, c.tick(context.Background()))
	st := c.State()
	assert.True(t, st.Dirty)
	assert.ErrorIs(t, st.LastError, boom)
	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, boom)
	assert.False(t, c.ConfirmLeave())

	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()
	assert.True(t, c.tick(context.Background()))
	assert.False(t, c.State().Dirty)
	assert.Equal(t, 2, rec.count())
}

func TestChangeDuringSaveStaysPending(t *testing.T) {
	rec := &recorder{}
	c := newController(t, rec, nil)
	rec.hook = func(ctx context.Context) error {
		c.Observe(3)
		return nil
	}
	c.Observe(1)
	c.Observe(2)

	require.NoError(t, c.SaveNow(context.Background()))
	assert.True(t, c.State().Dirty)
}

func TestCloseCancelsInFlightSave(t *testing.T) {
	started := make(chan struct{})
	rec := &recorder{hook: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	var outcomes []Outcome
	c := newController(t, rec, &outcomes)

	done := make(chan error, 1)
	go func() { done <- c.SaveNow(context.Background()) }()
	<-started
	c.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("save was not cancelled by Close")
	}
	assert.Empty(t, outcomes)
	assert.ErrorIs(t, c.SaveNow(context.Background()), ErrClosed)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	rec := &recorder{}
	c := New(Options{Interval: time.Millisecond, Save: rec.save})
	defer c.Close()
	c.Observe(1)
	c.Observe(2)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, rec.count())
}

func TestResetForgetsPendingChange(t *testing.T) {
	rec := &recorder{}
	c := newController(t, rec, nil)
	c.Observe(1)
	c.Observe(2)
	require.True(t, c.State().Dirty)

	c.Reset(5)
	assert.False(t, c.State().Dirty)
	assert.False(t, c.tick(context.Background()))
	c.Observe(5)
	assert.False(t, c.State().Dirty)
	assert.Equal(t, 0, rec.count())
}

func TestOverlappingSavesKeepLeaveGuard(t *testing.T) {
	rec := &recorder{}
	c := newController(t, rec, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var first sync.Once
	rec.hook = func(ctx context.Context) error {
		blocked := false
		first.Do(func() { blocked = true })
		if blocked {
			close(started)
			<-release
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- c.SaveNow(context.Background()) }()
	<-started

	require.NoError(t, c.SaveNow(context.Background()))
	assert.True(t, c.State().Saving, "first save is still running")
	assert.False(t, c.ConfirmLeave())

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.State().Saving)
	assert.True(t, c.ConfirmLeave())
	assert.Equal(t, 2, rec.count())
}
