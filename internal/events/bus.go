// Package events is the in-process notification bus that lets views reload
// after another component mutated shared data.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Topic string

const (
	AffaireCreated Topic = "affaire.created"
	TaskCreated    Topic = "task.created"
	TaskUpdated    Topic = "task.updated"
	TaskDeleted    Topic = "task.deleted"
	TasksSaved     Topic = "tasks.saved"
	TasksImported  Topic = "tasks.imported"
)

type Event struct {
	ID        string    `json:"id"`
	Topic     Topic     `json:"topic"`
	TaskID    int64     `json:"task_id,omitempty"`
	AffaireID int64     `json:"affaire_id,omitempty"`
	Count     int       `json:"count,omitempty"`
	At        time.Time `json:"at"`
}

// subscriberBuffer bounds how far a slow subscriber may fall behind before
// events are dropped for it.
const subscriberBuffer = 16

type subscription struct {
	ch     chan Event
	topics map[Topic]struct{}
}

func (s *subscription) wants(t Topic) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[t]
	return ok
}

// Bus delivers events best-effort: a subscriber whose buffer is full misses
// the event rather than blocking the publisher.
type Bus struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
	now  func() time.Time
}

func NewBus() *Bus {
	return &Bus{subs: map[*subscription]struct{}{}, now: time.Now}
}

// Subscribe returns a channel receiving events of the given topics (all topics
// when none are given) and a cancel func that closes it.
func (b *Bus) Subscribe(topics ...Topic) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, subscriberBuffer)}
	if len(topics) > 0 {
		sub.topics = make(map[Topic]struct{}, len(topics))
		for _, t := range topics {
			sub.topics[t] = struct{}{}
		}
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Publish stamps ev with an id and time when missing and fans it out.
// A nil Bus is a no-op.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = b.now().UTC()
	}
	b.mu.Lock()
	for sub := range b.subs {
		if !sub.wants(ev.Topic) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
	b.mu.Unlock()
}

// Subscribers reports the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
