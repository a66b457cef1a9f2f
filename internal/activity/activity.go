// Package activity records the human-readable event feed: strategy
// lifecycle changes, fills, risk locks, and simulator transitions.
package activity

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Type classifies a feed event.
type Type string

const (
	TypeStrategy  Type = "STRATEGY"
	TypeOrder     Type = "ORDER"
	TypeTrade     Type = "TRADE"
	TypeRisk      Type = "RISK"
	TypeSimulator Type = "SIMULATOR"
	TypeSystem    Type = "SYSTEM"
)

// Event is one entry in the activity feed.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	StrategyID string         `json:"strategy_id,omitempty"`
	Symbol     string         `json:"symbol,omitempty"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// DefaultCapacity bounds the in-memory feed.
const DefaultCapacity = 1000

// Recorder keeps a bounded, append-only event feed and fans new events
// out to subscribers. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	logger   *zap.Logger
	events   []Event
	capacity int
	subs     map[int]func(Event)
	nextSub  int
	now      func() time.Time
}

// NewRecorder creates a recorder holding up to capacity events; values
// <= 0 use DefaultCapacity.
func NewRecorder(capacity int, logger ...*zap.Logger) *Recorder {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		logger:   l,
		capacity: capacity,
		subs:     make(map[int]func(Event)),
		now:      time.Now,
	}
}

// SetClock injects a time source for deterministic tests.
func (r *Recorder) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Record stamps and appends an event, evicting the oldest entries past
// capacity, then notifies subscribers.
func (r *Recorder) Record(ev Event) Event {
	r.mu.Lock()
	ev.ID = uuid.NewString()
	ev.Timestamp = r.now()
	r.events = append(r.events, ev)
	if len(r.events) > r.capacity {
		r.events = r.events[len(r.events)-r.capacity:]
	}
	subs := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	r.logger.Debug("activity recorded",
		zap.String("type", string(ev.Type)),
		zap.String("message", ev.Message),
	)
	for _, fn := range subs {
		fn(ev)
	}
	return ev
}

// Recent returns up to n most recent events, newest first. n <= 0
// returns the whole feed.
func (r *Recorder) Recent(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.events
	if n > 0 && n < len(events) {
		events = events[len(events)-n:]
	}
	out := make([]Event, len(events))
	for i, ev := range events {
		out[len(events)-1-i] = ev
	}
	return out
}

// Subscribe registers a handler for new events and returns its
// unsubscribe function.
func (r *Recorder) Subscribe(fn func(Event)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}
