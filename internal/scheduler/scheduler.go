// Package scheduler delivers keyed, cancellable deferred messages. Timers do
// no work themselves: when one fires it enqueues a Message, and a single
// dispatch loop hands queued messages to the handler registered for their
// kind. Workflows never share mutable state with timer callbacks.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/observability"
)

// Kind routes a message to its handler.
type Kind string

// Message is a deferred instruction delivered at or after At.
type Message struct {
	Key     string
	Kind    Kind
	At      time.Time
	Payload any

	seq uint64
}

// Handler processes one delivered message. Handlers must tolerate late or
// stale messages by re-reading entity state.
type Handler func(ctx context.Context, msg Message) error

type entry struct {
	seq   uint64
	timer *clock.Timer
	msg   Message
}

// Scheduler owns the pending timers and the delivery queue.
type Scheduler struct {
	clock  clock.Clock
	logger *zap.Logger

	mu       sync.Mutex
	seq      uint64
	pending  map[string]*entry
	handlers map[Kind]Handler
	queue    []Message
	notify   chan struct{}
}

// New creates a scheduler driven by clk.
func New(clk clock.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		clock:    clk,
		logger:   logger,
		pending:  make(map[string]*entry),
		handlers: make(map[Kind]Handler),
		notify:   make(chan struct{}, 1),
	}
}

// Handle registers the handler for kind, replacing any previous one.
func (s *Scheduler) Handle(kind Kind, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Schedule arranges for a message to be delivered at at. A pending message
// with the same key is replaced. Times in the past are delivered on the next
// dispatch.
func (s *Scheduler) Schedule(key string, at time.Time, kind Kind, payload any) {
	s.mu.Lock()
	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
		delete(s.pending, key)
	}
	s.seq++
	e := &entry{
		seq: s.seq,
		msg: Message{Key: key, Kind: kind, At: at, Payload: payload, seq: s.seq},
	}
	s.pending[key] = e
	observability.ScheduledTimers.Set(float64(len(s.pending)))
	s.mu.Unlock()

	// The fake clock runs expired callbacks synchronously, so the timer is
	// created outside the lock.
	timer := s.clock.AfterFunc(at.Sub(s.clock.Now()), func() { s.enqueue(e.msg) })

	s.mu.Lock()
	if cur, ok := s.pending[key]; ok && cur.seq == e.seq {
		cur.timer = timer
	}
	s.mu.Unlock()
}

// Cancel drops the pending message for key. It reports whether a message
// was still pending; messages already handed to a handler cannot be recalled.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.pending, key)
	observability.ScheduledTimers.Set(float64(len(s.pending)))
	return true
}

// Pending reports whether key has an undelivered message.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// PendingCount returns the number of undelivered messages.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) enqueue(msg Message) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run dispatches queued messages until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
			s.RunPending(ctx)
		}
	}
}

// RunPending delivers every queued message synchronously and returns how
// many reached a handler.
func (s *Scheduler) RunPending(ctx context.Context) int {
	delivered := 0
	for {
		msg, ok := s.next()
		if !ok {
			return delivered
		}
		if s.claim(msg) {
			s.dispatch(ctx, msg)
			delivered++
		}
	}
}

func (s *Scheduler) next() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Message{}, false
	}
	msg := s.queue[0]
	s.queue = s.queue[1:]
	return msg, true
}

// claim removes the pending entry if msg is still its current message.
// Canceled or rescheduled messages are dropped here.
func (s *Scheduler) claim(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[msg.Key]
	if !ok || e.seq != msg.seq {
		return false
	}
	delete(s.pending, msg.Key)
	observability.ScheduledTimers.Set(float64(len(s.pending)))
	return true
}

func (s *Scheduler) dispatch(ctx context.Context, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in scheduled handler",
				zap.String("key", msg.Key),
				zap.String("kind", string(msg.Kind)),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()

	s.mu.Lock()
	h, ok := s.handlers[msg.Kind]
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("no handler for scheduled message", zap.String("kind", string(msg.Kind)), zap.String("key", msg.Key))
		return
	}
	if err := h(ctx, msg); err != nil {
		s.logger.Warn("scheduled handler failed",
			zap.String("key", msg.Key),
			zap.String("kind", string(msg.Kind)),
			zap.Error(err))
	}
}
