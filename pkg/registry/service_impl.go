package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
)

// service implements the Service interface
type service struct {
	repository Repository
	ledger     Ledger
	eventSink  EventSink
	logger     *slog.Logger
	owner      common.Address

	// mu serializes mutating calls; reads share it.
	mu     sync.RWMutex
	guard  Guard
	access *accessControl
	// inCallout is set while a collaborator runs under the writer lock.
	inCallout atomic.Bool
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithLedger sets the ledger used to pay creators
func WithLedger(ledger Ledger) Option {
	return func(s *service) {
		s.ledger = ledger
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithOwner sets the registry owner
func WithOwner(owner common.Address) Option {
	return func(s *service) {
		s.owner = owner
	}
}

// WithLogger sets the logger used for non-fatal failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		eventSink: NewNoopEventSink(),
		logger:    slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if s.owner == (common.Address{}) {
		return nil, fmt.Errorf("owner is required")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}

	s.access = &accessControl{owner: s.owner, repository: s.repository}
	return s, nil
}

type writerKey struct{}

// writer marks a context as belonging to a running operation. Events raised
// while it runs wait in outbox until the writer lock is released.
type writer struct {
	svc    *service
	outbox []pendingEvent
}

type pendingEvent struct {
	name string
	fire func(EventSink) error
}

func (s *service) writerFrom(ctx context.Context) *writer {
	w, _ := ctx.Value(writerKey{}).(*writer)
	if w == nil || w.svc != s {
		return nil
	}
	return w
}

// nested reports whether ctx belongs to an operation already running on s.
func (s *service) nested(ctx context.Context) bool {
	return s.writerFrom(ctx) != nil
}

// write runs fn as the single writer. Calls made with the context of a running
// operation are already serialized and run inline. A call with any other
// context that arrives while the running operation is inside a collaborator
// fails with ErrReentrancyDetected instead of waiting for the lock.
// Queued events are delivered after the lock is released.
func (s *service) write(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.nested(ctx) {
		return fn(ctx)
	}
	if !s.mu.TryLock() {
		if s.inCallout.Load() {
			return ErrReentrancyDetected
		}
		s.mu.Lock()
	}

	w := &writer{svc: s}
	err := func() error {
		defer s.mu.Unlock()
		return fn(context.WithValue(ctx, writerKey{}, w))
	}()

	for _, e := range w.outbox {
		s.deliver(ctx, e)
	}
	return err
}

// read runs fn against a consistent snapshot. While the writer is inside a
// collaborator, fn runs without the lock and sees the committed state.
func (s *service) read(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.nested(ctx) {
		return fn(ctx)
	}
	if !s.mu.TryRLock() {
		if s.inCallout.Load() {
			return fn(ctx)
		}
		s.mu.RLock()
	}
	defer s.mu.RUnlock()
	return fn(ctx)
}

// guarded runs fn as the writer, after the pause check, inside the
// reentrancy latch.
func (s *service) guarded(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.write(ctx, func(ctx context.Context) error {
		if err := s.access.requireUnpaused(ctx); err != nil {
			return err
		}
		return s.guard.Do(func() error {
			return fn(ctx)
		})
	})
}

// callout runs a call into an external collaborator while the writer lock is
// held.
func (s *service) callout(fn func() error) error {
	s.inCallout.Store(true)
	defer s.inCallout.Store(false)
	return fn()
}

// notify queues an event for delivery once the running operation releases the
// writer lock. Outside an operation it is delivered at once.
func (s *service) notify(ctx context.Context, name string, fire func(EventSink) error) {
	e := pendingEvent{name: name, fire: fire}
	if w := s.writerFrom(ctx); w != nil {
		w.outbox = append(w.outbox, e)
		return
	}
	s.deliver(ctx, e)
}

// deliver sends one event. Sink failures are logged and never fail the
// operation that produced the event.
func (s *service) deliver(ctx context.Context, e pendingEvent) {
	if err := e.fire(s.eventSink); err != nil {
		s.logger.WarnContext(ctx, "Failed to deliver event", "event", e.name, "error", err)
	}
}
