package registry

import "context"

// NoopEventSink is a no-operation implementation of EventSink
// Useful for production when you don't need event handling or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// ContentPublished does nothing and returns nil
func (n *NoopEventSink) ContentPublished(ctx context.Context, event ContentPublished) error {
	return nil
}

// ContentRated does nothing and returns nil
func (n *NoopEventSink) ContentRated(ctx context.Context, event ContentRated) error {
	return nil
}

// ProposalCreated does nothing and returns nil
func (n *NoopEventSink) ProposalCreated(ctx context.Context, event ProposalCreated) error {
	return nil
}

// Voted does nothing and returns nil
func (n *NoopEventSink) Voted(ctx context.Context, event Voted) error {
	return nil
}

// ProposalExecuted does nothing and returns nil
func (n *NoopEventSink) ProposalExecuted(ctx context.Context, event ProposalExecuted) error {
	return nil
}
