// Package cloudevents publishes registry notifications as CloudEvents over
// HTTP.
package cloudevents

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ce "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"
	"github.com/tendant/simple-registry/pkg/registry"
)

const (
	DefaultSource  = "simple-registry"
	DefaultTimeout = 5 * time.Second

	TypeContentPublished = "io.simpleregistry.content.published"
	TypeContentRated     = "io.simpleregistry.content.rated"
	TypeProposalCreated  = "io.simpleregistry.proposal.created"
	TypeVoted            = "io.simpleregistry.proposal.voted"
	TypeProposalExecuted = "io.simpleregistry.proposal.executed"
)

// Sink sends every notification to a single HTTP target.
type Sink struct {
	client  ce.Client
	target  string
	source  string
	timeout time.Duration
}

var _ registry.EventSink = (*Sink)(nil)

// Option configures a Sink
type Option func(*Sink)

// WithSource overrides the CloudEvents source attribute.
func WithSource(source string) Option {
	return func(s *Sink) {
		s.source = source
	}
}

// WithTimeout bounds each delivery made by the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Sink) {
		s.timeout = timeout
	}
}

// WithClient replaces the default HTTP client.
func WithClient(client ce.Client) Option {
	return func(s *Sink) {
		s.client = client
	}
}

// New creates a sink that posts events to target.
func New(target string, opts ...Option) (*Sink, error) {
	if target == "" {
		return nil, fmt.Errorf("event sink target is required")
	}

	s := &Sink{target: target, source: DefaultSource, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		client, err := ce.NewClientHTTP(cehttp.WithClient(http.Client{Timeout: s.timeout}))
		if err != nil {
			return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
		}
		s.client = client
	}
	return s, nil
}

func (s *Sink) send(ctx context.Context, eventType, subject string, data interface{}) error {
	event := ce.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(s.source)
	event.SetType(eventType)
	event.SetSubject(subject)
	if err := event.SetData(ce.ApplicationJSON, data); err != nil {
		return fmt.Errorf("failed to encode %s: %w", eventType, err)
	}

	result := s.client.Send(ce.ContextWithTarget(ctx, s.target), event)
	if !ce.IsACK(result) {
		return fmt.Errorf("failed to send %s: %w", eventType, result)
	}
	return nil
}

func (s *Sink) ContentPublished(ctx context.Context, event registry.ContentPublished) error {
	return s.send(ctx, TypeContentPublished, contentSubject(event.ContentID), event)
}

func (s *Sink) ContentRated(ctx context.Context, event registry.ContentRated) error {
	return s.send(ctx, TypeContentRated, contentSubject(event.ContentID), event)
}

func (s *Sink) ProposalCreated(ctx context.Context, event registry.ProposalCreated) error {
	return s.send(ctx, TypeProposalCreated, proposalSubject(event.ProposalID), event)
}

func (s *Sink) Voted(ctx context.Context, event registry.Voted) error {
	return s.send(ctx, TypeVoted, proposalSubject(event.ProposalID), event)
}

func (s *Sink) ProposalExecuted(ctx context.Context, event registry.ProposalExecuted) error {
	return s.send(ctx, TypeProposalExecuted, proposalSubject(event.ProposalID), event)
}

func contentSubject(id uint64) string {
	return fmt.Sprintf("contents/%d", id)
}

func proposalSubject(id uint64) string {
	return fmt.Sprintf("proposals/%d", id)
}
