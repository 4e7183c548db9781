package registry

import (
	"context"
	"errors"
	"log/slog"
)

// LogEventSink writes every notification to a structured logger.
type LogEventSink struct {
	logger *slog.Logger
}

// NewLogEventSink creates an event sink that logs at info level.
func NewLogEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventSink{logger: logger}
}

func (l *LogEventSink) ContentPublished(ctx context.Context, event ContentPublished) error {
	l.logger.InfoContext(ctx, "ContentPublished",
		"content_id", event.ContentID,
		"creator", event.Creator.Hex(),
		"title", event.Title)
	return nil
}

func (l *LogEventSink) ContentRated(ctx context.Context, event ContentRated) error {
	l.logger.InfoContext(ctx, "ContentRated",
		"content_id", event.ContentID,
		"rater", event.Rater.Hex(),
		"rating", event.Rating)
	return nil
}

func (l *LogEventSink) ProposalCreated(ctx context.Context, event ProposalCreated) error {
	l.logger.InfoContext(ctx, "ProposalCreated",
		"proposal_id", event.ProposalID,
		"proposer", event.Proposer.Hex(),
		"description", event.Description)
	return nil
}

func (l *LogEventSink) Voted(ctx context.Context, event Voted) error {
	l.logger.InfoContext(ctx, "Voted",
		"proposal_id", event.ProposalID,
		"voter", event.Voter.Hex())
	return nil
}

func (l *LogEventSink) ProposalExecuted(ctx context.Context, event ProposalExecuted) error {
	l.logger.InfoContext(ctx, "ProposalExecuted", "proposal_id", event.ProposalID)
	return nil
}

// MultiEventSink fans a notification out to several sinks. Every sink is
// called; the returned error joins the individual failures.
type MultiEventSink []EventSink

// NewMultiEventSink combines sinks, skipping nil entries.
func NewMultiEventSink(sinks ...EventSink) EventSink {
	var m MultiEventSink
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m MultiEventSink) each(fn func(EventSink) error) error {
	var errs []error
	for _, s := range m {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) ContentPublished(ctx context.Context, event ContentPublished) error {
	return m.each(func(s EventSink) error { return s.ContentPublished(ctx, event) })
}

func (m MultiEventSink) ContentRated(ctx context.Context, event ContentRated) error {
	return m.each(func(s EventSink) error { return s.ContentRated(ctx, event) })
}

func (m MultiEventSink) ProposalCreated(ctx context.Context, event ProposalCreated) error {
	return m.each(func(s EventSink) error { return s.ProposalCreated(ctx, event) })
}

func (m MultiEventSink) Voted(ctx context.Context, event Voted) error {
	return m.each(func(s EventSink) error { return s.Voted(ctx, event) })
}

func (m MultiEventSink) ProposalExecuted(ctx context.Context, event ProposalExecuted) error {
	return m.each(func(s EventSink) error { return s.ProposalExecuted(ctx, event) })
}
