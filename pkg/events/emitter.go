// Package events publishes record disposition changes
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	appctx "github.com/Ramsey-B/thistle/pkg/context"
	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Publisher writes keyed messages to the event stream
type Publisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Emitter handles event emission for thistle. A nil publisher disables it.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
	now       func() time.Time
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether events are published anywhere
func (e *Emitter) Enabled() bool {
	return e != nil && e.publisher != nil
}

// EmitRecordLabeled emits a record.labeled event for a saved record
func (e *Emitter) EmitRecordLabeled(ctx context.Context, l Labeled) error {
	if !e.Enabled() {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordLabeled")
	defer span.End()

	event := &RecordEvent{
		BaseEvent:      e.base(ctx, EventTypeRecordLabeled),
		Kind:           l.Kind,
		RecordID:       l.RecordID,
		ProjectID:      l.ProjectID,
		ClientID:       l.ClientID,
		Label:          l.Disposition.Label,
		DuplicateOf:    l.Disposition.DuplicateOf,
		MatchCase:      l.MatchCase,
		FuzzyMatchCase: l.FuzzyMatchCase,
		Created:        l.Created,
	}

	if err := e.publisher.Publish(ctx, message(ctx, event)); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("record_id", l.RecordID).Error("Failed to emit record.labeled event")
		return err
	}
	return nil
}

// EmitRecordsRelabeled emits one record.relabeled event per dependent whose
// disposition moved during a cascade. Unchanged dependents emit nothing.
func (e *Emitter) EmitRecordsRelabeled(ctx context.Context, result *matching.CascadeResult) error {
	if !e.Enabled() || result == nil {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordsRelabeled")
	defer span.End()

	var msgs []kafka.Message
	for _, r := range result.Relabeled {
		if !r.Changed() {
			continue
		}
		msgs = append(msgs, message(ctx, &RecordEvent{
			BaseEvent:           e.base(ctx, EventTypeRecordRelabeled),
			Kind:                result.Kind,
			RecordID:            r.ID,
			ProjectID:           result.ProjectID,
			Label:               r.After.Label,
			DuplicateOf:         r.After.DuplicateOf,
			MatchCase:           r.MatchCase,
			PreviousLabel:       r.Before.Label,
			PreviousDuplicateOf: r.Before.DuplicateOf,
			CauseID:             result.RecordID,
		}))
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := e.publisher.Publish(ctx, msgs...); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"record_id":  result.RecordID,
			"batch_size": len(msgs),
		}).Error("Failed to emit record.relabeled events")
		return err
	}
	return nil
}

func (e *Emitter) base(ctx context.Context, t EventType) BaseEvent {
	return BaseEvent{
		EventType:     t,
		SchemaVersion: SchemaVersion,
		Timestamp:     e.now(),
		CorrelationID: appctx.GetRequestID(ctx),
	}
}

func message(ctx context.Context, event *RecordEvent) kafka.Message {
	headers := map[string]string{
		"event_type":     string(event.EventType),
		"kind":           string(event.Kind),
		"project_id":     event.ProjectID,
		"schema_version": SchemaVersion,
	}
	for k, v := range tracing.Headers(ctx) {
		headers[k] = v
	}
	return kafka.Message{
		Key:     event.RecordID,
		Headers: headers,
		Value:   event,
	}
}
