package calsync

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	otelScope      = "lifesync/calsync"
	metricCreated  = "lifesync.calendar.events.created"
	metricUpdated  = "lifesync.calendar.events.updated"
	metricDeleted  = "lifesync.calendar.events.deleted"
	metricPartial  = "lifesync.calendar.sync.partial"
	metricErrors   = "lifesync.calendar.sync.errors"
	attrOperation  = "calsync.operation"
	attrSource     = "calsync.source"
	attrOutcome    = "calsync.outcome"
	attrSourceID   = "calsync.source_id"
	attrEventCount = "calsync.events"
)

// Service is the calendar sync layer. Create one with [NewService]. It holds
// no state of its own beyond the store handle; every method is an
// independent, strictly sequential chain of store calls.
type Service struct {
	store EntityStore
	log   *slog.Logger
	now   func() time.Time

	// OTel instruments, always non-nil (no-op when telemetry is disabled).
	tracer     trace.Tracer
	cntCreated metric.Int64Counter
	cntUpdated metric.Int64Counter
	cntDeleted metric.Int64Counter
	cntPartial metric.Int64Counter
	cntErrors  metric.Int64Counter
}

// NewService creates a Service writing through st.
func NewService(st EntityStore, logger *slog.Logger) *Service {
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Service{
		store: st,
		log:   logger,
		now:   time.Now,

		tracer:     otel.Tracer(otelScope),
		cntCreated: mustCounter(metricCreated, "Number of calendar events inserted"),
		cntUpdated: mustCounter(metricUpdated, "Number of calendar or source rows rescheduled"),
		cntDeleted: mustCounter(metricDeleted, "Number of calendar events deleted"),
		cntPartial: mustCounter(metricPartial, "Number of multi-step operations that stopped half-way"),
		cntErrors:  mustCounter(metricErrors, "Number of failed sync operations"),
	}
}

// start opens a span for one public operation.
func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String(attrOperation, op))
	return s.tracer.Start(ctx, "calsync."+op, trace.WithAttributes(attrs...))
}

// finish records err and outcome on the span and bumps the error/partial
// counters.
func (s *Service) finish(ctx context.Context, span trace.Span, op string, outcome Outcome, err error) {
	defer span.End()
	span.SetAttributes(attribute.String(attrOutcome, outcome.String()))
	opAttr := metric.WithAttributes(attribute.String(attrOperation, op))
	if outcome.Partial() {
		s.cntPartial.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOperation, op),
			attribute.String(attrOutcome, outcome.String()),
		))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.cntErrors.Add(ctx, 1, opAttr)
	}
}

// outcomeOf maps a single-step result onto an outcome.
func outcomeOf(err error) Outcome {
	if err != nil {
		return Failed
	}
	return FullySynced
}

func sourceAttrs(source, sourceID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(attrSource, source),
		attribute.String(attrSourceID, sourceID),
	}
}
