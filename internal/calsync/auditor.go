package calsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/njoerd114/lifesync/internal/store"
)

const metricOrphans = "lifesync.calendar.orphans"

// Auditor periodically sweeps every user's calendar for events whose source
// entity is gone and logs them. It never repairs anything; orphans are
// reported so an operator can decide. Start it with [Auditor.Run].
type Auditor struct {
	svc      *Service
	schedule cron.Schedule
	log      *slog.Logger

	gauge metric.Int64Gauge
}

// NewAuditor creates an Auditor sweeping through svc on the standard
// five-field cron spec, which also accepts descriptors like "@every 15m"
// and "@daily".
func NewAuditor(svc *Service, spec string, logger *slog.Logger) (*Auditor, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing audit schedule %q: %w", spec, err)
	}
	g, err := otel.Meter(otelScope).Int64Gauge(metricOrphans,
		metric.WithDescription("Calendar events whose source entity no longer exists"))
	if err != nil {
		logger.Error("creating OTel gauge", "name", metricOrphans, "error", err)
		g = noop.Int64Gauge{}
	}
	return &Auditor{svc: svc, schedule: sched, log: logger, gauge: g}, nil
}

// RunOnce performs a single sweep and returns the number of orphans found.
func (a *Auditor) RunOnce(ctx context.Context) (n int, err error) {
	ctx, span := a.svc.start(ctx, "sweep")
	defer func() {
		span.SetAttributes(attribute.Int(attrEventCount, n))
		a.svc.finish(ctx, span, "sweep", outcomeOf(err), err)
	}()

	rows, err := a.svc.store.Select(ctx, store.TableCalendarEvents)
	if err != nil {
		return 0, fmt.Errorf("listing calendar events: %w", err)
	}
	evs, err := eventsFromRows(rows)
	if err != nil {
		return 0, err
	}
	orphans, err := a.svc.orphans(ctx, evs)
	if err != nil {
		return 0, err
	}

	for _, ev := range orphans {
		a.log.Warn("orphaned calendar event",
			"event_id", ev.ID, "user_id", ev.UserID,
			"source", ev.Source, "source_id", ev.SourceID)
	}
	a.gauge.Record(ctx, int64(len(orphans)))
	a.log.Debug("audit sweep complete", "events", len(evs), "orphans", len(orphans))
	return len(orphans), nil
}

// Run sweeps immediately and then at every scheduled time. It blocks until
// ctx is cancelled.
func (a *Auditor) Run(ctx context.Context) error {
	if _, err := a.RunOnce(ctx); err != nil {
		a.log.Error("initial audit sweep failed", "error", err)
	}

	for {
		next := a.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		a.log.Debug("next audit sweep scheduled", "at", next)

		select {
		case <-ctx.Done():
			timer.Stop()
			a.log.Info("auditor shutting down")
			return ctx.Err()
		case <-timer.C:
			if _, err := a.RunOnce(ctx); err != nil {
				a.log.Error("audit sweep failed", "error", err)
			}
		}
	}
}
