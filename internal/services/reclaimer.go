package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/events"
	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Reclaimer deletes provisional orders whose payment never arrived. No
// inventory was committed for them, so nothing else has to be undone.
type Reclaimer struct {
	uow       unitOfWork
	publisher events.Publisher
	metrics   *metrics.AppMetrics
	logger    zerolog.Logger
	schedule  cron.Schedule
	expr      string
	minAge    time.Duration
	now       func() time.Time
}

// NewReclaimer creates a reclaimer running on the standard five field cron
// schedule. Orders younger than minAge are left alone.
func NewReclaimer(st store.Store, pub events.Publisher, m *metrics.AppMetrics, schedule string, minAge, storeTimeout time.Duration, logger zerolog.Logger) (*Reclaimer, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid reclaim schedule %q: %w", schedule, err)
	}
	return &Reclaimer{
		uow:       unitOfWork{store: st, timeout: storeTimeout},
		publisher: pub,
		metrics:   m,
		logger:    logger.With().Str("component", "reclaimer").Logger(),
		schedule:  sched,
		expr:      schedule,
		minAge:    minAge,
		now:       time.Now,
	}, nil
}

// Reclaim deletes every provisional order older than the minimum age in one
// statement and returns how many were removed. A zero minimum age removes
// all of them.
func (r *Reclaimer) Reclaim(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.minAge)

	var n int64
	err := r.uow.run(ctx, "order", func(tx store.Tx) error {
		var err error
		n, err = tx.Orders().DeleteByStatus(ctx, models.OrderStatusCreated, cutoff)
		return err
	})
	if err != nil {
		return 0, err
	}

	if n > 0 {
		r.metrics.Count(ctx, r.metrics.OrdersReclaimed, n)
		publishEvents(ctx, r.publisher, r.logger, events.Event{
			Type:       events.TypeOrdersReclaimed,
			Count:      n,
			OccurredAt: r.now().UTC(),
		})
	}
	r.logger.Info().Int64("reclaimed", n).Time("cutoff", cutoff).Msg("abandoned provisional orders reclaimed")
	return n, nil
}

// Run sweeps on the schedule until ctx is cancelled, then waits for a sweep
// in flight to finish. A failed sweep is logged and the schedule continues.
func (r *Reclaimer) Run(ctx context.Context) error {
	cl := cronLogger{r.logger}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl))
	c.Schedule(r.schedule, cron.FuncJob(func() {
		if _, err := r.Reclaim(ctx); err != nil {
			r.logger.Error().Err(err).Msg("reclaim sweep failed")
		}
	}))

	c.Start()
	r.logger.Info().Str("schedule", r.expr).Dur("min_age", r.minAge).Msg("reclaimer started")

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info().Msg("reclaimer stopped")
	return nil
}

// cronLogger adapts zerolog to the cron logger interface.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
