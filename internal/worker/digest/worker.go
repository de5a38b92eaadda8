package digest

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tribelabs/tribe/internal/notify"
	"github.com/tribelabs/tribe/internal/setup"
	"github.com/tribelabs/tribe/internal/worker/core"
	"go.uber.org/zap"
)

// Worker runs periodic digest sweeps for one cadence (daily or weekly).
type Worker struct {
	aggregator *notify.Aggregator
	reporter   *core.StatusReporter
	digestType string
	interval   time.Duration
	logger     *zap.Logger
}

// New creates a digest worker for the given cadence.
func New(app *setup.App, digestType string, logger *zap.Logger) *Worker {
	repo := app.DB.Model()
	aggregator := notify.NewAggregator(
		repo.Job(),
		repo.Recipient(),
		repo.Update(),
		repo.Stats(),
		app.Senders,
		app.Config.Common.App.BaseURL,
		app.Config.Worker.Digest.BatchSize,
		logger,
	)

	return &Worker{
		aggregator: aggregator,
		reporter:   core.NewStatusReporter(app.StatusClient, "digest", digestType, logger),
		digestType: digestType,
		interval:   time.Duration(app.Config.Worker.Digest.SweepInterval) * time.Minute,
		logger:     logger,
	}
}

// Start begins the worker's sweep loop. Each tick claims and processes due
// jobs; sweep errors back the worker off before the next attempt instead of
// hammering a failing dependency.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Digest worker started",
		zap.String("digestType", w.digestType),
		zap.String("workerID", w.reporter.GetWorkerID()),
		zap.Duration("interval", w.interval))

	w.reporter.Start(ctx)
	defer w.reporter.Stop()

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(w.interval),
		backoff.WithMaxInterval(w.interval*8),
		backoff.WithMaxElapsedTime(0),
	)

	for {
		w.reporter.UpdateStatus("Sweeping due jobs", 0, 0)

		counts := w.aggregator.ProcessDigests(ctx, w.digestType)

		w.reporter.UpdateStatus("Idle", counts.Processed, counts.Errors)
		w.reporter.SetHealthy(counts.Errors == 0)

		wait := w.interval
		if counts.Errors > 0 {
			wait = b.NextBackOff()
		} else {
			b.Reset()
		}

		select {
		case <-ctx.Done():
			w.logger.Info("Digest worker stopping", zap.String("digestType", w.digestType))
			return
		case <-time.After(wait):
		}
	}
}
