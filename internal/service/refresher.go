package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

// RefreshTimeout bounds one scheduled rebuild
const RefreshTimeout = 2 * time.Minute

// Refresher rebuilds the search snapshot on a cron schedule
type Refresher struct {
	engine   *SearchService
	cron     *cron.Cron
	schedule string
	logger   *logger.Logger
}

// NewRefresher creates a refresher for a standard cron spec or descriptor
// such as "@every 15m"
func NewRefresher(engine *SearchService, schedule string, logger *logger.Logger) (*Refresher, error) {
	log := logger.WithComponent("snapshot-refresher")
	cl := cronLogger{log}

	r := &Refresher{
		engine:   engine,
		schedule: schedule,
		logger:   log,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if _, err := r.cron.AddFunc(schedule, r.refresh); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start starts the scheduler in its own goroutine
func (r *Refresher) Start() {
	r.logger.Info("Starting snapshot refresher", "schedule", r.schedule)
	r.cron.Start()
}

// Stop stops the scheduler and waits for a running refresh to finish or ctx to end
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		r.logger.Info("Snapshot refresher stopped")
	case <-ctx.Done():
		r.logger.Warn("Timed out waiting for refresh to finish")
	}
}

// Trigger runs a refresh now, outside the schedule
func (r *Refresher) Trigger() {
	r.refresh()
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), RefreshTimeout)
	defer cancel()

	stats, err := r.engine.Refresh(ctx)
	if err != nil {
		r.logger.Error("Scheduled refresh failed", "error", err)
		return
	}
	r.logger.Info("Scheduled refresh completed",
		"snapshot_id", stats.SnapshotID,
		"items", stats.Items,
		"partial", contentTypes(stats.Partial),
	)
}

// cronLogger adapts the application logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, append(keysAndValues, "error", err)...)
}
