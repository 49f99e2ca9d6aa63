package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const tickTimeout = 30 * time.Second

// Scheduler periodically advances the simulated flight state and evaluates price alerts
type Scheduler struct {
	cron    *cron.Cron
	catalog *FlightCatalog
	alerts  *PriceAlertService
	logger  *zap.Logger
}

// NewScheduler creates a scheduler running on a cron schedule such as "@every 1m"
func NewScheduler(schedule string, catalog *FlightCatalog, alerts *PriceAlertService, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scheduler")
	cl := cronLogger{logger.Sugar()}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		catalog: catalog,
		alerts:  alerts,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.Tick); err != nil {
		return nil, fmt.Errorf("invalid simulation schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background
func (s *Scheduler) Start() {
	s.logger.Info("Simulation scheduler started", zap.Int("entries", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running tick to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
	}
	s.logger.Info("Simulation scheduler stopped")
}

// Tick advances every flight to the catalog clock and checks the price alerts
func (s *Scheduler) Tick() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	now := s.catalog.Now()
	changed := s.catalog.AdvanceSimulatedState(ctx, now)

	triggered := 0
	if s.alerts != nil {
		alerts, err := s.alerts.Evaluate(ctx)
		if err != nil {
			s.logger.Error("Price alert evaluation failed", zap.Error(err))
		}
		triggered = len(alerts)
	}

	s.logger.Debug("Simulation tick",
		zap.Time("now", now),
		zap.Int("status_changes", changed),
		zap.Int("alerts_triggered", triggered))
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	*zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Errorw(msg, append(keysAndValues, "error", err)...)
}
