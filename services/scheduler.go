package services

import (
	"context"
	"fmt"
	"time"

	"revisitly-backend/logger"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Sweeper interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

// Scheduler runs the re-engagement sweep on a cron spec in UTC, e.g.
// "0 9 * * *" for every day at 9 AM.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
}

func NewScheduler(spec string, sweeper Sweeper) (*Scheduler, error) {
	cl := cronLogger{log: logger.For("scheduler")}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s := &Scheduler{cron: c, sweeper: sweeper, timeout: 30 * time.Minute}
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	l := logger.For("scheduler")
	l.Info().Msg("re-engagement scheduler started")
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	l := logger.For("scheduler")
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		l.Error().Err(err).Msg("scheduled sweep failed")
	}
}

// cronLogger routes cron's own messages (skipped runs, recovered panics)
// through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
