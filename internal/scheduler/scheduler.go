// Package scheduler runs periodic sweeps of due sites.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

// Sweeper crawls every due site and reports the outcome.
type Sweeper interface {
	SweepDue(ctx context.Context) (site.SweepReport, error)
}

// Scheduler triggers sweeps on a cron spec. Deployments that use an
// external cron hitting the HTTP endpoint leave it disabled.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *zap.Logger
}

// New creates a Scheduler that sweeps on the given cron spec, e.g.
// "@every 1h" or "*/15 * * * *".
func New(spec string, sweeper Sweeper, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	s := &Scheduler{
		cron:    c,
		sweeper: sweeper,
		logger:  logger,
	}
	if _, err := c.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins triggering sweeps in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweep() {
	report, err := s.sweeper.SweepDue(context.Background())
	if err != nil {
		s.logger.Error("scheduled sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled sweep finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
}
