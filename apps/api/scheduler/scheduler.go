// Package scheduler runs the periodic maintenance jobs of the API server.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/budget"
)

type Scheduler struct {
	cron      *cron.Cron
	budgetSvc budget.Service
	logger    core.Logger
}

func New(budgetSvc budget.Service, logger core.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		budgetSvc: budgetSvc,
		logger:    logger,
	}
}

// Start registers and launches the jobs. Pools whose end date has passed
// are swept to completed every hour.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.completeExpiredPools); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) completeExpiredPools() {
	n, err := s.budgetSvc.CompleteExpired(context.Background())
	if err != nil {
		s.logger.Error(fmt.Sprintf("completing expired budget pools: %v", err), err)
		return
	}
	if n > 0 {
		s.logger.Info(fmt.Sprintf("completed %d expired budget pool(s)", n))
	}
}
