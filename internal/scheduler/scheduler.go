// Package scheduler fires recurring background work on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/JustinTDCT/Marquee/internal/logging"
)

// Scheduler triggers cache warm runs. The callback either enqueues a task
// or warms inline when no queue is configured.
type Scheduler struct {
	cron *cron.Cron
	spec string
	warm func(ctx context.Context)
}

func New(spec string, warm func(ctx context.Context)) *Scheduler {
	return &Scheduler{cron: cron.New(), spec: spec, warm: warm}
}

// Start registers the job and starts the cron loop. An empty or "off"
// spec disables scheduling.
func (s *Scheduler) Start() error {
	log := logging.For("scheduler")
	if s.spec == "" || s.spec == "off" {
		log.Info("cache warm schedule disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.warm(context.Background()) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.WithField("schedule", s.spec).Info("cache warm scheduled")
	return nil
}

// Stop halts the cron loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
