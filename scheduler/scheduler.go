package scheduler

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"brainrot-pipeline/server"
)

// Scheduler triggers pipeline runs on a cron spec, bypassing HTTP entirely.
type Scheduler struct {
	cron   *cron.Cron
	runner server.Runner
}

// New creates a Scheduler around the given runner.
func New(runner server.Runner) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
	}
}

// Start registers spec and launches the cron loop. An empty spec disables
// scheduling.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if spec == "" {
		log.Println("[scheduler] no cron spec configured, scheduler disabled")
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		result, err := s.runner.Run(ctx)
		if err != nil {
			log.Printf("[scheduler] ⚠️ scheduled run error: %v", err)
			return
		}
		log.Printf("[scheduler] scheduled run finished: %s", result.Outcome)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[scheduler] started with spec %q", spec)
	return nil
}

// Stop halts the cron loop and waits for a running entry to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
