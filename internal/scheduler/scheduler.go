package scheduler

import (
	"context"
	"fmt"
	"sync"

	"covid-data-portal/internal/config"
	"covid-data-portal/internal/ingest"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler triggers ingestion runs on a daily cron schedule. A mutex
// serializes runs: the store's delete-then-insert writes assume a single
// writer, so a manual trigger can never overlap the scheduled run.
type Scheduler struct {
	cron      *cron.Cron
	runner    *ingest.Runner
	config    *config.Config
	runMu     sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler
func NewScheduler(runner *ingest.Runner, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		config: cfg,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Scheduler.DailyRunEnabled {
		log.Info("Scheduler: Daily run is disabled in configuration")
		return nil
	}

	cronSpec := s.parseDailyRunTime(s.config.Scheduler.DailyRunTime)

	_, err := s.cron.AddFunc(cronSpec, func() {
		log.Info("Scheduler: Starting daily ingestion run...")
		result := s.RunNow(context.Background())
		if result.Success {
			log.Infof("Scheduler: Daily run completed: %s", result.Message)
		} else {
			log.Errorf("Scheduler: Daily run failed at %s: %s", result.Stage, result.Reason)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	log.Infof("Scheduler: Started with daily run at %s (cron: %s)", s.config.Scheduler.DailyRunTime, cronSpec)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		log.Info("Scheduler: Stopped")
	}
}

// RunNow immediately executes an ingestion run (for manual trigger). Runs
// are serialized; a second caller blocks until the first finishes.
func (s *Scheduler) RunNow(ctx context.Context) ingest.Result {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runner.Run(ctx)
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "06:00" -> "0 6 * * *" (run at 6:00 AM every day)
func (s *Scheduler) parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	log.Warnf("Scheduler: Failed to parse time '%s', using default 06:00", timeStr)
	return "0 6 * * *"
}
