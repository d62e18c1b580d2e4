package services

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepAutoService runs the overdue sweep on a schedule
type SweepAutoService struct {
	overdue  *OverdueService
	schedule string
	cron     *cron.Cron
}

// NewSweepAutoService creates a new scheduled sweeper. The schedule is a
// standard 5-field cron expression; an empty string falls back to 02:30 daily.
func NewSweepAutoService(overdue *OverdueService, schedule string) *SweepAutoService {
	if schedule == "" {
		schedule = "30 2 * * *"
	}
	return &SweepAutoService{
		overdue:  overdue,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start registers the sweep job and launches the scheduler
func (s *SweepAutoService) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.runSweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("🚀 SweepAutoService started (schedule: %s)", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *SweepAutoService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 SweepAutoService stopped")
}

func (s *SweepAutoService) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.overdue.Sweep(ctx); err != nil {
		log.Printf("❌ Scheduled overdue sweep failed: %v", err)
	}
}
