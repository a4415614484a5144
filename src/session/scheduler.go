package session

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs fixed-interval jobs on a shared cron instance. Entries are
// owned by client sessions and removed when the session ends.
type Scheduler struct {
	cron   *cron.Cron
	logger cron.Logger
}

func NewScheduler() *Scheduler {
	logger := cron.PrintfLogger(log.New(os.Stdout, "scheduler: ", log.LstdFlags))
	c := cron.New(cron.WithChain(cron.Recover(logger)))
	c.Start()

	return &Scheduler{cron: c, logger: logger}
}

// Every schedules fn every interval. A run is skipped while the previous
// one is still going.
func (s *Scheduler) Every(interval time.Duration, fn func()) cron.EntryID {
	job := cron.NewChain(cron.SkipIfStillRunning(s.logger)).Then(cron.FuncJob(fn))
	return s.cron.Schedule(cron.Every(interval), job)
}

func (s *Scheduler) Remove(id cron.EntryID) {
	if id != 0 {
		s.cron.Remove(id)
	}
}

func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Stop halts scheduling and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
