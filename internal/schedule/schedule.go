// Package schedule runs the periodic ICS sync and page capture jobs.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "planner/internal/log"
)

// Job is a named unit of periodic work.
type Job struct {
	Name string
	// Spec is a standard 5-field cron expression or a descriptor such as
	// "@hourly" or "@every 30m".
	Spec string
	Run  func(ctx context.Context) error
	// Timeout bounds one run; zero means no limit beyond the scheduler ctx.
	Timeout time.Duration
}

// Scheduler wraps a cron runner whose jobs share a parent context.
type Scheduler struct {
	ctx  context.Context
	cron *cron.Cron
	jobs map[string]Job
}

// New returns a scheduler; jobs see ctx and stop when it is canceled.
// Overlapping runs of the same job are skipped.
func New(ctx context.Context) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		ctx: ctx,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		jobs: make(map[string]Job),
	}
}

// Add registers job. An invalid spec is an error; an empty spec disables
// the job and is not.
func (s *Scheduler) Add(job Job) error {
	if job.Spec == "" {
		appLog.Info("scheduled job disabled", "job", job.Name)
		return nil
	}
	if job.Run == nil {
		return fmt.Errorf("schedule %s: nil run func", job.Name)
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("schedule %s: duplicate job name", job.Name)
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { _ = s.run(job) }); err != nil {
		return fmt.Errorf("schedule %s: invalid spec %q: %w", job.Name, job.Spec, err)
	}
	s.jobs[job.Name] = job
	appLog.Info("scheduled job registered", "job", job.Name, "spec", job.Spec)
	return nil
}

// RunNow runs a registered job synchronously, outside the cron schedule.
func (s *Scheduler) RunNow(name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("schedule: unknown job %q", name)
	}
	return s.run(job)
}

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.jobs) }

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for running jobs, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		appLog.Warn("scheduler stop timed out; jobs still running")
	}
}

func (s *Scheduler) run(job Job) error {
	return RunOnce(s.ctx, job)
}

// RunOnce runs job a single time under ctx, applying its timeout and logging
// the outcome. It is used for one-shot CLI modes.
func RunOnce(ctx context.Context, job Job) error {
	if job.Run == nil {
		return fmt.Errorf("schedule %s: nil run func", job.Name)
	}
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	start := time.Now()
	err := job.Run(ctx)
	if err != nil {
		appLog.Error("scheduled job failed", err, "job", job.Name, "elapsed", time.Since(start).String())
		return err
	}
	appLog.Info("scheduled job finished", "job", job.Name, "elapsed", time.Since(start).String())
	return nil
}

// cronLogger adapts appLog to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
