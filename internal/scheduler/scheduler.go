// Package scheduler wraps the gocron library for the bot's recurring
// maintenance tasks.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs recurring jobs, such as the periodic display name refresh.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates and starts a scheduler in UTC with structured
// logging.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(&gocronLogAdapter{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s.Start()
	slog.Debug("scheduler started")

	return &Scheduler{scheduler: s}, nil
}

// AddEvery schedules job to run at a fixed interval.
func (s *Scheduler) AddEvery(name string, interval time.Duration, job func()) error {
	if name == "" {
		return errors.New("empty job name")
	}
	if interval <= 0 {
		return errors.New("non-positive interval")
	}
	if job == nil {
		return errors.New("nil job function")
	}

	const slowThreshold = 5 * time.Second

	wrappedJob := func() {
		startTime := time.Now()
		job()

		if duration := time.Since(startTime); duration > slowThreshold {
			slog.Warn("slow scheduled job execution",
				"job_name", name,
				"duration_ms", duration.Milliseconds())
		}
	}

	scheduledJob, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(wrappedJob),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	logAttrs := []any{"job_name", name, "interval", interval}
	if nextRun, err := scheduledJob.NextRun(); err == nil {
		logAttrs = append(logAttrs, "next_run", nextRun.Format(time.RFC3339))
	}
	slog.Info("job scheduled", logAttrs...)

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() error {
	slog.Debug("stopping scheduler", "active_jobs", len(s.scheduler.Jobs()))

	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}

	return nil
}

type gocronLogAdapter struct{}

func (l *gocronLogAdapter) Debug(msg string, args ...any) {
	slog.Debug(msg, toSlogArgs(args)...)
}

func (l *gocronLogAdapter) Info(msg string, args ...any) {
	slog.Info(msg, toSlogArgs(args)...)
}

func (l *gocronLogAdapter) Warn(msg string, args ...any) {
	slog.Warn(msg, toSlogArgs(args)...)
}

func (l *gocronLogAdapter) Error(msg string, args ...any) {
	slog.Error(msg, toSlogArgs(args)...)
}

func toSlogArgs(args []any) []any {
	slogArgs := make([]any, 0, len(args))

	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			key, ok := args[i].(string)
			if !ok {
				key = fmt.Sprintf("%v", args[i])
			}
			slogArgs = append(slogArgs, key, args[i+1])
		} else {
			slogArgs = append(slogArgs, "value", args[i])
		}
	}

	return slogArgs
}
