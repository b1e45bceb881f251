package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/robfig/cron/v3"
)

// ActivityRetention is how long activity log entries are kept.
const ActivityRetention = 90 * 24 * time.Hour

type Scheduler struct {
	cron   *cron.Cron
	logger logging.Logger
}

func NewScheduler(logger logging.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Job is one scheduled task. Sub tags every log line the run produces.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Sub      logging.SubCategory
	Run      func(ctx context.Context) error
}

// Add registers job under a standard cron expression or a descriptor such
// as "@every 15m". Each run gets its own timeout.
func (s *Scheduler) Add(job Job) error {
	if _, err := cron.ParseStandard(job.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", job.Schedule, job.Name, err)
	}

	_, err := s.cron.AddFunc(job.Schedule, func() { s.run(job) })
	return err
}

func (s *Scheduler) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), job.Timeout)
	defer cancel()

	started := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error(logging.Jobs, job.Sub, "scheduled job failed", map[logging.ExtraKey]any{
			logging.Job:          job.Name,
			logging.ErrorMessage: err.Error(),
		})
		return
	}
	s.logger.Debug(logging.Jobs, job.Sub, "scheduled job finished", map[logging.ExtraKey]any{
		logging.Job:     job.Name,
		logging.Latency: time.Since(started).String(),
	})
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// PruneActivity deletes activity entries older than the retention.
func PruneActivity(repo domain.ActivityRepository, now func() time.Time) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return repo.DeleteOlderThan(ctx, now().Add(-ActivityRetention))
	}
}
