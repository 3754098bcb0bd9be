package jobs

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/seand52/socialDev/internal/service"
	"go.uber.org/zap"
)

type MeetingPruner interface {
	PruneMeetings(ctx context.Context, retention time.Duration) (int64, *service.Error)
}

// Scheduler runs periodic maintenance. Schedules use the six-field cron
// format with a leading seconds field.
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	timeout time.Duration
}

func NewScheduler(log *zap.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		log:     log,
		timeout: timeout,
	}
}

// AddMeetingPruning registers deletion of meetings older than retention.
func (s *Scheduler) AddMeetingPruning(schedule string, retention time.Duration, pruner MeetingPruner) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.pruneMeetings(retention, pruner)
	})
	if err != nil {
		return errors.Wrapf(err, "invalid meeting prune schedule %q", schedule)
	}
	s.log.Info("meeting pruning scheduled", zap.String("schedule", schedule), zap.Duration("retention", retention))
	return nil
}

func (s *Scheduler) pruneMeetings(retention time.Duration, pruner MeetingPruner) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, serr := pruner.PruneMeetings(ctx, retention)
	if serr != nil {
		s.log.Error("meeting pruning failed", zap.String("code", string(serr.Code)), zap.String("error", serr.Message))
		return
	}
	s.log.Debug("meeting pruning finished", zap.Int64("deleted", n))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
