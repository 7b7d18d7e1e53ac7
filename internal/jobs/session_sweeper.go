package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSweepSchedule = "@every 15m"
	DefaultRetention     = 30 * 24 * time.Hour
)

type ClosedSessionPurger interface {
	PurgeClosed(ctx context.Context, before time.Time) (int64, error)
}

// SessionSweeper deletes sessions that were closed (logout, revocation,
// lazy expiry) more than Retention ago. Active sessions are left alone even
// when past their expiry: an expired token can still be refreshed.
type SessionSweeper struct {
	Sessions  ClosedSessionPurger
	Logger    logrus.FieldLogger
	Now       func() time.Time
	Timeout   time.Duration
	Retention time.Duration

	cron *cron.Cron
}

func NewSessionSweeper(sessions ClosedSessionPurger, logger logrus.FieldLogger) *SessionSweeper {
	return &SessionSweeper{
		Sessions:  sessions,
		Logger:    logger,
		Now:       time.Now,
		Timeout:   30 * time.Second,
		Retention: DefaultRetention,
	}
}

func (s *SessionSweeper) RunOnce(ctx context.Context) (int64, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	retention := s.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	count, err := s.Sessions.PurgeClosed(ctx, now.Add(-retention))
	if err != nil {
		s.Logger.WithError(err).Error("session sweep failed")
		return 0, err
	}
	if count > 0 {
		s.Logger.WithField("purged", count).Info("session sweep removed closed sessions")
	}
	return count, nil
}

// Start schedules RunOnce on schedule. An empty schedule leaves the sweeper
// idle.
func (s *SessionSweeper) Start(schedule string) error {
	if schedule == "" {
		s.Logger.Info("session sweeper disabled")
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		_, _ = s.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.Logger.WithFields(logrus.Fields{"schedule": schedule, "retention": s.Retention.String()}).Info("session sweeper started")
	return nil
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *SessionSweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
