package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Expirer is the part of the booking service the sweeper drives.
type Expirer interface {
	ExpireStaleBookings(ctx context.Context, now time.Time) (int, error)
}

// Sweeper runs the pending-payment expiry on a cron schedule. Overlapping runs are skipped.
type Sweeper struct {
	cron    *cron.Cron
	expirer Expirer
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewSweeper schedules the sweep, e.g. "@every 1m" or "*/5 * * * *".
func NewSweeper(expirer Expirer, schedule string, logger *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		expirer: expirer,
		logger:  logger,
		timeout: 2 * time.Minute,
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

// RunOnce performs a single sweep and returns how many bookings it expired.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.expirer.ExpireStaleBookings(ctx, s.now())
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Int("expired", n), zap.Error(err))
		return n
	}
	if n > 0 {
		s.logger.Info("expired stale bookings", zap.Int("expired", n))
	}
	return n
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("expiry sweeper scheduled", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
