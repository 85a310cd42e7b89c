package autosave

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultInterval is the periodic save interval.
const DefaultInterval = 10 * time.Second

// Triggerer receives periodic save ticks.
type Triggerer interface {
	Trigger()
}

// Scheduler fires Trigger on a fixed interval.
type Scheduler struct {
	cron     *cron.Cron
	interval time.Duration
	log      *zap.Logger
}

// NewScheduler registers t on an "@every interval" schedule. Intervals below
// one second are rounded up by cron.
func NewScheduler(interval time.Duration, t Triggerer, logger *zap.Logger) (*Scheduler, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), t.Trigger); err != nil {
		return nil, fmt.Errorf("schedule autosave: %w", err)
	}
	return &Scheduler{cron: c, interval: interval, log: logger}, nil
}

// Start begins firing ticks.
func (s *Scheduler) Start() {
	s.log.Debug("autosave scheduler started", zap.Duration("interval", s.interval))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running tick to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

// Run starts a writer and scheduler together and returns a function that
// stops both.
func Run(ctx context.Context, w *Writer, interval time.Duration, logger *zap.Logger) (func(), error) {
	s, err := NewScheduler(interval, w, logger)
	if err != nil {
		return nil, err
	}
	w.Start(ctx)
	s.Start()
	return func() {
		s.Stop()
		w.Stop()
	}, nil
}

var _ Triggerer = (*Writer)(nil)
