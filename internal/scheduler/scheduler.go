package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// WindowShifter rotates the 3-day booking window by one day.
type WindowShifter interface {
	ShiftWindow(ctx context.Context) error
}

// Scheduler runs the daily timetable shift. The shift fires once per
// local midnight; the scheduler owns the at-most-once-per-day guarantee,
// the shift itself is a plain operation that double-shifts if called
// twice in the same boundary.
type Scheduler struct {
	shifter  WindowShifter
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewScheduler constructs a Scheduler. logger may be nil.
func NewScheduler(shifter WindowShifter, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		shifter:  shifter,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background shift task.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting timetable shift scheduler")
	go s.runShiftTask(ctx)
}

// Stop terminates the background task. Safe to call once.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping timetable shift scheduler")
	close(s.stopChan)
}

// runShiftTask sleeps until the next local midnight, shifts, and repeats.
func (s *Scheduler) runShiftTask(ctx context.Context) {
	for {
		wait := untilNextMidnight(time.Now())
		s.logger.Info("next timetable shift scheduled", zap.Duration("in", wait))
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			s.shift(ctx)
		case <-s.stopChan:
			timer.Stop()
			s.logger.Info("timetable shift task stopped")
			return
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("timetable shift task cancelled")
			return
		}
	}
}

func (s *Scheduler) shift(ctx context.Context) {
	s.logger.Info("shifting timetable window")
	if err := s.shifter.ShiftWindow(ctx); err != nil {
		s.logger.Error("timetable shift failed", zap.Error(err))
		return
	}
	s.logger.Info("timetable window shifted")
}

// untilNextMidnight returns the duration from now to the next local day
// boundary. Always positive, so a shift never fires twice for one
// boundary.
func untilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return next.Sub(now)
}
