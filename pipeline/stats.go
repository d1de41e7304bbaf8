package pipeline

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// RunState carries the accounting for one Run: the success/failure counters,
// the stop flag workers poll between tasks, and the run-scoped logger.
type RunState struct {
	succeeded atomic.Int64
	failed    atomic.Int64
	total     int64
	stopped   atomic.Bool
	started   time.Time
	logger    *slog.Logger
}

func newRunState(total int, logger *slog.Logger) *RunState {
	return &RunState{
		total:   int64(total),
		started: time.Now(),
		logger:  logger,
	}
}

func (s *RunState) Logger() *slog.Logger { return s.logger }

// Stop halts dispatch of new tasks. Tasks already dequeued finish, and their
// results still reach the sink.
func (s *RunState) Stop() { s.stopped.Store(true) }

func (s *RunState) Stopped() bool { return s.stopped.Load() }

// TaskDone records exactly one counter increment per finished task and emits
// the progress line.
func (s *RunState) TaskDone(ok bool) {
	if ok {
		s.succeeded.Add(1)
		tasksTotal.WithLabelValues("success").Inc()
	} else {
		s.failed.Add(1)
		tasksTotal.WithLabelValues("failure").Inc()
	}
	s.logProgress()
}

func (s *RunState) logProgress() {
	if s.total == 0 {
		return
	}
	succeeded := s.succeeded.Load()
	failed := s.failed.Load()
	pct := float64(succeeded+failed) / float64(s.total) * 100
	s.logger.Info(fmt.Sprintf("success:: %d / failed:: %d / total:: %d progress:: %.2f%% / exec time:: %s",
		succeeded, failed, s.total, pct, time.Since(s.started).Round(time.Millisecond)))
}

func (s *RunState) Succeeded() int64 { return s.succeeded.Load() }

func (s *RunState) Failed() int64 { return s.failed.Load() }

func (s *RunState) Total() int64 { return s.total }

func (s *RunState) Elapsed() time.Duration { return time.Since(s.started) }
