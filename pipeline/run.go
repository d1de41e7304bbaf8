package pipeline

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

type Pipeline struct {
	cfg       Config
	transport Transport
	parser    Parser
	sink      Sink
	logger    *slog.Logger
	state     *RunState
}

func New(cfg Config, transport Transport, parser Parser, sink Sink, logger *slog.Logger) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 20
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 250
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 5
	}
	if cfg.ResultBuffer < 1 {
		cfg.ResultBuffer = 1000
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, transport: transport, parser: parser, sink: sink, logger: logger}
}

// Run executes one full pass over tasks and reports overall success. The run
// fails only when dispatch was cut short while tasks were still queued,
// either by a sink failure or by cancellation; workers are never aborted
// mid-task and queued results are always drained before the verdict.
func (p *Pipeline) Run(ctx context.Context, tasks []Task) bool {
	logger := p.logger.With("run_id", uuid.NewString())
	state := newRunState(len(tasks), logger)
	p.state = state

	if len(tasks) == 0 {
		logger.Info("no tasks to run")
		return true
	}

	// Shuffle so session and proxy load spreads across the category tree.
	shuffled := make([]Task, len(tasks))
	copy(shuffled, tasks)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	taskQueue := make(chan Task, len(shuffled))
	for _, t := range shuffled {
		taskQueue <- t
	}
	close(taskQueue)

	results := make(chan Record, p.cfg.ResultBuffer)

	logger.Info("pipeline dispatched",
		"tasks", len(shuffled),
		"workers", p.cfg.Workers,
		"batch_size", p.cfg.BatchSize,
	)

	var saveErr error
	saverDone := make(chan struct{})
	go func() {
		defer close(saverDone)
		saveErr = p.runSaver(ctx, results, state)
	}()

	p.runWorkers(ctx, taskQueue, results, state)

	// Pool is done. Closing the result queue hands the saver its drain
	// signal; it flushes the remainder and exits.
	close(results)
	<-saverDone

	remaining := len(taskQueue)
	if remaining > 0 && (state.Stopped() || ctx.Err() != nil) {
		logger.Error("pipeline failed",
			"tasks_remaining", remaining,
			"succeeded", state.Succeeded(),
			"failed", state.Failed(),
			"err", saveErr,
		)
		return false
	}
	if remaining > 0 {
		logger.Warn("tasks left unconsumed", "tasks_remaining", remaining)
	}
	if saveErr != nil {
		logger.Error("sink failures during drain", "err", saveErr)
	}

	logger.Info("pipeline finished",
		"succeeded", state.Succeeded(),
		"failed", state.Failed(),
		"total", state.Total(),
		"duration", state.Elapsed().Round(time.Millisecond),
	)
	return true
}

// State exposes the accounting of the current or most recent Run.
func (p *Pipeline) State() *RunState { return p.state }
