package pipeline

import (
	"context"
	"sync"
	"time"
)

// runWorkers starts the fixed-size pool and blocks until every worker exits.
func (p *Pipeline) runWorkers(ctx context.Context, tasks <-chan Task, results chan<- Record, state *RunState) {
	permits := make(chan struct{}, p.cfg.Workers)

	var wg sync.WaitGroup
	for i := 1; i <= p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id, permits, tasks, results, state)
		}(i)
	}
	wg.Wait()
}

// worker consumes tasks until the queue is drained; the stop flag and run
// cancellation end it early. A worker that cannot establish a session exits
// alone; its siblings keep the run alive.
func (p *Pipeline) worker(ctx context.Context, id int, permits chan struct{}, tasks <-chan Task, results chan<- Record, state *RunState) {
	log := state.Logger().With("worker", id)

	sess, err := p.transport.Session(ctx)
	if err != nil {
		log.Warn("no usable session, worker exiting", "err", err)
		return
	}
	defer sess.Close()

	for {
		if state.Stopped() {
			log.Info("stop flag set, worker exiting")
			return
		}
		if ctx.Err() != nil {
			return
		}

		permits <- struct{}{}
		task, ok, open := pollTask(tasks, p.cfg.PollTimeout)
		if !open {
			<-permits
			log.Debug("task queue drained")
			return
		}
		if !ok {
			<-permits
			continue
		}

		err := p.runTask(ctx, sess, task, results, log)
		<-permits

		if err != nil {
			log.Error("task failed", "task_id", task.ID, "err", err)
		}
		state.TaskDone(err == nil)
	}
}

// pollTask performs one bounded-timeout dequeue so the caller can re-check
// the stop flag instead of blocking on an empty queue. open turns false once
// the queue is closed and fully drained.
func pollTask(tasks <-chan Task, timeout time.Duration) (task Task, ok, open bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case task, ok = <-tasks:
		return task, ok, ok
	case <-t.C:
		return Task{}, false, true
	}
}
