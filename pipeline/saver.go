package pipeline

import (
	"context"
	"fmt"
	"time"
)

const idleFlushInterval = time.Second

// runSaver drains the result queue into sink batches, flushing when the batch
// fills or an idle tick fires, and once more when the queue closes. The
// close-side flush is the run's final forced flush, so no separate drain step
// can double-save a batch. A sink failure sets the stop flag but never stops
// the drain; the first failure is returned after the queue is empty.
func (p *Pipeline) runSaver(ctx context.Context, results <-chan Record, state *RunState) error {
	log := state.Logger().With("component", "saver")

	var (
		batch   []Record
		index   = make(map[int64]int)
		saveErr error
	)

	// Last record wins among duplicate keys, keeping the slot of the first.
	add := func(rec Record) {
		if i, dup := index[rec.Key()]; dup {
			batch[i] = rec
			return
		}
		index[rec.Key()] = len(batch)
		batch = append(batch, rec)
	}

	flush := func(reason string) {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		err := p.sink.SaveBatch(ctx, batch)
		batchFlushSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			batchFlushesTotal.WithLabelValues("failure").Inc()
			log.Error("batch save failed, halting dispatch", "count", len(batch), "reason", reason, "err", err)
			if saveErr == nil {
				saveErr = fmt.Errorf("%w: %w", ErrSinkFailure, err)
			}
			state.Stop()
		} else {
			batchFlushesTotal.WithLabelValues("success").Inc()
			recordsSavedTotal.Add(float64(len(batch)))
			log.Info("batch saved", "count", len(batch), "reason", reason)
		}
		batch = nil
		clear(index)
	}

	ticker := time.NewTicker(idleFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case rec, open := <-results:
			if !open {
				flush("drain")
				return saveErr
			}
			add(rec)
			if len(batch) >= p.cfg.BatchSize {
				flush("batch full")
			}
		case <-ticker.C:
			flush("idle")
		}
	}
}
