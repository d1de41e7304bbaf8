package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// runTask walks one task's pages in increasing order, pushing parsed records
// into the result queue. Every parsed page reports the task's total page
// count and the last observed value wins. A page that exhausts its retry
// budget is skipped and the walk continues; the task fails only when it is
// cancelled or when not a single page could be parsed.
func (p *Pipeline) runTask(ctx context.Context, sess Session, task Task, results chan<- Record, log *slog.Logger) error {
	log.Info("task started", "task_id", task.ID, "slug", task.Slug)

	// Until a page reveals the real count, probe one page past the current
	// one so a dead first page cannot end pagination blind.
	page, lastPage := 1, 2
	parsed, skipped := 0, 0
	var lastErr error

	for page <= lastPage {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		total, err := p.fetchPage(ctx, sess, task, page, results, log)
		switch {
		case errors.Is(err, ErrNoMoreContent):
			log.Info("pagination ended", "task_id", task.ID, "page", page)
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			skipped++
			lastErr = err
			pagesSkippedTotal.Inc()
			log.Error("page skipped", "task_id", task.ID, "page", page, "err", err)
		default:
			parsed++
			if total > 0 {
				lastPage = total
			}
		}
		page++
	}

	if parsed == 0 && skipped > 0 {
		return fmt.Errorf("no page survived: %w", lastErr)
	}
	log.Info("task finished", "task_id", task.ID, "pages", parsed, "skipped", skipped)
	return nil
}

// fetchPage runs the fetch+parse attempt loop for a single page and forwards
// its records. It returns the total page count announced by the payload.
func (p *Pipeline) fetchPage(ctx context.Context, sess Session, task Task, page int, results chan<- Record, log *slog.Logger) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		raw, err := sess.FetchPage(ctx, task, page)
		if errors.Is(err, ErrNoMoreContent) {
			return 0, err
		}
		if err == nil {
			records, total, perr := p.parser.ParsePage(raw)
			if perr == nil {
				for _, rec := range records {
					select {
					case results <- rec:
						recordsParsedTotal.Inc()
					case <-ctx.Done():
						return 0, ctx.Err()
					}
				}
				pagesFetchedTotal.Inc()
				return total, nil
			}
			err = perr
		}

		lastErr = err
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if attempt < p.cfg.MaxRetries {
			pageRetriesTotal.Inc()
			log.Warn("page attempt failed", "task_id", task.ID, "page", page, "attempt", attempt, "err", err)
			sleepCtx(ctx, randomBackoff(p.cfg.BackoffMin, p.cfg.BackoffMax))
		}
	}

	return 0, fmt.Errorf("retries exhausted: %w", lastErr)
}

func randomBackoff(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
