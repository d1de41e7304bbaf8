package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_tasks_total",
		Help: "Finished tasks by outcome.",
	}, []string{"outcome"})

	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_pages_fetched_total",
		Help: "Pages fetched and parsed successfully.",
	})

	pageRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_page_retries_total",
		Help: "Page attempts repeated after a fetch or parse error.",
	})

	pagesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_pages_skipped_total",
		Help: "Pages abandoned after the retry budget ran out.",
	})

	recordsParsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_records_parsed_total",
		Help: "Records parsed out of listing pages.",
	})

	recordsSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_records_saved_total",
		Help: "Records written to the sink.",
	})

	batchFlushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_batch_flushes_total",
		Help: "Batch flushes by outcome.",
	}, []string{"outcome"})

	batchFlushSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scraper_batch_flush_seconds",
		Help:    "Wall time of one sink flush.",
		Buckets: prometheus.DefBuckets,
	})
)
