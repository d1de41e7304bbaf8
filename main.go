package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snakeeebyte/BigBasketScraper/bigbasket"
	"github.com/snakeeebyte/BigBasketScraper/pipeline"
	"github.com/snakeeebyte/BigBasketScraper/store"
)

func main() {
	workers := flag.Int("workers", 0, "override worker count")
	batchSize := flag.Int("batch", 0, "override save batch size")
	limit := flag.Int("limit", 0, "scrape at most N categories (0 = all)")
	export := flag.String("export", "", "write stored products to a JSON file after the run")
	flag.Parse()

	cfg, err := pipeline.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}

	logger := pipeline.SetupLogger(cfg.LogFile, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	sink, err := store.NewProducts(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("store unavailable", "err", err)
		os.Exit(1)
	}
	defer sink.Close()

	if err := sink.EnsureSchema(ctx); err != nil {
		logger.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	transport, err := bigbasket.NewTransport(cfg, logger)
	if err != nil {
		logger.Error("transport setup failed", "err", err)
		os.Exit(1)
	}

	tasks, err := transport.FetchCategories(ctx)
	if err != nil {
		logger.Error("category discovery failed", "err", err)
		os.Exit(1)
	}
	if *limit > 0 && len(tasks) > *limit {
		tasks = tasks[:*limit]
	}
	logger.Info("categories discovered", "count", len(tasks))

	p := pipeline.New(cfg, transport, bigbasket.NewParser(logger), sink, logger)
	ok := p.Run(ctx, tasks)

	if ok && *export != "" {
		if err := exportJSON(ctx, sink, *export); err != nil {
			logger.Error("export failed", "err", err)
			ok = false
		} else {
			logger.Info("export written", "path", *export)
		}
	}

	if !ok {
		os.Exit(1)
	}
}

func exportJSON(ctx context.Context, sink *store.Products, path string) error {
	products, err := sink.ExportProducts(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
