package pipeline_test

import (
	"testing"
	"time"

	"github.com/snakeeebyte/BigBasketScraper/pipeline"
)

// -- Defaults and overrides -------------------------------------------------

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"WORKERS", "BATCH_SIZE", "MAX_RETRIES", "POLL_TIMEOUT_MS",
		"RETRY_BACKOFF_MIN_MS", "RETRY_BACKOFF_MAX_MS", "BB_BASE_URL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := pipeline.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Workers != 20 {
		t.Errorf("Workers = %d, want 20", cfg.Workers)
	}
	if cfg.BatchSize != 250 {
		t.Errorf("BatchSize = %d, want 250", cfg.BatchSize)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.PollTimeout != 100*time.Millisecond {
		t.Errorf("PollTimeout = %s, want 100ms", cfg.PollTimeout)
	}
	if cfg.BackoffMin != 1500*time.Millisecond || cfg.BackoffMax != 3500*time.Millisecond {
		t.Errorf("backoff = %s..%s, want 1.5s..3.5s", cfg.BackoffMin, cfg.BackoffMax)
	}
	if cfg.BaseURL != "https://www.bigbasket.com/" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("WORKERS", "7")
	t.Setenv("BATCH_SIZE", "50")
	t.Setenv("POLL_TIMEOUT_MS", "250")
	t.Setenv("REQUESTS_PER_SECOND", "1.5")
	t.Setenv("BB_BASE_URL", "http://localhost:8080/")

	cfg, err := pipeline.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Workers != 7 {
		t.Errorf("Workers = %d, want 7", cfg.Workers)
	}
	if cfg.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.BatchSize)
	}
	if cfg.PollTimeout != 250*time.Millisecond {
		t.Errorf("PollTimeout = %s, want 250ms", cfg.PollTimeout)
	}
	if cfg.RequestsPerSecond != 1.5 {
		t.Errorf("RequestsPerSecond = %v, want 1.5", cfg.RequestsPerSecond)
	}
	if cfg.BaseURL != "http://localhost:8080/" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}

func TestLoadConfig_MalformedNumberRejected(t *testing.T) {
	t.Setenv("BATCH_SIZE", "two hundred")

	if _, err := pipeline.LoadConfig(); err == nil {
		t.Fatal("expected an error for a malformed BATCH_SIZE")
	}
}
