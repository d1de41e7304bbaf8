package pipeline

import "context"

type Task struct {
	ID   int64
	Kind string
	Slug string
	Name string
}

// Record is one parsed item bound for storage. The engine only needs the
// natural key for batch dedup; everything else stays with the implementation.
type Record interface {
	Key() int64
}

// Transport opens per-worker sessions. A session that cannot be established
// takes down its worker only, never the run.
type Transport interface {
	Session(ctx context.Context) (Session, error)
}

// Session fetches raw listing pages for one worker. FetchPage returns
// ErrNoMoreContent when the remote signals the end of pagination.
type Session interface {
	FetchPage(ctx context.Context, task Task, page int) ([]byte, error)
	Close()
}

// Parser turns a raw page into records plus the total page count the payload
// reports for the whole task.
type Parser interface {
	ParsePage(raw []byte) ([]Record, int, error)
}

// Sink persists batches. Saves must be idempotent per Record key so replays
// after partial failures cannot duplicate rows.
type Sink interface {
	SaveBatch(ctx context.Context, batch []Record) error
}
