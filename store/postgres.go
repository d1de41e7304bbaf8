package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snakeeebyte/BigBasketScraper/bigbasket"
	"github.com/snakeeebyte/BigBasketScraper/pipeline"
)

const (
	productsTable    = "bigbasket.products"
	connectRetries   = 10
	connectRetryWait = time.Second
)

// productColumns fixes the column order for every insert and export.
var productColumns = []string{
	"product_id", "name", "brand", "product_url", "images", "unit",
	"quantity_label", "price_mrp", "price_sp", "discount_percent",
	"is_best_value", "available_quantity", "availability_code",
	"category_main", "category_mid", "category_leaf",
	"created_at_on_web_site", "updated_at_on_web_site",
}

// The site timestamps travel as raw strings and need an explicit cast.
var columnCasts = map[string]string{
	"created_at_on_web_site": "::timestamp",
	"updated_at_on_web_site": "::timestamp",
}

// Products persists parsed catalog records with idempotent batched upserts.
// One pooled connection is taken and returned per batch; nothing is held
// across calls.
type Products struct {
	pool     *pgxpool.Pool
	conflict string
	logger   *slog.Logger
}

// NewProducts connects to the database, retrying briefly so a restarting
// server does not fail the run before it starts.
func NewProducts(ctx context.Context, databaseURL string, logger *slog.Logger) (*Products, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var pool *pgxpool.Pool
	var err error
	for attempt := 1; attempt <= connectRetries; attempt++ {
		pool, err = pgxpool.New(ctx, databaseURL)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
			pool = nil
		}
		logger.Error("database connection failed", "attempt", attempt, "err", err)
		if attempt < connectRetries {
			select {
			case <-time.After(connectRetryWait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if pool == nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	updateKeys := make([]string, 0, len(productColumns)-1)
	for _, c := range productColumns {
		if c != "product_id" {
			updateKeys = append(updateKeys, c)
		}
	}

	return &Products{
		pool:     pool,
		conflict: BuildConflictClause(updateKeys, []string{"product_id"}, "updated_at=CURRENT_TIMESTAMP"),
		logger:   logger,
	}, nil
}

// EnsureSchema creates the target schema and table when they do not exist.
func (s *Products) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE SCHEMA IF NOT EXISTS bigbasket`,
		`CREATE TABLE IF NOT EXISTS bigbasket.products (
			product_id             BIGINT PRIMARY KEY,
			name                   TEXT,
			brand                  TEXT,
			product_url            TEXT,
			images                 TEXT[],
			unit                   TEXT,
			quantity_label         TEXT,
			price_mrp              NUMERIC(12,2),
			price_sp               NUMERIC(12,2),
			discount_percent       NUMERIC(5,2),
			is_best_value          BOOLEAN,
			available_quantity     BIGINT,
			availability_code      TEXT,
			category_main          TEXT,
			category_mid           TEXT,
			category_leaf          TEXT,
			created_at_on_web_site TIMESTAMP,
			updated_at_on_web_site TIMESTAMP,
			created_at             TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at             TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveBatch implements pipeline.Sink: one multi-row upsert in one transaction
// per call. An empty batch is a no-op success.
func (s *Products) SaveBatch(ctx context.Context, batch []pipeline.Record) error {
	if len(batch) == 0 {
		return nil
	}

	rows := make([]*bigbasket.Product, 0, len(batch))
	for _, rec := range batch {
		p, ok := rec.(*bigbasket.Product)
		if !ok {
			return fmt.Errorf("save: unexpected record type %T", rec)
		}
		rows = append(rows, p)
	}

	sql, args := buildInsert(rows, s.conflict)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert %d rows: %w", len(rows), err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("data saved", "table", productsTable, "rows", len(rows))
	return nil
}

func buildInsert(rows []*bigbasket.Product, conflict string) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(productsTable)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(productColumns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(productColumns))
	n := 1
	for i, p := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j, col := range productColumns {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString("$" + strconv.Itoa(n))
			sb.WriteString(columnCasts[col])
			n++
		}
		sb.WriteByte(')')

		args = append(args,
			p.ProductID, p.Name, p.Brand, p.ProductURL, p.Images, p.Unit,
			p.QuantityLabel, p.PriceMRP, p.PriceSP, p.DiscountPercent,
			p.IsBestValue, p.AvailableQuantity, p.AvailabilityCode,
			p.CategoryMain, p.CategoryMid, p.CategoryLeaf,
			p.CreatedOnSite, p.UpdatedOnSite,
		)
	}

	sb.WriteByte(' ')
	sb.WriteString(conflict)

	return sb.String(), args
}

// ExportProducts reads every stored row back for the JSON export.
func (s *Products) ExportProducts(ctx context.Context) ([]bigbasket.Product, error) {
	query := `SELECT product_id, name, brand, product_url, images, unit,
		quantity_label, price_mrp, price_sp, discount_percent,
		is_best_value, available_quantity, availability_code,
		category_main, category_mid, category_leaf,
		created_at_on_web_site::text, updated_at_on_web_site::text
	FROM ` + productsTable

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("export query: %w", err)
	}
	defer rows.Close()

	var out []bigbasket.Product
	for rows.Next() {
		var p bigbasket.Product
		if err := rows.Scan(
			&p.ProductID, &p.Name, &p.Brand, &p.ProductURL, &p.Images, &p.Unit,
			&p.QuantityLabel, &p.PriceMRP, &p.PriceSP, &p.DiscountPercent,
			&p.IsBestValue, &p.AvailableQuantity, &p.AvailabilityCode,
			&p.CategoryMain, &p.CategoryMid, &p.CategoryLeaf,
			&p.CreatedOnSite, &p.UpdatedOnSite,
		); err != nil {
			return nil, fmt.Errorf("export scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export rows: %w", err)
	}

	return out, nil
}

func (s *Products) Close() {
	s.pool.Close()
}
