package store

import (
	"strings"
	"testing"

	"github.com/snakeeebyte/BigBasketScraper/bigbasket"
)

func TestBuildInsert_MultiRowPlaceholders(t *testing.T) {
	rows := []*bigbasket.Product{
		{ProductID: 101, Name: "Organic Banana"},
		{ProductID: 202, Name: "Plain Salt"},
	}
	conflict := "ON CONFLICT(product_id) DO UPDATE SET name=excluded.name"

	sql, args := buildInsert(rows, conflict)

	prefix := "INSERT INTO bigbasket.products (product_id, name, brand, product_url, " +
		"images, unit, quantity_label, price_mrp, price_sp, discount_percent, " +
		"is_best_value, available_quantity, availability_code, category_main, " +
		"category_mid, category_leaf, created_at_on_web_site, updated_at_on_web_site) VALUES "
	if !strings.HasPrefix(sql, prefix) {
		t.Fatalf("sql prefix = %q", sql[:min(len(sql), len(prefix))])
	}
	if !strings.HasSuffix(sql, " "+conflict) {
		t.Fatalf("sql does not end with the conflict clause: %q", sql)
	}

	if want := 2 * len(productColumns); len(args) != want {
		t.Fatalf("len(args) = %d, want %d", len(args), want)
	}
	if args[0] != int64(101) || args[1] != "Organic Banana" {
		t.Errorf("row 1 args = %v, %v", args[0], args[1])
	}
	if args[len(productColumns)] != int64(202) {
		t.Errorf("row 2 first arg = %v, want 202", args[len(productColumns)])
	}
}

// Placeholder numbering continues across rows, and the site timestamp columns
// carry their cast so text parameters land in TIMESTAMP columns.
func TestBuildInsert_TimestampCasts(t *testing.T) {
	rows := []*bigbasket.Product{
		{ProductID: 101},
		{ProductID: 202},
	}

	sql, _ := buildInsert(rows, "ON CONFLICT(product_id) DO NOTHING")

	for _, segment := range []string{
		"$17::timestamp,$18::timestamp)",
		"$35::timestamp,$36::timestamp)",
		"($19,",
	} {
		if !strings.Contains(sql, segment) {
			t.Errorf("sql missing %q:\n%s", segment, sql)
		}
	}
}
