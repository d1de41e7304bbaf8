package store

import "testing"

func TestBuildConflictClause(t *testing.T) {
	got := BuildConflictClause(
		[]string{"name", "brand"},
		[]string{"product_id"},
		"updated_at=CURRENT_TIMESTAMP",
	)
	want := "ON CONFLICT(product_id) DO UPDATE SET name=excluded.name, brand=excluded.brand, updated_at=CURRENT_TIMESTAMP"
	if got != want {
		t.Fatalf("clause = %q, want %q", got, want)
	}
}

func TestBuildConflictClause_CompositeKeyNoExtras(t *testing.T) {
	got := BuildConflictClause([]string{"qty"}, []string{"region_id", "type_id"})
	want := "ON CONFLICT(region_id,type_id) DO UPDATE SET qty=excluded.qty"
	if got != want {
		t.Fatalf("clause = %q, want %q", got, want)
	}
}
