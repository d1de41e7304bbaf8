package store

import "strings"

// BuildConflictClause renders the upsert policy for a batch insert: every
// update key becomes col=excluded.col, followed by any literal assignments
// such as "updated_at=CURRENT_TIMESTAMP".
func BuildConflictClause(updateKeys, conflictKeys []string, extra ...string) string {
	assignments := make([]string, 0, len(updateKeys)+len(extra))
	for _, k := range updateKeys {
		assignments = append(assignments, k+"=excluded."+k)
	}
	assignments = append(assignments, extra...)

	return "ON CONFLICT(" + strings.Join(conflictKeys, ",") + ") DO UPDATE SET " +
		strings.Join(assignments, ", ")
}
