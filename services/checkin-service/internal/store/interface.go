package store

import "context"

// Querier is the narrow query surface the data store exposes: filtered reads
// and writes on single tables, no joins, no multi-statement transactions.
// Reads that match nothing succeed with an empty result. Write methods decode
// the returned representation into dest when dest is non-nil; some deployments
// suppress the representation, in which case dest is left empty and callers
// re-read (see the check-in upsert engine).
type Querier interface {
	// Select fetches rows into dest (a pointer to a slice) and returns the
	// exact count when q.Count is set, -1 otherwise.
	Select(ctx context.Context, table string, dest any, q Query) (int64, error)

	// Insert creates the given rows.
	Insert(ctx context.Context, table string, rows any, dest any) error

	// Update patches every row matching the filters.
	Update(ctx context.Context, table string, patch any, dest any, filters ...Filter) error

	// Upsert inserts row. On a conflict over the named unique columns the
	// existing row is left untouched and nothing is returned; callers patch
	// the fields they need afterwards. A blind merge would let a later
	// delivery overwrite identifier columns that must only ever fill in.
	Upsert(ctx context.Context, table string, row any, conflict []string, dest any) error

	// Delete removes every row matching the filters.
	Delete(ctx context.Context, table string, filters ...Filter) error
}
