package checkin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/andino/pulso/services/checkin-service/internal/store"
)

// fakeStore is an in-memory Querier for engine tests. Rows live as JSON-ish
// maps; filters are interpreted with the same semantics the real store
// applies. suppressWrites simulates a deployment whose access-control
// headers strip the representation from write responses.
type fakeStore struct {
	tables         map[string][]map[string]any
	nextID         int64
	suppressWrites bool
}

var _ store.Querier = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{tables: make(map[string][]map[string]any), nextID: 1}
}

func (f *fakeStore) Select(ctx context.Context, table string, dest any, q store.Query) (int64, error) {
	var matched []map[string]any
	for _, row := range f.tables[table] {
		ok, err := matchAllFilters(row, q.Filters)
		if err != nil {
			return -1, err
		}
		if ok {
			matched = append(matched, row)
		}
	}
	total := int64(len(matched))

	for i := len(q.Order) - 1; i >= 0; i-- {
		o := q.Order[i]
		sort.SliceStable(matched, func(a, b int) bool {
			less := compareJSON(matched[a][o.Column], matched[b][o.Column]) < 0
			if o.Desc {
				return !less
			}
			return less
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	if dest != nil {
		if err := reencode(matched, dest); err != nil {
			return -1, err
		}
	}
	if q.Count {
		return total, nil
	}
	return -1, nil
}

func (f *fakeStore) Insert(ctx context.Context, table string, rows any, dest any) error {
	decoded, err := toRows(rows)
	if err != nil {
		return err
	}
	for _, row := range decoded {
		if _, ok := row["id"]; !ok {
			if table == "employees" {
				row["id"] = uuid.NewString()
			} else {
				row["id"] = f.nextID
				f.nextID++
			}
		}
		f.tables[table] = append(f.tables[table], row)
	}
	if dest != nil && !f.suppressWrites {
		return reencode(decoded, dest)
	}
	return nil
}

func (f *fakeStore) Update(ctx context.Context, table string, patch any, dest any, filters ...store.Filter) error {
	patchRows, err := toRows(patch)
	if err != nil {
		return err
	}
	var updated []map[string]any
	for _, row := range f.tables[table] {
		ok, err := matchAllFilters(row, filters)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for k, v := range patchRows[0] {
			row[k] = v
		}
		updated = append(updated, row)
	}
	if dest != nil && !f.suppressWrites {
		return reencode(updated, dest)
	}
	return nil
}

func (f *fakeStore) Upsert(ctx context.Context, table string, row any, conflict []string, dest any) error {
	decoded, err := toRows(row)
	if err != nil {
		return err
	}
	var created []map[string]any
	for _, r := range decoded {
		if f.findConflict(table, r, conflict) != nil {
			continue
		}
		f.tables[table] = append(f.tables[table], r)
		created = append(created, r)
	}
	if dest != nil && !f.suppressWrites {
		return reencode(created, dest)
	}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, table string, filters ...store.Filter) error {
	kept := f.tables[table][:0]
	for _, row := range f.tables[table] {
		ok, err := matchAllFilters(row, filters)
		if err != nil {
			return err
		}
		if !ok {
			kept = append(kept, row)
		}
	}
	f.tables[table] = kept
	return nil
}

func (f *fakeStore) findConflict(table string, row map[string]any, conflict []string) map[string]any {
	if len(conflict) == 0 {
		return nil
	}
	for _, existing := range f.tables[table] {
		same := true
		for _, col := range conflict {
			if fmt.Sprint(existing[col]) != fmt.Sprint(row[col]) {
				same = false
				break
			}
		}
		if same {
			return existing
		}
	}
	return nil
}

func matchAllFilters(row map[string]any, filters []store.Filter) (bool, error) {
	for _, flt := range filters {
		v, present := row[flt.Column]
		switch flt.Op {
		case store.OpEq:
			if !present || v == nil || fmt.Sprint(v) != flt.Value {
				return false, nil
			}
		case store.OpNeq:
			if !present || v == nil || fmt.Sprint(v) == flt.Value {
				return false, nil
			}
		case store.OpIsNull:
			if present && v != nil {
				return false, nil
			}
		case store.OpNotNull:
			if !present || v == nil {
				return false, nil
			}
		case store.OpIn:
			set := strings.TrimSuffix(strings.TrimPrefix(flt.Value, "("), ")")
			found := false
			for _, item := range strings.Split(set, ",") {
				if v != nil && fmt.Sprint(v) == item {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		default:
			return false, fmt.Errorf("%w: unsupported filter operator %q", store.ErrInvalidArgument, flt.Op)
		}
	}
	return true, nil
}

func compareJSON(a, b any) int {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// toRows converts any payload shape (struct, map, slice) to generic rows.
func toRows(v any) ([]map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return []map[string]any{row}, nil
}

func reencode(rows []map[string]any, dest any) error {
	if rows == nil {
		rows = []map[string]any{}
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
