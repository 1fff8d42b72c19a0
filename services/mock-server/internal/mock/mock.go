package mock

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store is an in-memory stand-in for the relational store's HTTP query
// surface, good enough to run the check-in service locally: equality,
// set-membership, null checks and inequality filters, ordering, limit,
// exact counts and conflict-aware upserts.
type Store struct {
	mu         sync.RWMutex
	tables     map[string][]map[string]any
	nextRowID  int64
	nextMsgID  int64
	msgIDMutex sync.Mutex
}

var seedEmployees = []struct {
	name  string
	email string
}{
	{"Jane Smith", "jane.smith@example.com"},
	{"Bob Johnson", "bob.johnson@example.com"},
	{"Alice Williams", "alice.williams@example.com"},
}

// NewStore creates a store pre-seeded with a few active employees.
func NewStore() *Store {
	s := &Store{
		tables:    make(map[string][]map[string]any),
		nextRowID: 1,
	}
	for _, e := range seedEmployees {
		s.tables["employees"] = append(s.tables["employees"], map[string]any{
			"id":     uuid.New().String(),
			"email":  e.email,
			"name":   e.name,
			"active": true,
		})
	}
	return s
}

// Condition is one parsed row predicate from the query string.
type Condition struct {
	Column string
	Op     string
	Value  string
}

// reserved query keys that are not column filters.
var reservedKeys = map[string]bool{
	"select": true, "order": true, "limit": true, "on_conflict": true,
}

// ParseConditions extracts column predicates from a query string.
func ParseConditions(query url.Values) []Condition {
	var conds []Condition
	for key, values := range query {
		if reservedKeys[key] {
			continue
		}
		for _, v := range values {
			if rest, ok := strings.CutPrefix(v, "not.is."); ok {
				conds = append(conds, Condition{Column: key, Op: "not.is", Value: rest})
				continue
			}
			op, value, ok := strings.Cut(v, ".")
			if !ok {
				continue
			}
			conds = append(conds, Condition{Column: key, Op: op, Value: value})
		}
	}
	return conds
}

func match(row map[string]any, c Condition) bool {
	rv, present := row[c.Column]
	switch c.Op {
	case "eq":
		return present && rv != nil && fmt.Sprint(rv) == c.Value
	case "neq":
		return present && rv != nil && fmt.Sprint(rv) != c.Value
	case "gt":
		return present && rv != nil && fmt.Sprint(rv) > c.Value
	case "gte":
		return present && rv != nil && fmt.Sprint(rv) >= c.Value
	case "lt":
		return present && rv != nil && fmt.Sprint(rv) < c.Value
	case "lte":
		return present && rv != nil && fmt.Sprint(rv) <= c.Value
	case "is":
		return c.Value == "null" && (!present || rv == nil)
	case "not.is":
		return present && rv != nil
	case "in":
		set := strings.TrimSuffix(strings.TrimPrefix(c.Value, "("), ")")
		if rv == nil {
			return false
		}
		for _, item := range strings.Split(set, ",") {
			if fmt.Sprint(rv) == strings.TrimSpace(item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matchAll(row map[string]any, conds []Condition) bool {
	for _, c := range conds {
		if !match(row, c) {
			return false
		}
	}
	return true
}

// Select returns matching rows (projected, ordered, limited) and the total
// match count before the limit.
func (s *Store) Select(table string, conds []Condition, columns, order string, limit int) ([]map[string]any, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []map[string]any
	for _, row := range s.tables[table] {
		if matchAll(row, conds) {
			matched = append(matched, row)
		}
	}
	total := len(matched)

	if order != "" {
		applyOrder(matched, order)
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]map[string]any, len(matched))
	for i, row := range matched {
		out[i] = project(row, columns)
	}
	return out, total
}

func applyOrder(rows []map[string]any, order string) {
	type directive struct {
		column string
		desc   bool
	}
	var dirs []directive
	for _, part := range strings.Split(order, ",") {
		col, dir, _ := strings.Cut(part, ".")
		dirs = append(dirs, directive{column: col, desc: dir == "desc"})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, d := range dirs {
			cmp := compareValues(rows[i][d.column], rows[j][d.column])
			if cmp == 0 {
				continue
			}
			if d.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
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

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func project(row map[string]any, columns string) map[string]any {
	if columns == "" || columns == "*" {
		return row
	}
	out := make(map[string]any)
	for _, col := range strings.Split(columns, ",") {
		col = strings.TrimSpace(col)
		if v, ok := row[col]; ok {
			out[col] = v
		} else {
			out[col] = nil
		}
	}
	return out
}

// Insert appends rows, assigning a numeric id where the table needs one.
func (s *Store) Insert(table string, rows []map[string]any) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if _, ok := row["id"]; !ok {
			if table == "employees" {
				row["id"] = uuid.New().String()
			} else {
				row["id"] = s.nextRowID
				s.nextRowID++
			}
		}
		s.tables[table] = append(s.tables[table], row)
		created = append(created, row)
	}
	return created
}

// Upsert inserts rows; on a conflict over conflictCols it either merges the
// payload into the existing row or skips it, matching the Prefer resolution
// the real store honors. Skipped rows are not returned.
func (s *Store) Upsert(table string, rows []map[string]any, conflictCols []string, merge bool) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []map[string]any
	for _, row := range rows {
		existing := s.findConflict(table, row, conflictCols)
		if existing == nil {
			s.tables[table] = append(s.tables[table], row)
			out = append(out, row)
			continue
		}
		if merge {
			for k, v := range row {
				existing[k] = v
			}
			out = append(out, existing)
		}
	}
	return out
}

func (s *Store) findConflict(table string, row map[string]any, conflictCols []string) map[string]any {
	if len(conflictCols) == 0 {
		return nil
	}
	for _, existing := range s.tables[table] {
		same := true
		for _, col := range conflictCols {
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

// Update patches every matching row and returns the updated rows.
func (s *Store) Update(table string, patch map[string]any, conds []Condition) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []map[string]any
	for _, row := range s.tables[table] {
		if matchAll(row, conds) {
			for k, v := range patch {
				row[k] = v
			}
			out = append(out, row)
		}
	}
	return out
}

// Delete removes every matching row.
func (s *Store) Delete(table string, conds []Condition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tables[table][:0]
	for _, row := range s.tables[table] {
		if !matchAll(row, conds) {
			kept = append(kept, row)
		}
	}
	s.tables[table] = kept
}

// NextMessageID mints identifiers for the Gmail send mock.
func (s *Store) NextMessageID() (messageID, threadID string) {
	s.msgIDMutex.Lock()
	defer s.msgIDMutex.Unlock()
	s.nextMsgID++
	n := strconv.FormatInt(s.nextMsgID, 10)
	return "msg-" + n, "thr-" + n
}
