package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument marks caller mistakes that are fatal to the operation,
// such as requesting an unsupported filter operator.
var ErrInvalidArgument = errors.New("invalid argument")

// Op is a row filter operator. The store's query surface only understands
// equality, set membership, null checks and simple inequalities.
type Op string

const (
	OpEq      Op = "eq"
	OpNeq     Op = "neq"
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpIn      Op = "in"
	OpIsNull  Op = "is"
	OpNotNull Op = "not.is"
)

// Filter is a single column predicate. Filters are first-class values so the
// two-phase fetch-then-filter reads can be built and inspected independently
// of the HTTP client executing them.
type Filter struct {
	Column string
	Op     Op
	Value  string
}

// Eq matches rows where column equals v.
func Eq(column string, v any) Filter {
	return Filter{Column: column, Op: OpEq, Value: fmt.Sprint(v)}
}

// Neq matches rows where column differs from v.
func Neq(column string, v any) Filter {
	return Filter{Column: column, Op: OpNeq, Value: fmt.Sprint(v)}
}

// In matches rows where column is one of values.
func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Value: "(" + strings.Join(values, ",") + ")"}
}

// IsNull matches rows where column is null.
func IsNull(column string) Filter {
	return Filter{Column: column, Op: OpIsNull, Value: "null"}
}

// NotNull matches rows where column is not null.
func NotNull(column string) Filter {
	return Filter{Column: column, Op: OpNotNull, Value: "null"}
}

// encode renders the filter as a query-string key/value pair.
func (f Filter) encode() (key, value string, err error) {
	switch f.Op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn, OpIsNull, OpNotNull:
		return f.Column, string(f.Op) + "." + f.Value, nil
	default:
		return "", "", fmt.Errorf("%w: unsupported filter operator %q", ErrInvalidArgument, f.Op)
	}
}

// Order is a sort directive applied by the store on read.
type Order struct {
	Column string
	Desc   bool
}

// Asc sorts ascending by column.
func Asc(column string) Order { return Order{Column: column} }

func (o Order) encode() string {
	dir := "asc"
	if o.Desc {
		dir = "desc"
	}
	return o.Column + "." + dir
}

// Query describes a read against one table: projected columns, row filters,
// ordering and limit. Count requests an exact row count alongside the rows.
type Query struct {
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
	Count   bool
}
