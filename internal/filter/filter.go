// Package filter applies predicate maps and sort specs to decoded records.
//
// A predicate map holds one criterion per column, all of which must match:
//   - string: case-insensitive substring of the cell's string form
//   - array: the cell equals one of the elements
//   - map: operator criteria ($regex, $gt, $gte, $lt, $lte, $ne), ANDed
//   - any other scalar: equality, numbers compared by value
//
// nil, "" and empty arrays impose no constraint.
package filter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wasilibs/go-re2"
	"golang.org/x/text/cases"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

// checkEvery is how many rows are processed between cancellation checks.
const checkEvery = 1024

// Apply returns the records matching every predicate, optionally sorted.
// The input slice and its records are never modified.
func Apply(ctx context.Context, records []protocol.Record, predicates map[string]any, sortSpec string) ([]protocol.Record, error) {
	m, err := newMatcher(predicates)
	if err != nil {
		return nil, err
	}

	var order *SortSpec
	if sortSpec != "" {
		spec, err := ParseSort(sortSpec)
		if err != nil {
			return nil, err
		}
		order = &spec
	}

	out := make([]protocol.Record, 0, len(records))
	for i, rec := range records {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if m.match(rec) {
			out = append(out, rec)
		}
	}

	if order != nil {
		order.apply(out)
	}
	return out, nil
}

type criterion struct {
	column string
	test   func(v any) bool
}

type matcher struct {
	criteria []criterion
	fold     cases.Caser
}

func newMatcher(predicates map[string]any) (*matcher, error) {
	m := &matcher{fold: cases.Fold()}

	// deterministic order keeps error messages stable
	columns := make([]string, 0, len(predicates))
	for col := range predicates {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	for _, col := range columns {
		test, err := m.compile(col, predicates[col])
		if err != nil {
			return nil, err
		}
		if test != nil {
			m.criteria = append(m.criteria, criterion{column: col, test: test})
		}
	}
	return m, nil
}

func (m *matcher) match(rec protocol.Record) bool {
	for _, c := range m.criteria {
		if !c.test(rec[c.column]) {
			return false
		}
	}
	return true
}

// compile turns one predicate value into a test. A nil test means the
// predicate imposes no constraint.
func (m *matcher) compile(column string, want any) (func(any) bool, error) {
	switch w := want.(type) {
	case nil:
		return nil, nil
	case string:
		if w == "" {
			return nil, nil
		}
		needle := m.fold.String(w)
		return func(v any) bool {
			if v == nil {
				return false
			}
			return strings.Contains(m.fold.String(protocol.ToString(v)), needle)
		}, nil
	case []any:
		return membership(w), nil
	case []string:
		items := make([]any, len(w))
		for i, s := range w {
			items[i] = s
		}
		return membership(items), nil
	case []float64:
		items := make([]any, len(w))
		for i, f := range w {
			items[i] = f
		}
		return membership(items), nil
	case map[string]any:
		return compileOperators(column, w)
	default:
		return func(v any) bool { return protocol.Equal(v, w) }, nil
	}
}

func membership(items []any) func(any) bool {
	if len(items) == 0 {
		return nil
	}
	return func(v any) bool {
		for _, item := range items {
			if protocol.Equal(v, item) {
				return true
			}
		}
		return false
	}
}

func compileOperators(column string, ops map[string]any) (func(any) bool, error) {
	var tests []func(any) bool

	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)

	for _, op := range names {
		arg := ops[op]
		switch op {
		case "$regex":
			expr, ok := arg.(string)
			if !ok {
				return nil, fmt.Errorf("filter %q: $regex expects a string, got %T", column, arg)
			}
			re, err := re2.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("filter %q: invalid $regex: %w", column, err)
			}
			tests = append(tests, func(v any) bool {
				return v != nil && re.MatchString(protocol.ToString(v))
			})
		case "$gt", "$gte", "$lt", "$lte":
			bound, ok := protocol.ToFloat(arg)
			if !ok {
				return nil, fmt.Errorf("filter %q: %s expects a number, got %T", column, op, arg)
			}
			tests = append(tests, rangeTest(op, bound))
		case "$ne":
			tests = append(tests, func(v any) bool { return !protocol.Equal(v, arg) })
		default:
			return nil, fmt.Errorf("filter %q: unknown operator %s", column, op)
		}
	}

	if len(tests) == 0 {
		return nil, nil
	}
	return func(v any) bool {
		for _, t := range tests {
			if !t(v) {
				return false
			}
		}
		return true
	}, nil
}

func rangeTest(op string, bound float64) func(any) bool {
	return func(v any) bool {
		f, ok := protocol.ToFloat(v)
		if !ok {
			return false
		}
		switch op {
		case "$gt":
			return f > bound
		case "$gte":
			return f >= bound
		case "$lt":
			return f < bound
		default:
			return f <= bound
		}
	}
}
