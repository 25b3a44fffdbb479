package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

// SortSpec is a parsed "column:asc" / "column:desc" expression.
type SortSpec struct {
	Column     string
	Descending bool
}

// ParseSort parses a sort expression. The direction defaults to ascending.
func ParseSort(spec string) (SortSpec, error) {
	column, dir, found := strings.Cut(strings.TrimSpace(spec), ":")
	column = strings.TrimSpace(column)
	if column == "" {
		return SortSpec{}, fmt.Errorf("invalid sort spec %q: missing column", spec)
	}
	if !found {
		return SortSpec{Column: column}, nil
	}

	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "asc", "":
		return SortSpec{Column: column}, nil
	case "desc":
		return SortSpec{Column: column, Descending: true}, nil
	default:
		return SortSpec{}, fmt.Errorf("invalid sort spec %q: direction must be asc or desc", spec)
	}
}

// String renders the spec back to its "column:direction" form.
func (s SortSpec) String() string {
	if s.Descending {
		return s.Column + ":desc"
	}
	return s.Column + ":asc"
}

// apply sorts records in place, stable for equal keys. Records without a
// value for the column go last in both directions.
func (s SortSpec) apply(records []protocol.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i][s.Column], records[j][s.Column]
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		}
		c := protocol.Compare(a, b)
		if s.Descending {
			return c > 0
		}
		return c < 0
	})
}
