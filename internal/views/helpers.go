package views

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

const checkEvery = 1024

func cancelled(ctx context.Context, i int) error {
	if i%checkEvery == 0 {
		return ctx.Err()
	}
	return nil
}

// label returns the grouping label of a cell.
func label(rec protocol.Record, column string) string {
	s := strings.TrimSpace(protocol.ToString(rec[column]))
	if s == "" {
		return Unknown
	}
	return s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return round2(part / total * 100)
}

// set is a string set with a stable size.
type set map[string]struct{}

func (s set) add(v string) { s[v] = struct{}{} }

// counter groups rows by a composite key and keeps insertion order for ties.
type counter struct {
	order  []string
	counts map[string]float64
	keys   map[string][]string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]float64), keys: make(map[string][]string)}
}

func (c *counter) add(delta float64, parts ...string) {
	k := strings.Join(parts, "\x00")
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
		c.keys[k] = parts
	}
	c.counts[k] += delta
}

// sortByCountDesc sorts rows by the count column descending, then by the
// given key columns ascending.
func sortByCountDesc(rows []protocol.Record, countCol string, keyCols ...string) {
	sort.SliceStable(rows, func(i, j int) bool {
		ci, _ := protocol.ToFloat(rows[i][countCol])
		cj, _ := protocol.ToFloat(rows[j][countCol])
		if ci != cj {
			return ci > cj
		}
		for _, k := range keyCols {
			if c := protocol.Compare(rows[i][k], rows[j][k]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// motifType classifies a motif by its length.
func motifType(motif string) string {
	switch n := len(strings.TrimSpace(motif)); n {
	case 1:
		return "mono"
	case 2:
		return "di"
	case 3:
		return "tri"
	case 4:
		return "tetra"
	case 5:
		return "penta"
	case 6:
		return "hexa"
	default:
		if n == 0 {
			return Unknown
		}
		return "complex"
	}
}
