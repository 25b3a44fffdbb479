package views

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

const (
	repeatBucketWidth = 5
	gcBinWidth        = 10
	gcBins            = 10
)

// RepeatDistribution buckets the repeat count of every SSR into ranges of
// five ("5-9", "10-14", ...). Rows without a numeric repeat are skipped.
func RepeatDistribution(ctx context.Context, records []protocol.Record, _ string) (any, error) {
	counts := make(map[int]float64)
	for i, rec := range records {
		if err := cancelled(ctx, i); err != nil {
			return nil, err
		}
		r, ok := protocol.ToFloat(rec[ColRepeat])
		if !ok || r < 0 || math.IsNaN(r) {
			continue
		}
		start := int(math.Floor(r/repeatBucketWidth)) * repeatBucketWidth
		counts[start]++
	}

	starts := make([]int, 0, len(counts))
	for s := range counts {
		starts = append(starts, s)
	}
	sort.Ints(starts)

	rows := make([]protocol.Record, 0, len(starts))
	for _, s := range starts {
		end := s + repeatBucketWidth - 1
		rows = append(rows, protocol.Record{
			"bucket": fmt.Sprintf("%d-%d", s, end),
			"start":  float64(s),
			"end":    float64(end),
			"count":  counts[s],
		})
	}
	return rows, nil
}

// GCDistribution is a fixed ten-bin histogram of GC percentage over
// [0, 100]. Every bin is present, empty ones with a zero count.
func GCDistribution(ctx context.Context, records []protocol.Record, _ string) (any, error) {
	var counts [gcBins]float64
	for i, rec := range records {
		if err := cancelled(ctx, i); err != nil {
			return nil, err
		}
		gc, ok := protocol.ToFloat(rec[ColGC])
		if !ok || gc < 0 || gc > 100 || math.IsNaN(gc) {
			continue
		}
		idx := int(gc / gcBinWidth)
		if idx >= gcBins {
			idx = gcBins - 1
		}
		counts[idx]++
	}

	rows := make([]protocol.Record, gcBins)
	for i := range counts {
		rows[i] = protocol.Record{
			"bin_start": float64(i * gcBinWidth),
			"bin_end":   float64((i + 1) * gcBinWidth),
			"count":     counts[i],
		}
	}
	return rows, nil
}
