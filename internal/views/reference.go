package views

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

// ReferenceComparison compares, per motif, the SSR count of the reference
// genome with the mean count over all other genomes.
func ReferenceComparison(ctx context.Context, records []protocol.Record, referenceKey string) (any, error) {
	if referenceKey == "" {
		return nil, ErrReferenceRequired
	}

	refCounts := make(map[string]float64)
	otherCounts := make(map[string]float64)
	others := make(set)
	motifs := make(set)
	foundRef := false

	for i, rec := range records {
		if err := cancelled(ctx, i); err != nil {
			return nil, err
		}
		genome := label(rec, ColGenome)
		motif := label(rec, ColMotif)
		motifs.add(motif)
		if genome == referenceKey {
			foundRef = true
			refCounts[motif]++
			continue
		}
		others.add(genome)
		otherCounts[motif]++
	}

	if !foundRef {
		return nil, fmt.Errorf("reference genome %q not found", referenceKey)
	}

	n := float64(len(others))
	rows := make([]protocol.Record, 0, len(motifs))
	for motif := range motifs {
		mean := 0.0
		if n > 0 {
			mean = round2(otherCounts[motif] / n)
		}
		ref := refCounts[motif]
		rows = append(rows, protocol.Record{
			ColMotif:      motif,
			"reference":   ref,
			"others_mean": mean,
			"delta":       round2(ref - mean),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		di := math.Abs(rows[i]["delta"].(float64))
		dj := math.Abs(rows[j]["delta"].(float64))
		if di != dj {
			return di > dj
		}
		return rows[i][ColMotif].(string) < rows[j][ColMotif].(string)
	})
	return rows, nil
}
