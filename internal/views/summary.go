package views

import (
	"context"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

// Summary returns headline numbers for the result table as a single map
// rather than rows.
func Summary(ctx context.Context, records []protocol.Record, _ string) (any, error) {
	genomes, motifs, genes := make(set), make(set), make(set)
	var gcSum, gcN, repeatSum, repeatN, totalLength float64

	for i, rec := range records {
		if err := cancelled(ctx, i); err != nil {
			return nil, err
		}
		genomes.add(label(rec, ColGenome))
		motifs.add(label(rec, ColMotif))
		if gene, ok := geneOf(rec); ok {
			genes.add(gene)
		}
		if gc, ok := protocol.ToFloat(rec[ColGC]); ok {
			gcSum += gc
			gcN++
		}
		if r, ok := protocol.ToFloat(rec[ColRepeat]); ok {
			repeatSum += r
			repeatN++
		}
		if l, ok := protocol.ToFloat(rec[ColLength]); ok {
			totalLength += l
		}
	}

	mean := func(sum, n float64) float64 {
		if n == 0 {
			return 0
		}
		return round2(sum / n)
	}

	return map[string]any{
		"rows":         float64(len(records)),
		"genomes":      float64(len(genomes)),
		"motifs":       float64(len(motifs)),
		"genes":        float64(len(genes)),
		"mean_gc":      mean(gcSum, gcN),
		"mean_repeat":  mean(repeatSum, repeatN),
		"total_length": totalLength,
	}, nil
}
