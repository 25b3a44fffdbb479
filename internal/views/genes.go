package views

import (
	"context"
	"strings"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

func geneOf(rec protocol.Record) (string, bool) {
	g := strings.TrimSpace(protocol.ToString(rec[ColGene]))
	return g, g != ""
}

// GeneSummary counts SSRs, genomes and distinct motifs per gene. Intergenic
// rows (no gene) are skipped.
func GeneSummary(ctx context.Context, records []protocol.Record, _ string) (any, error) {
	type agg struct {
		ssrs    float64
		genomes set
		motifs  set
	}
	perGene := make(map[string]*agg)
	var order []string

	for i, rec := range records {
		if err := cancelled(ctx, i); err != nil {
			return nil, err
		}
		gene, ok := geneOf(rec)
		if !ok {
			continue
		}
		a, ok := perGene[gene]
		if !ok {
			a = &agg{genomes: make(set), motifs: make(set)}
			perGene[gene] = a
			order = append(order, gene)
		}
		a.ssrs++
		a.genomes.add(label(rec, ColGenome))
		a.motifs.add(label(rec, ColMotif))
	}

	rows := make([]protocol.Record, 0, len(order))
	for _, gene := range order {
		a := perGene[gene]
		rows = append(rows, protocol.Record{
			ColGene:   gene,
			"ssrs":    a.ssrs,
			"genomes": float64(len(a.genomes)),
			"motifs":  float64(len(a.motifs)),
		})
	}
	sortByCountDesc(rows, "ssrs", ColGene)
	return rows, nil
}

// Hotspot lists (gene, motif) pairs found in at least two genomes together
// with the number of distinct repeat counts observed for them.
func Hotspot(ctx context.Context, records []protocol.Record, _ string) (any, error) {
	type agg struct {
		gene, motif string
		genomes     set
		repeats     set
	}
	pairs := make(map[string]*agg)
	var order []string

	for i, rec := range records {
		if err := cancelled(ctx, i); err != nil {
			return nil, err
		}
		gene, ok := geneOf(rec)
		if !ok {
			continue
		}
		motif := label(rec, ColMotif)
		k := gene + "\x00" + motif
		a, ok := pairs[k]
		if !ok {
			a = &agg{gene: gene, motif: motif, genomes: make(set), repeats: make(set)}
			pairs[k] = a
			order = append(order, k)
		}
		a.genomes.add(label(rec, ColGenome))
		if rec[ColRepeat] != nil {
			a.repeats.add(protocol.ToString(rec[ColRepeat]))
		}
	}

	rows := make([]protocol.Record, 0)
	for _, k := range order {
		a := pairs[k]
		if len(a.genomes) < 2 {
			continue
		}
		rows = append(rows, protocol.Record{
			ColGene:           a.gene,
			ColMotif:          a.motif,
			"genomes":         float64(len(a.genomes)),
			"repeat_variants": float64(len(a.repeats)),
		})
	}
	sortByCountDesc(rows, "genomes", ColGene, ColMotif)
	return rows, nil
}
