package views

import (
	"context"
	"sort"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

// CategoryCountry counts SSR rows per (category, country) pair. The rows are
// the links of the category → country sankey chart.
func CategoryCountry(ctx context.Context, records []protocol.Record, _ string) (any, error) {
	c := newCounter()
	for i, rec := range records {
		if err := cancelled(ctx, i); err != nil {
			return nil, err
		}
		c.add(1, label(rec, ColCategory), label(rec, ColCountry))
	}

	rows := make([]protocol.Record, 0, len(c.order))
	for _, k := range c.order {
		parts := c.keys[k]
		rows = append(rows, protocol.Record{
			ColCategory: parts[0],
			ColCountry:  parts[1],
			"count":     c.counts[k],
		})
	}
	sortByCountDesc(rows, "count", ColCategory, ColCountry)
	return rows, nil
}

// MotifConservation reports, per motif, how many genomes carry it and
// classifies it as conserved (all genomes), unique (one genome) or shared.
func MotifConservation(ctx context.Context, records []protocol.Record, _ string) (any, error) {
	genomes := make(set)
	perMotif := make(map[string]set)
	var order []string

	for i, rec := range records {
		if err := cancelled(ctx, i); err != nil {
			return nil, err
		}
		genome := label(rec, ColGenome)
		motif := label(rec, ColMotif)
		genomes.add(genome)
		if _, ok := perMotif[motif]; !ok {
			perMotif[motif] = make(set)
			order = append(order, motif)
		}
		perMotif[motif].add(genome)
	}

	total := float64(len(genomes))
	rows := make([]protocol.Record, 0, len(order))
	for _, motif := range order {
		n := float64(len(perMotif[motif]))
		class := "shared"
		switch {
		case n == total:
			class = "conserved"
		case n == 1:
			class = "unique"
		}
		rows = append(rows, protocol.Record{
			ColMotif:     motif,
			"genomes":    n,
			"percentage": percent(n, total),
			"class":      class,
		})
	}
	sortByCountDesc(rows, "genomes", ColMotif)
	return rows, nil
}

var motifTypeOrder = map[string]int{
	"mono": 0, "di": 1, "tri": 2, "tetra": 3, "penta": 4, "hexa": 5, "complex": 6, Unknown: 7,
}

// RelativeAbundance counts SSRs per category and motif type and normalises
// by the number of genomes in the category.
func RelativeAbundance(ctx context.Context, records []protocol.Record, _ string) (any, error) {
	genomesPerCategory := make(map[string]set)
	c := newCounter()

	for i, rec := range records {
		if err := cancelled(ctx, i); err != nil {
			return nil, err
		}
		category := label(rec, ColCategory)
		if _, ok := genomesPerCategory[category]; !ok {
			genomesPerCategory[category] = make(set)
		}
		genomesPerCategory[category].add(label(rec, ColGenome))
		c.add(1, category, motifType(protocol.ToString(rec[ColMotif])))
	}

	rows := make([]protocol.Record, 0, len(c.order))
	for _, k := range c.order {
		parts := c.keys[k]
		genomes := float64(len(genomesPerCategory[parts[0]]))
		count := c.counts[k]
		abundance := 0.0
		if genomes > 0 {
			abundance = round2(count / genomes)
		}
		rows = append(rows, protocol.Record{
			ColCategory:  parts[0],
			"motif_type": parts[1],
			"count":      count,
			"genomes":    genomes,
			"abundance":  abundance,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ci, cj := rows[i][ColCategory].(string), rows[j][ColCategory].(string)
		if ci != cj {
			return ci < cj
		}
		return motifTypeOrder[rows[i]["motif_type"].(string)] < motifTypeOrder[rows[j]["motif_type"].(string)]
	})
	return rows, nil
}

// Temporal counts SSR rows per (year, category).
func Temporal(ctx context.Context, records []protocol.Record, _ string) (any, error) {
	c := newCounter()
	for i, rec := range records {
		if err := cancelled(ctx, i); err != nil {
			return nil, err
		}
		c.add(1, label(rec, ColYear), label(rec, ColCategory))
	}

	rows := make([]protocol.Record, 0, len(c.order))
	for _, k := range c.order {
		parts := c.keys[k]
		rows = append(rows, protocol.Record{
			ColYear:     parts[0],
			ColCategory: parts[1],
			"count":     c.counts[k],
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if d := protocol.Compare(rows[i][ColYear], rows[j][ColYear]); d != 0 {
			return d < 0
		}
		return rows[i][ColCategory].(string) < rows[j][ColCategory].(string)
	})
	return rows, nil
}
