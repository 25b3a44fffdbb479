package views

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

func fixture() []protocol.Record {
	return []protocol.Record{
		{"genomeID": "G1", "category": "Clade I", "country": "DRC", "year": 2018.0, "motif": "AT", "repeat": 6.0, "GC_per": 35.0, "gene": "C9L", "length_of_ssr": "12"},
		{"genomeID": "G1", "category": "Clade I", "country": "DRC", "year": 2018.0, "motif": "GGC", "repeat": 4.0, "GC_per": 100.0, "gene": "", "length_of_ssr": "12"},
		{"genomeID": "G2", "category": "Clade II", "country": "USA", "year": 2022.0, "motif": "AT", "repeat": 7.0, "GC_per": 36.5, "gene": "C9L", "length_of_ssr": "14"},
		{"genomeID": "G3", "category": "Clade II", "country": "USA", "year": 2022.0, "motif": "AT", "repeat": 12.0, "GC_per": 5.0, "gene": "C9L", "length_of_ssr": "24"},
		{"genomeID": "G3", "category": "Clade II", "country": "USA", "year": 2022.0, "motif": "A", "repeat": nil, "GC_per": nil, "gene": "F13L", "length_of_ssr": nil},
	}
}

func run(t *testing.T, name, ref string) []protocol.Record {
	t.Helper()
	out, err := NewRegistry(true).Run(context.Background(), name, fixture(), ref)
	require.NoError(t, err)
	rows, ok := out.([]protocol.Record)
	require.True(t, ok, "view %s returned %T", name, out)
	return rows
}

func TestRegistry_UnknownView(t *testing.T) {
	in := fixture()

	out, err := NewRegistry(false).Run(context.Background(), "no_such_view", in, "")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = NewRegistry(true).Run(context.Background(), "no_such_view", in, "")
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry(false)
	names := r.Names()
	assert.Contains(t, names, "summary")
	assert.Contains(t, names, "motif_conservation")
	assert.True(t, r.Has("gc_distribution"))
	assert.IsIncreasing(t, names)
}

func TestCategoryCountry(t *testing.T) {
	rows := run(t, "category_country", "")
	assert.Equal(t, []protocol.Record{
		{"category": "Clade II", "country": "USA", "count": 3.0},
		{"category": "Clade I", "country": "DRC", "count": 2.0},
	}, rows)
}

func TestMotifConservation(t *testing.T) {
	rows := run(t, "motif_conservation", "")
	assert.Equal(t, []protocol.Record{
		{"motif": "AT", "genomes": 3.0, "percentage": 100.0, "class": "conserved"},
		{"motif": "A", "genomes": 1.0, "percentage": 33.33, "class": "unique"},
		{"motif": "GGC", "genomes": 1.0, "percentage": 33.33, "class": "unique"},
	}, rows)
}

func TestRelativeAbundance(t *testing.T) {
	rows := run(t, "relative_abundance", "")
	assert.Equal(t, []protocol.Record{
		{"category": "Clade I", "motif_type": "di", "count": 1.0, "genomes": 1.0, "abundance": 1.0},
		{"category": "Clade I", "motif_type": "tri", "count": 1.0, "genomes": 1.0, "abundance": 1.0},
		{"category": "Clade II", "motif_type": "mono", "count": 1.0, "genomes": 2.0, "abundance": 0.5},
		{"category": "Clade II", "motif_type": "di", "count": 2.0, "genomes": 2.0, "abundance": 1.0},
	}, rows)
}

func TestRepeatDistribution(t *testing.T) {
	rows := run(t, "repeat_distribution", "")
	assert.Equal(t, []protocol.Record{
		{"bucket": "0-4", "start": 0.0, "end": 4.0, "count": 1.0},
		{"bucket": "5-9", "start": 5.0, "end": 9.0, "count": 2.0},
		{"bucket": "10-14", "start": 10.0, "end": 14.0, "count": 1.0},
	}, rows)
}

func TestGCDistribution(t *testing.T) {
	rows := run(t, "gc_distribution", "")
	require.Len(t, rows, 10)
	counts := make([]float64, len(rows))
	for i, r := range rows {
		counts[i] = r["count"].(float64)
	}
	assert.Equal(t, []float64{1, 0, 0, 2, 0, 0, 0, 0, 0, 1}, counts)
	assert.Equal(t, 90.0, rows[9]["bin_start"])
	assert.Equal(t, 100.0, rows[9]["bin_end"])
}

func TestGeneSummary(t *testing.T) {
	rows := run(t, "gene_summary", "")
	assert.Equal(t, []protocol.Record{
		{"gene": "C9L", "ssrs": 3.0, "genomes": 3.0, "motifs": 1.0},
		{"gene": "F13L", "ssrs": 1.0, "genomes": 1.0, "motifs": 1.0},
	}, rows)
}

func TestTemporal(t *testing.T) {
	rows := run(t, "temporal", "")
	assert.Equal(t, []protocol.Record{
		{"year": "2018", "category": "Clade I", "count": 2.0},
		{"year": "2022", "category": "Clade II", "count": 3.0},
	}, rows)
}

func TestHotspot(t *testing.T) {
	rows := run(t, "hotspot", "")
	assert.Equal(t, []protocol.Record{
		{"gene": "C9L", "motif": "AT", "genomes": 3.0, "repeat_variants": 3.0},
	}, rows)
}

func TestReferenceComparison(t *testing.T) {
	rows := run(t, "reference_comparison", "G1")
	assert.Equal(t, []protocol.Record{
		{"motif": "GGC", "reference": 1.0, "others_mean": 0.0, "delta": 1.0},
		{"motif": "A", "reference": 0.0, "others_mean": 0.5, "delta": -0.5},
		{"motif": "AT", "reference": 1.0, "others_mean": 1.0, "delta": 0.0},
	}, rows)

	_, err := NewRegistry(false).Run(context.Background(), "reference_comparison", fixture(), "")
	assert.ErrorIs(t, err, ErrReferenceRequired)

	_, err = NewRegistry(false).Run(context.Background(), "reference_comparison", fixture(), "G9")
	assert.ErrorContains(t, err, "not found")
}

func TestSummary(t *testing.T) {
	out, err := NewRegistry(false).Run(context.Background(), "summary", fixture(), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"rows":         5.0,
		"genomes":      3.0,
		"motifs":       3.0,
		"genes":        2.0,
		"mean_gc":      44.13,
		"mean_repeat":  7.25,
		"total_length": 62.0,
	}, out)

	out, err = Summary(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.(map[string]any)["rows"])
}

func TestViews_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, name := range NewRegistry(false).Names() {
		_, err := NewRegistry(false).Run(ctx, name, fixture(), "G1")
		assert.ErrorIs(t, err, context.Canceled, name)
	}
}
