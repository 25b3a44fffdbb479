package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func resetFlags() {
	configPath, logLevel, outputFormat = "", "", "json"
	serveAddr = ""
	parseLimit = 0
	transformView, transformReference = "", ""
	filterWhere, filterIn, filterRegex, filterGT, filterLT = nil, nil, nil, nil, nil
	filterSort, filterLimit = "", 0
	sampleGenomes, sampleSSRs, sampleSeed = 12, 20, 1
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeSample(t *testing.T, dir string, extra ...string) string {
	t.Helper()
	path := filepath.Join(dir, "sample.arrow")
	out, err := execute(t, append([]string{"sample", path}, extra...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")
	return path
}

func decodeRecords(t *testing.T, out string) []map[string]any {
	t.Helper()
	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records), out)
	return records
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info["version"])
	assert.Contains(t, info, "git_commit")
}

func TestViewsCommand(t *testing.T) {
	out, err := execute(t, "views", "-o", "yaml")
	require.NoError(t, err)

	var names []string
	require.NoError(t, yaml.Unmarshal([]byte(out), &names))
	assert.Contains(t, names, "summary")
	assert.Contains(t, names, "category_country")
}

func TestSampleAndParse(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeSample(t, ".", "--genomes", "3", "--ssrs", "4")

	out, err := execute(t, "parse", path)
	require.NoError(t, err)
	records := decodeRecords(t, out)
	require.Len(t, records, 12)

	first := records[0]
	assert.Equal(t, "GCA_000100000.1", first["genomeID"])
	// 64-bit integer columns arrive as decimal strings
	assert.IsType(t, "", first["ssr_position"])
	assert.IsType(t, "", first["year"])
	assert.IsType(t, float64(0), first["repeat"])

	out, err = execute(t, "parse", path, "--limit", "5")
	require.NoError(t, err)
	assert.Len(t, decodeRecords(t, out), 5)
}

func TestSampleIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.arrow")
	b := filepath.Join(dir, "b.arrow")

	_, err := execute(t, "sample", a, "--seed", "7")
	require.NoError(t, err)
	_, err = execute(t, "sample", b, "--seed", "7")
	require.NoError(t, err)

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)

	_, err = execute(t, "sample", a, "--genomes", "0")
	assert.Error(t, err)
}

func TestFilterCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeSample(t, ".")

	out, err := execute(t, "filter", path, "--gt", "repeat=10", "--sort", "repeat:desc")
	require.NoError(t, err)
	records := decodeRecords(t, out)
	require.NotEmpty(t, records)

	prev := 1e9
	for _, r := range records {
		repeat := r["repeat"].(float64)
		assert.Greater(t, repeat, 10.0)
		assert.LessOrEqual(t, repeat, prev)
		prev = repeat
	}

	out, err = execute(t, "filter", path, "--in", "motif=AT,TA", "--limit", "3")
	require.NoError(t, err)
	records = decodeRecords(t, out)
	assert.LessOrEqual(t, len(records), 3)
	for _, r := range records {
		assert.Contains(t, []any{"AT", "TA"}, r["motif"])
	}

	out, err = execute(t, "filter", path, "--where", "category=clade ii")
	require.NoError(t, err)
	for _, r := range decodeRecords(t, out) {
		assert.True(t, strings.HasPrefix(r["category"].(string), "Clade II"))
	}

	_, err = execute(t, "filter", path, "--sort", "repeat:sideways")
	assert.Error(t, err)
}

func TestTransformCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeSample(t, ".", "--genomes", "4", "--ssrs", "5")

	out, err := execute(t, "transform", path, "--view", "summary")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, float64(20), summary["rows"])
	assert.Equal(t, float64(4), summary["genomes"])

	_, err = execute(t, "transform", path, "--view", "reference_comparison")
	assert.Error(t, err)

	out, err = execute(t, "transform", path, "--view", "reference_comparison", "--reference", "GCA_000100000.1")
	require.NoError(t, err)
	assert.NotEmpty(t, decodeRecords(t, out))
}

func TestParseMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "parse", "nope.arrow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	good := filepath.Join(dir, "good.toml")
	require.NoError(t, os.WriteFile(good, []byte("[pool]\nsize = 3\n\n[logging]\nlevel = \"debug\"\n"), 0o600))
	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[pool]\nsize = -2\n\n[logging]\nformat = \"xml\"\n"), 0o600))

	out, err := execute(t, "config", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")

	_, err = execute(t, "config", "validate", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 validation errors")

	out, err = execute(t, "config", "show", "--config", good)
	require.NoError(t, err)
	assert.Contains(t, out, "size = 3")
	assert.Contains(t, out, `level = "debug"`)
}

func TestBuildPredicates(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		want    map[string]any
		wantErr bool
	}{
		{
			name:  "none",
			setup: func() {},
			want:  nil,
		},
		{
			name: "values and members",
			setup: func() {
				filterWhere = []string{"country=India", "year=2020"}
				filterIn = []string{"motif=AT, TA,,"}
			},
			want: map[string]any{
				"country": "India",
				"year":    float64(2020),
				"motif":   []any{"AT", "TA"},
			},
		},
		{
			name: "operators combine",
			setup: func() {
				filterGT = []string{"repeat=5"}
				filterLT = []string{"repeat=9"}
				filterRegex = []string{"gene=^OPG0"}
			},
			want: map[string]any{
				"repeat": map[string]any{"$gt": float64(5), "$lt": float64(9)},
				"gene":   map[string]any{"$regex": "^OPG0"},
			},
		},
		{
			name:    "missing column",
			setup:   func() { filterWhere = []string{"=x"} },
			wantErr: true,
		},
		{
			name:    "not a number",
			setup:   func() { filterGT = []string{"repeat=many"} },
			wantErr: true,
		},
		{
			name: "value and operator on one column",
			setup: func() {
				filterWhere = []string{"repeat=5"}
				filterGT = []string{"repeat=2"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			t.Cleanup(resetFlags)
			tt.setup()

			got, err := buildPredicates()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
