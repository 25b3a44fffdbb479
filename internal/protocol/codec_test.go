package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_TaskCopy(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)

	records := []Record{
		{"genomeID": "G1", "repeat": 5.0, "GC_per": 41.5, "reference": true, "gene": nil},
		{"genomeID": "G2", "repeat": 7.0, "GC_per": 38.0, "reference": false, "gene": "rpoB"},
	}
	task := NewFilterTask(records, map[string]any{
		"genomeID": []any{"G1", "G2"},
		"motif":    map[string]any{"$regex": "^AT"},
	}, "repeat:desc")

	data, err := c.EncodeTask(task)
	require.NoError(t, err)

	got, err := c.DecodeTask(data)
	require.NoError(t, err)

	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, KindFilter, got.Kind)
	assert.Equal(t, records, got.Records)
	require.NotNil(t, got.Options)
	assert.Equal(t, "repeat:desc", got.Options.Sort)
	assert.Equal(t, []any{"G1", "G2"}, got.Options.Predicates["genomeID"])
	assert.Equal(t, map[string]any{"$regex": "^AT"}, got.Options.Predicates["motif"])

	// the decoded copy is independent of the original
	got.Records[0]["genomeID"] = "changed"
	assert.Equal(t, "G1", records[0]["genomeID"])
}

func TestCodec_ResultRecordsRestored(t *testing.T) {
	c := MustCodec()

	res := Success("t-1", []Record{{"motif": "AT", "count": 3.0}})
	data, err := c.EncodeResult(res)
	require.NoError(t, err)

	got, err := c.DecodeResult(data)
	require.NoError(t, err)
	assert.True(t, got.OK())
	assert.Equal(t, []Record{{"motif": "AT", "count": 3.0}}, got.Value)
}

func TestCodec_LargeRecordSets(t *testing.T) {
	c := MustCodec()

	const n = 140000
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{"repeat": float64(i)}
	}

	data, err := c.EncodeTask(NewTransformTask(records, "gc_distribution", ""))
	require.NoError(t, err)
	task, err := c.DecodeTask(data)
	require.NoError(t, err)
	assert.Len(t, task.Records, n)

	data, err = c.EncodeResult(Success(task.ID, records))
	require.NoError(t, err)
	res, err := c.DecodeResult(data)
	require.NoError(t, err)
	got, ok := res.Value.([]Record)
	require.True(t, ok)
	require.Len(t, got, n)
	assert.Equal(t, float64(n-1), got[n-1]["repeat"])
}

func TestCodec_ResultEmptyAndStructured(t *testing.T) {
	c := MustCodec()

	data, err := c.EncodeResult(Success("t-2", []Record{}))
	require.NoError(t, err)
	got, err := c.DecodeResult(data)
	require.NoError(t, err)
	assert.Equal(t, []Record{}, got.Value)

	data, err = c.EncodeResult(Success("t-3", map[string]any{"rows": 2.0}))
	require.NoError(t, err)
	got, err = c.DecodeResult(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"rows": 2.0}, got.Value)
}

func TestCodec_FailureResult(t *testing.T) {
	c := MustCodec()

	data, err := c.EncodeResult(Result{ID: "t-4", Outcome: OutcomeFailure, Message: "boom"})
	require.NoError(t, err)
	got, err := c.DecodeResult(data)
	require.NoError(t, err)
	assert.False(t, got.OK())
	assert.Equal(t, "boom", got.Message)
	assert.Nil(t, got.Value)
}

func TestCodec_DecodeGarbage(t *testing.T) {
	c := MustCodec()
	_, err := c.DecodeTask([]byte{0xff, 0x00, 0x13})
	assert.Error(t, err)
}

func TestAsRecords(t *testing.T) {
	got, err := AsRecords([]any{map[string]any{"a": "b"}, Record{"c": 1.0}})
	require.NoError(t, err)
	assert.Equal(t, []Record{{"a": "b"}, {"c": 1.0}}, got)

	_, err = AsRecords([]any{"x"})
	assert.Error(t, err)

	_, err = AsRecords(42)
	assert.Error(t, err)

	got, err = AsRecords(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
