// Package columnar decodes result tables delivered as Apache Arrow IPC
// buffers into records, and encodes records back into Arrow IPC streams.
//
// Both the IPC stream format and the IPC file format (magic "ARROW1") are
// accepted. 64-bit integer columns are rendered as decimal strings because a
// record's numeric type is float64 and cannot hold them exactly.
package columnar

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

var fileMagic = []byte("ARROW1")

// ErrEmptyBuffer is returned for a zero-length input.
var ErrEmptyBuffer = errors.New("columnar: empty buffer")

// Decode parses an Arrow IPC buffer into one record per row.
func Decode(buf []byte) ([]protocol.Record, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyBuffer
	}
	if bytes.HasPrefix(buf, fileMagic) {
		return decodeFile(buf)
	}
	return decodeStream(buf)
}

func decodeStream(buf []byte) ([]protocol.Record, error) {
	rdr, err := ipc.NewReader(bytes.NewReader(buf), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("columnar: failed to open ipc stream: %w", err)
	}
	defer rdr.Release()

	records := make([]protocol.Record, 0)
	for rdr.Next() {
		rows, err := appendRows(records, rdr.Record())
		if err != nil {
			return nil, err
		}
		records = rows
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("columnar: failed to read ipc stream: %w", err)
	}
	return records, nil
}

func decodeFile(buf []byte) ([]protocol.Record, error) {
	rdr, err := ipc.NewFileReader(bytes.NewReader(buf), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("columnar: failed to open ipc file: %w", err)
	}
	defer rdr.Close()

	records := make([]protocol.Record, 0)
	for i := 0; i < rdr.NumRecords(); i++ {
		rec, err := rdr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("columnar: failed to read record batch %d: %w", i, err)
		}
		rows, err := appendRows(records, rec)
		if err != nil {
			return nil, err
		}
		records = rows
	}
	return records, nil
}

func appendRows(dst []protocol.Record, rec arrow.Record) ([]protocol.Record, error) {
	schema := rec.Schema()
	nrows := int(rec.NumRows())
	ncols := int(rec.NumCols())

	start := len(dst)
	for i := 0; i < nrows; i++ {
		dst = append(dst, make(protocol.Record, ncols))
	}

	for c := 0; c < ncols; c++ {
		name := schema.Field(c).Name
		col := rec.Column(c)
		for i := 0; i < nrows; i++ {
			v, err := valueAt(col, i)
			if err != nil {
				return nil, fmt.Errorf("columnar: column %q row %d: %w", name, i, err)
			}
			dst[start+i][name] = v
		}
	}
	return dst, nil
}

// valueAt converts one cell to a record scalar.
func valueAt(col arrow.Array, i int) (any, error) {
	if col.IsNull(i) {
		return nil, nil
	}

	switch a := col.(type) {
	case *array.Int64:
		return strconv.FormatInt(a.Value(i), 10), nil
	case *array.Uint64:
		return strconv.FormatUint(a.Value(i), 10), nil
	case *array.Int32:
		return float64(a.Value(i)), nil
	case *array.Int16:
		return float64(a.Value(i)), nil
	case *array.Int8:
		return float64(a.Value(i)), nil
	case *array.Uint32:
		return float64(a.Value(i)), nil
	case *array.Uint16:
		return float64(a.Value(i)), nil
	case *array.Uint8:
		return float64(a.Value(i)), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Float32:
		return float64(a.Value(i)), nil
	case *array.Boolean:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Binary:
		return string(a.Value(i)), nil
	case *array.Dictionary:
		return valueAt(a.Dictionary(), a.GetValueIndex(i))
	case *array.Null:
		return nil, nil
	default:
		return col.ValueStr(i), nil
	}
}
