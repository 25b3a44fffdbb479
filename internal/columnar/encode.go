package columnar

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

// ColumnType is the subset of Arrow types Encode can produce.
type ColumnType string

const (
	Int64   ColumnType = "int64"
	Int32   ColumnType = "int32"
	Float64 ColumnType = "float64"
	String  ColumnType = "string"
	Bool    ColumnType = "bool"
)

// Column declares one output column.
type Column struct {
	Name string
	Type ColumnType
}

func (t ColumnType) arrowType() (arrow.DataType, error) {
	switch t {
	case Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case String:
		return arrow.BinaryTypes.String, nil
	case Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	default:
		return nil, fmt.Errorf("unsupported column type %q", t)
	}
}

// Encode writes records as a single-batch Arrow IPC stream. Missing or nil
// cells become nulls. Int64 cells accept decimal strings as well as numbers.
func Encode(records []protocol.Record, columns []Column) ([]byte, error) {
	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		dt, err := c.Type.arrowType()
		if err != nil {
			return nil, fmt.Errorf("columnar: column %q: %w", c.Name, err)
		}
		fields[i] = arrow.Field{Name: c.Name, Type: dt, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for _, rec := range records {
		for i, c := range columns {
			if err := appendValue(b.Field(i), rec[c.Name]); err != nil {
				return nil, fmt.Errorf("columnar: column %q: %w", c.Name, err)
			}
		}
	}

	batch := b.NewRecord()
	defer batch.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := w.Write(batch); err != nil {
		return nil, fmt.Errorf("columnar: failed to write batch: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("columnar: failed to close writer: %w", err)
	}
	return buf.Bytes(), nil
}

func appendValue(fb array.Builder, v any) error {
	if v == nil {
		fb.AppendNull()
		return nil
	}

	switch b := fb.(type) {
	case *array.Int64Builder:
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		b.Append(n)
	case *array.Int32Builder:
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		b.Append(int32(n))
	case *array.Float64Builder:
		f, ok := toFloat64(v)
		if !ok {
			return fmt.Errorf("cannot encode %T as float64", v)
		}
		b.Append(f)
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		b.Append(s)
	case *array.BooleanBuilder:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot encode %T as bool", v)
		}
		b.Append(bv)
	default:
		return fmt.Errorf("unsupported builder %T", fb)
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot encode %q as int64: %w", n, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("cannot encode %T as int64", v)
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
