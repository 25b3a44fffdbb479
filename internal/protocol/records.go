package protocol

import "fmt"

// AsRecords converts a decoded result value back into records.
// It accepts []Record, []map[string]any and []any whose elements are maps,
// which is what a generic decoder yields for a sequence of records.
func AsRecords(v any) ([]Record, error) {
	switch rows := v.(type) {
	case nil:
		return nil, nil
	case []Record:
		return rows, nil
	case []map[string]any:
		out := make([]Record, len(rows))
		for i, row := range rows {
			out[i] = Record(row)
		}
		return out, nil
	case []any:
		out := make([]Record, len(rows))
		for i, row := range rows {
			switch r := row.(type) {
			case Record:
				out[i] = r
			case map[string]any:
				out[i] = Record(r)
			default:
				return nil, fmt.Errorf("row %d is %T, not a record", i, row)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value of type %T is not a record sequence", v)
	}
}

// Columns returns the column names of the first record that has any, in
// no particular order. Used for diagnostics only.
func Columns(records []Record) []string {
	for _, r := range records {
		if len(r) == 0 {
			continue
		}
		cols := make([]string, 0, len(r))
		for k := range r {
			cols = append(cols, k)
		}
		return cols
	}
	return nil
}
