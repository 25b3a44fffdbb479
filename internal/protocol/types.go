// Package protocol defines the messages exchanged between the execution pool
// and its background executors: a Task describing one unit of work and the
// Result it produces. Both are plain values; they cross the executor boundary
// only in encoded form (see Codec), so neither side ever shares memory with
// the other.
package protocol

// Kind is the closed set of operations an executor can perform.
type Kind string

const (
	// KindParse decodes a columnar (Arrow IPC) buffer into records.
	KindParse Kind = "parse"
	// KindTransform aggregates records into a named chart view.
	KindTransform Kind = "transform"
	// KindFilter applies a predicate map and an optional sort to records.
	KindFilter Kind = "filter"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindParse, KindTransform, KindFilter:
		return true
	}
	return false
}

// Outcome discriminates successful and failed results.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Record is one decoded table row: column name to scalar value.
// Values are string, float64, bool or nil. 64-bit integer columns are carried
// as decimal strings.
type Record map[string]any

// Options carries the kind-specific parameters of a task.
type Options struct {
	View         string         `cbor:"view,omitempty" json:"view,omitempty"`
	ReferenceKey string         `cbor:"reference_key,omitempty" json:"reference_key,omitempty"`
	Predicates   map[string]any `cbor:"predicates,omitempty" json:"predicates,omitempty"`
	Sort         string         `cbor:"sort,omitempty" json:"sort,omitempty"`
}

// Task is a unit of work sent to an executor.
type Task struct {
	ID      string   `cbor:"id"`
	Kind    Kind     `cbor:"kind"`
	Buffer  []byte   `cbor:"buffer,omitempty"`
	Records []Record `cbor:"records,omitempty"`
	Options *Options `cbor:"options,omitempty"`
}

// Result is the single response an executor emits for a task.
type Result struct {
	ID      string  `cbor:"id"`
	Outcome Outcome `cbor:"outcome"`
	Value   any     `cbor:"value"`
	Message string  `cbor:"message,omitempty"`
}

// Success builds a successful result for the task with the given id.
func Success(id string, value any) Result {
	return Result{ID: id, Outcome: OutcomeSuccess, Value: value}
}

// Failure builds a failed result for the task with the given id.
func Failure(id string, err error) Result {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Result{ID: id, Outcome: OutcomeFailure, Message: msg}
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}
