package protocol

import (
	"fmt"
	"math"
	"reflect"

	cbor "github.com/fxamacker/cbor/v2"
)

// Codec copies tasks and results across the executor boundary as CBOR.
// A decoded message never aliases memory of the encoded one.
type Codec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// maxElements lifts the decoder's default cap of 131072 array elements and
// map pairs to the largest value the library accepts.
const maxElements = math.MaxInt32

// NewCodec returns a codec whose generic maps decode as map[string]any.
func NewCodec() (*Codec, error) {
	em, err := cbor.EncOptions{}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to build cbor encoder: %w", err)
	}
	dm, err := cbor.DecOptions{
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		MaxArrayElements: maxElements,
		MaxMapPairs:      maxElements,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("failed to build cbor decoder: %w", err)
	}
	return &Codec{enc: em, dec: dm}, nil
}

// MustCodec is NewCodec for package-level initialisation.
func MustCodec() *Codec {
	c, err := NewCodec()
	if err != nil {
		panic(err)
	}
	return c
}

// ContentType of encoded messages.
func (c *Codec) ContentType() string { return "application/cbor" }

// EncodeTask serialises a task message.
func (c *Codec) EncodeTask(t Task) ([]byte, error) {
	data, err := c.enc.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task %s: %w", t.ID, err)
	}
	return data, nil
}

// DecodeTask deserialises a task message.
func (c *Codec) DecodeTask(data []byte) (Task, error) {
	var t Task
	if err := c.dec.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("failed to decode task: %w", err)
	}
	return t, nil
}

// EncodeResult serialises a result message.
func (c *Codec) EncodeResult(r Result) ([]byte, error) {
	data, err := c.enc.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result %s: %w", r.ID, err)
	}
	return data, nil
}

// DecodeResult deserialises a result message. Sequences of maps in the value
// are restored to []Record.
func (c *Codec) DecodeResult(data []byte) (Result, error) {
	var r Result
	if err := c.dec.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("failed to decode result: %w", err)
	}
	if rows, ok := r.Value.([]any); ok {
		if records, err := AsRecords(rows); err == nil {
			r.Value = records
		}
	}
	return r, nil
}
