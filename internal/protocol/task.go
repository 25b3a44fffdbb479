package protocol

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewTaskID returns a process-unique task id: a nanosecond timestamp followed
// by a short random suffix.
func NewTaskID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), suffix)
}

// NewParseTask builds a parse task for a columnar buffer.
func NewParseTask(buf []byte) Task {
	return Task{ID: NewTaskID(), Kind: KindParse, Buffer: buf}
}

// NewTransformTask builds a transform task for the named view.
func NewTransformTask(records []Record, view, referenceKey string) Task {
	return Task{
		ID:      NewTaskID(),
		Kind:    KindTransform,
		Records: records,
		Options: &Options{View: view, ReferenceKey: referenceKey},
	}
}

// NewFilterTask builds a filter task. Options are omitted when there is
// nothing to filter or sort by.
func NewFilterTask(records []Record, predicates map[string]any, sort string) Task {
	t := Task{ID: NewTaskID(), Kind: KindFilter, Records: records}
	if len(predicates) > 0 || sort != "" {
		t.Options = &Options{Predicates: predicates, Sort: sort}
	}
	return t
}

// Validate checks the structural contract of a task.
func (t Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("unknown task kind: %q", t.Kind)
	}

	switch t.Kind {
	case KindParse:
		if len(t.Buffer) == 0 {
			return errors.New("parse task requires a non-empty buffer")
		}
		if t.Options != nil {
			return errors.New("parse task does not accept options")
		}
	case KindTransform:
		if t.Options == nil || t.Options.View == "" {
			return errors.New("transform task requires a view name")
		}
	case KindFilter:
		if t.Options != nil && t.Options.View != "" {
			return errors.New("filter task does not accept a view name")
		}
	}

	return nil
}
