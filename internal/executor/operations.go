package executor

import (
	"context"
	"fmt"

	"github.com/aatumaykin/ssrworker/internal/columnar"
	"github.com/aatumaykin/ssrworker/internal/filter"
	"github.com/aatumaykin/ssrworker/internal/protocol"
	"github.com/aatumaykin/ssrworker/internal/views"
)

// Handler performs the work of one task and returns its value.
type Handler interface {
	Handle(ctx context.Context, task protocol.Task) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, task protocol.Task) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, task protocol.Task) (any, error) {
	return f(ctx, task)
}

// Operations is the production handler: it parses columnar buffers, runs
// views and applies filters.
type Operations struct {
	views *views.Registry
}

// NewOperations builds the handler. strictViews makes unknown view names fail
// instead of passing the records through.
func NewOperations(strictViews bool) *Operations {
	return &Operations{views: views.NewRegistry(strictViews)}
}

// Views exposes the view registry, e.g. to list available names.
func (o *Operations) Views() *views.Registry {
	return o.views
}

// Handle dispatches on the task kind.
func (o *Operations) Handle(ctx context.Context, task protocol.Task) (any, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}

	switch task.Kind {
	case protocol.KindParse:
		return columnar.Decode(task.Buffer)
	case protocol.KindTransform:
		return o.views.Run(ctx, task.Options.View, task.Records, task.Options.ReferenceKey)
	case protocol.KindFilter:
		var predicates map[string]any
		var sortSpec string
		if task.Options != nil {
			predicates = task.Options.Predicates
			sortSpec = task.Options.Sort
		}
		return filter.Apply(ctx, task.Records, predicates, sortSpec)
	default:
		return nil, fmt.Errorf("unknown task kind: %q", task.Kind)
	}
}
