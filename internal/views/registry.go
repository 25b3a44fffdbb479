// Package views turns decoded SSR result rows into the aggregations the
// dashboard charts are drawn from. Each view is registered under a name; the
// executor looks views up by the name carried in a transform task.
package views

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aatumaykin/ssrworker/internal/protocol"
)

// Column names of the SSR result tables.
const (
	ColGenome   = "genomeID"
	ColCategory = "category"
	ColCountry  = "country"
	ColYear     = "year"
	ColMotif    = "motif"
	ColRepeat   = "repeat"
	ColGC       = "GC_per"
	ColGene     = "gene"
	ColLength   = "length_of_ssr"
)

// Unknown labels rows whose grouping column is empty.
const Unknown = "Unknown"

// ErrUnknownView is returned by Registry.Run in strict mode.
var ErrUnknownView = errors.New("unknown view")

// ErrReferenceRequired is returned by views that compare against a reference.
var ErrReferenceRequired = errors.New("reference key is required")

// Func computes a view. referenceKey is optional for most views.
type Func func(ctx context.Context, records []protocol.Record, referenceKey string) (any, error)

// Registry maps view names to their implementation.
type Registry struct {
	views  map[string]Func
	strict bool
}

// NewRegistry returns a registry holding every built-in view. In strict mode
// an unknown view name is an error; otherwise the input is passed through.
func NewRegistry(strict bool) *Registry {
	r := &Registry{views: make(map[string]Func), strict: strict}
	r.Register("category_country", CategoryCountry)
	r.Register("motif_conservation", MotifConservation)
	r.Register("relative_abundance", RelativeAbundance)
	r.Register("repeat_distribution", RepeatDistribution)
	r.Register("gc_distribution", GCDistribution)
	r.Register("gene_summary", GeneSummary)
	r.Register("temporal", Temporal)
	r.Register("hotspot", Hotspot)
	r.Register("reference_comparison", ReferenceComparison)
	r.Register("summary", Summary)
	return r
}

// Register adds or replaces a view.
func (r *Registry) Register(name string, fn Func) {
	r.views[name] = fn
}

// Names lists registered views in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.views))
	for name := range r.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a view is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.views[name]
	return ok
}

// Run computes the named view.
func (r *Registry) Run(ctx context.Context, name string, records []protocol.Record, referenceKey string) (any, error) {
	fn, ok := r.views[name]
	if !ok {
		if r.strict {
			return nil, fmt.Errorf("%w: %s", ErrUnknownView, name)
		}
		return records, nil
	}
	return fn(ctx, records, referenceKey)
}
