package errfmt

import (
	"context"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	marshal "github.com/resolvekit/resolvekit/internal/marshal"
	path "github.com/resolvekit/resolvekit/internal/path"
)

// Registry is the append-only error collection of one execution. Entries keep
// accumulation order; nothing is deduplicated or mutated after insertion.
// A Registry is owned by exactly one execution and never shared.
type Registry struct {
	m       marshal.Marshaler
	handler Handler
	nodes   []*gqlerror.Error
}

// NewRegistry creates an empty registry. handler may be nil when no handled
// tier is configured.
func NewRegistry(m marshal.Marshaler, handler Handler) *Registry {
	return &Registry{m: m, handler: handler}
}

// AddMessage registers a single error with the literal message and no
// location information.
func (r *Registry) AddMessage(p path.Path, text string) {
	r.nodes = append(r.nodes, &gqlerror.Error{Message: text, Path: p.ToAST()})
}

// AddError classifies err and appends the resulting node or nodes, all tagged
// with p. pos contributes a location when present; violation-bearing errors
// use their own per-violation positions instead.
func (r *Registry) AddError(ctx context.Context, p path.Path, err error, pos *ast.Position) {
	r.nodes = append(r.nodes, classify(ctx, r.m, r.handler, err, p, pos)...)
}

// AddBatch classifies every error in errs, all sharing one path and position,
// and appends them as one insertion batch.
func (r *Registry) AddBatch(ctx context.Context, p path.Path, errs []error, pos *ast.Position) {
	for _, err := range errs {
		r.nodes = append(r.nodes, classify(ctx, r.m, r.handler, err, p, pos)...)
	}
}

// Merge appends other's entries after r's. The empty registry is the
// identity; merging is concatenation, so it associates.
func (r *Registry) Merge(other *Registry) {
	if other == nil {
		return
	}
	r.nodes = append(r.nodes, other.nodes...)
}

// Nodes returns the accumulated error nodes in insertion order.
func (r *Registry) Nodes() []*gqlerror.Error {
	return r.nodes
}

// Len returns the number of accumulated nodes.
func (r *Registry) Len() int { return len(r.nodes) }
