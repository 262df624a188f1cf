package deferred

import "context"

// Result is the outcome of resolving one placeholder. Results are independent;
// a failed placeholder never affects its batch siblings.
type Result struct {
	Value any
	Err   error
}

// Resolver is the batching capability configured once per execution.
//
// Resolve receives every placeholder collected within one resolution wave and
// must return exactly one Result per token, in the same order: the result at
// index i corresponds to tokens[i]. The correspondence is positional, never
// content-matched. opCtx is the operation-scoped context value threaded
// through the execution.
type Resolver interface {
	Resolve(ctx context.Context, tokens []Deferred, opCtx any) []Result
}

// NoopResolver is the default capability: it fails every placeholder with
// ErrUnsupportedDefer so misconfigured executions surface loudly instead of
// dropping values.
type NoopResolver struct{}

func (NoopResolver) Resolve(ctx context.Context, tokens []Deferred, opCtx any) []Result {
	results := make([]Result, len(tokens))
	for i := range results {
		results[i] = Result{Err: ErrUnsupportedDefer}
	}
	return results
}
