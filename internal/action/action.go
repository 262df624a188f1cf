// Package action defines the outcome algebra for field resolution. A resolver
// produces exactly one Action; the executor branches exhaustively on its
// variant. The leaf variants cover every combination of synchronous vs
// asynchronous, total vs partial success, and immediate vs batched-deferred
// production; UpdateCtx additionally threads a new context value into the
// resolution of the field's children.
package action

import (
	"context"

	deferred "github.com/resolvekit/resolvekit/internal/deferred"
)

// Action is the sealed union of every resolution outcome.
type Action interface {
	isAction()
}

// Leaf is the sealed subset of directly resolvable outcomes. Every Leaf
// supports Map; UpdateCtx wraps a Leaf and is not itself one.
type Leaf interface {
	Action
	isLeaf()
}

// ReduceAction is the restricted subset usable by pre-execution passes
// (e.g. cost estimation) where deferred batching is unavailable: only
// Value, TryValue and FutureValue qualify.
type ReduceAction interface {
	Action
	isReduce()
}

// Await is the Go rendering of a promise: a thunk the executor runs inside
// the current wave. It must honor ctx cancellation.
type Await func(ctx context.Context) (any, error)

// Value is an immediately available result.
type Value struct {
	V any
}

// TryValue is a fallible result: either V or Err, never both.
type TryValue struct {
	V   any
	Err error
}

// PartialValue is a value accompanied by non-fatal errors scoped to the same
// field. The errors are registered at the field's path; the value is used.
type PartialValue struct {
	V    any
	Errs []error
}

// FutureValue suspends the branch until its thunk settles.
type FutureValue struct {
	Await Await
}

// PartialFutureValue suspends the branch; the settled value must be a
// PartialValue. Any other settled shape is an internal invariant violation,
// reported out-of-band rather than treated as success.
type PartialFutureValue struct {
	Await Await
}

// DeferredValue registers a placeholder with the current wave's collector;
// the branch resumes after the wave's batch call settles.
type DeferredValue struct {
	D deferred.Deferred
}

// FutureDeferredValue awaits a thunk whose settled value is a
// deferred.Deferred, then behaves like DeferredValue.
type FutureDeferredValue struct {
	Await Await
}

// UpdateCtx wraps a leaf outcome and computes the context value threaded into
// the resolution of this field's children from the resolved field value. The
// produced field value is unchanged.
type UpdateCtx struct {
	Action  Leaf
	NextCtx func(any) any
}

func (Value) isAction()               {}
func (TryValue) isAction()            {}
func (PartialValue) isAction()        {}
func (FutureValue) isAction()         {}
func (PartialFutureValue) isAction()  {}
func (DeferredValue) isAction()       {}
func (FutureDeferredValue) isAction() {}
func (UpdateCtx) isAction()           {}

func (Value) isLeaf()               {}
func (TryValue) isLeaf()            {}
func (PartialValue) isLeaf()        {}
func (FutureValue) isLeaf()         {}
func (PartialFutureValue) isLeaf()  {}
func (DeferredValue) isLeaf()       {}
func (FutureDeferredValue) isLeaf() {}

func (Value) isReduce()       {}
func (TryValue) isReduce()    {}
func (FutureValue) isReduce() {}
