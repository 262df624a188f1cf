package action

import (
	"context"
	"fmt"

	deferred "github.com/resolvekit/resolvekit/internal/deferred"
)

// InvariantError reports an internal defect of the action model itself, such
// as a partial-future transform collapsing to a non-partial shape. It is never
// user-facing; classification replaces its message and reports the original
// out-of-band.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return e.Msg }

// Map transforms the eventual value of any leaf outcome.
//
// Semantics per variant:
//   - Value / TryValue success: fn applies immediately; a panic or error from
//     fn becomes a TryValue failure, never an uncaught panic past Map.
//   - TryValue failure: passes through untouched.
//   - PartialValue: only the value is transformed; the accompanying errors are
//     preserved unchanged. A failing fn collapses to a TryValue failure.
//   - FutureValue: the thunk is wrapped; fn applies after settlement with the
//     same recovery rules.
//   - PartialFutureValue: stays a PartialFutureValue; fn applies to the
//     settled PartialValue's value. A settled non-partial shape yields an
//     InvariantError.
//   - DeferredValue / FutureDeferredValue: fn is queued lazily on the
//     placeholder and applied only after batch resolution settles.
func Map(a Leaf, fn func(any) (any, error)) Leaf {
	switch v := a.(type) {
	case Value:
		return applied(fn, v.V)
	case TryValue:
		if v.Err != nil {
			return v
		}
		return applied(fn, v.V)
	case PartialValue:
		out, err := apply(fn, v.V)
		if err != nil {
			return TryValue{Err: err}
		}
		return PartialValue{V: out, Errs: v.Errs}
	case FutureValue:
		inner := v.Await
		return FutureValue{Await: func(ctx context.Context) (any, error) {
			settled, err := inner(ctx)
			if err != nil {
				return nil, err
			}
			return apply(fn, settled)
		}}
	case PartialFutureValue:
		inner := v.Await
		return PartialFutureValue{Await: func(ctx context.Context) (any, error) {
			settled, err := inner(ctx)
			if err != nil {
				return nil, err
			}
			pv, ok := settled.(PartialValue)
			if !ok {
				return nil, &InvariantError{Msg: fmt.Sprintf("partial future settled as %T instead of PartialValue", settled)}
			}
			out, err := apply(fn, pv.V)
			if err != nil {
				return nil, err
			}
			return PartialValue{V: out, Errs: pv.Errs}, nil
		}}
	case DeferredValue:
		return DeferredValue{D: deferred.Map(v.D, fn)}
	case FutureDeferredValue:
		inner := v.Await
		return FutureDeferredValue{Await: func(ctx context.Context) (any, error) {
			settled, err := inner(ctx)
			if err != nil {
				return nil, err
			}
			d, ok := settled.(deferred.Deferred)
			if !ok {
				return nil, &InvariantError{Msg: fmt.Sprintf("future deferred settled as %T instead of a placeholder", settled)}
			}
			return deferred.Map(d, fn), nil
		}}
	}
	// The Leaf set is sealed; reaching here means a new variant was added
	// without extending Map.
	panic(fmt.Sprintf("action: unknown leaf variant %T", a))
}

// MapAction maps fn over any action. An UpdateCtx keeps its context function
// and nests the transform inside the wrapped leaf, so the child context is
// computed from the transformed value.
func MapAction(a Action, fn func(any) (any, error)) Action {
	if u, ok := a.(UpdateCtx); ok {
		return UpdateCtx{Action: Map(u.Action, fn), NextCtx: u.NextCtx}
	}
	return Map(a.(Leaf), fn)
}

func applied(fn func(any) (any, error), v any) Leaf {
	out, err := apply(fn, v)
	if err != nil {
		return TryValue{Err: err}
	}
	return Value{V: out}
}

// apply runs fn with panic recovery so a transform can never propagate an
// uncaught panic to the caller.
func apply(fn func(any) (any, error), v any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("transform panic: %w", e)
			} else {
				err = fmt.Errorf("transform panic: %v", r)
			}
			out = nil
		}
	}()
	return fn(v)
}
