package action

import (
	"context"

	deferred "github.com/resolvekit/resolvekit/internal/deferred"
)

// Coerce converts a raw resolver return value into exactly one Action. It is
// the single boundary where user-supplied resolver outputs enter the model,
// and it is total: every input maps to a variant.
//
//   - an Action is used as-is
//   - an error becomes a TryValue failure
//   - a deferred placeholder becomes a DeferredValue
//   - an Await (or bare func() (any, error)) becomes a FutureValue
//   - anything else, including nil, is an immediate Value
func Coerce(v any) Action {
	switch t := v.(type) {
	case nil:
		return Value{}
	case Action:
		return t
	case error:
		return TryValue{Err: t}
	case deferred.Deferred:
		return DeferredValue{D: t}
	case Await:
		return FutureValue{Await: t}
	case func(context.Context) (any, error):
		return FutureValue{Await: t}
	case func() (any, error):
		return FutureValue{Await: func(context.Context) (any, error) { return t() }}
	default:
		return Value{V: v}
	}
}
