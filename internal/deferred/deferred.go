// Package deferred implements the placeholder protocol for batched value
// resolution: opaque tokens declared by field resolvers are collected across
// one resolution wave and handed to a single Resolver call, whose results are
// fanned back out positionally.
package deferred

import "errors"

// Deferred is an opaque placeholder standing in for a value produced later by
// a batched resolver pass. Implementations carry whatever identity the
// resolver needs (loader name, key, ...).
type Deferred interface {
	IsDeferred()
}

// Mapping wraps a placeholder with a transform that is applied only after
// batch resolution settles. Composing Map never triggers resolution, so many
// placeholders can be merged into one batch before any work happens.
type Mapping struct {
	Inner     Deferred
	Transform func(any) (any, error)
}

func (Mapping) IsDeferred() {}

// Map returns d wrapped with fn, applied lazily after the batch settles.
func Map(d Deferred, fn func(any) (any, error)) Deferred {
	return Mapping{Inner: d, Transform: fn}
}

// Unwrap flattens a Mapping chain down to the innermost real placeholder and
// the queued transforms in application order (innermost first).
func Unwrap(d Deferred) (Deferred, []func(any) (any, error)) {
	var transforms []func(any) (any, error)
	for {
		m, ok := d.(Mapping)
		if !ok {
			return d, transforms
		}
		// innermost transforms apply first
		transforms = append([]func(any) (any, error){m.Transform}, transforms...)
		d = m.Inner
	}
}

// ErrUnsupportedDefer is the failure produced for every placeholder when no
// resolver capability was registered for the execution.
var ErrUnsupportedDefer = errors.New("deferred values are not supported, a deferred resolver must be configured")
