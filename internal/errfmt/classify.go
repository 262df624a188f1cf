// Package errfmt accumulates, classifies and formats the heterogeneous
// failures of one execution into uniform located error nodes. Nodes use the
// gqlparser error shape (message, locations, path, extensions) so the
// envelope matches the canonical response format.
package errfmt

import (
	"context"
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	eventbus "github.com/resolvekit/resolvekit/internal/eventbus"
	events "github.com/resolvekit/resolvekit/internal/events"
	marshal "github.com/resolvekit/resolvekit/internal/marshal"
	path "github.com/resolvekit/resolvekit/internal/path"
)

// internalMessage replaces the message of every unclassified error so
// internal detail never leaks into the envelope.
const internalMessage = "Internal server error"

// UserFacing marks errors whose message is safe to surface verbatim.
type UserFacing interface {
	error
	IsUserFacing()
}

// UserError is a convenience UserFacing implementation.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }
func (e *UserError) IsUserFacing() {}

// Violation is one independent rule failure inside a violation-bearing error.
type Violation struct {
	Message  string
	Position *ast.Position
}

// ViolationsError carries a list of independent rule violations; each expands
// to its own error node with its own location.
type ViolationsError interface {
	error
	Violations() []Violation
}

// ReducerError wraps a reducer-stage failure with its underlying cause. It is
// unwrapped to the cause before classification when the cause matches a
// registered handler.
type ReducerError struct {
	Cause error
}

func (e *ReducerError) Error() string { return fmt.Sprintf("reducer failed: %v", e.Cause) }
func (e *ReducerError) Unwrap() error { return e.Cause }

// Handled is a handler's contribution to an error node: the surfaced message
// (empty string allowed) plus structured extension fields.
type Handled struct {
	Message    string
	Extensions map[string]any
}

// Handler is the registered capability matching (marshaler, error) pairs.
// Handle reports whether it recognizes err; if so its Handled output shapes
// the node.
type Handler interface {
	Handle(m marshal.Marshaler, err error) (Handled, bool)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(m marshal.Marshaler, err error) (Handled, bool)

func (f HandlerFunc) Handle(m marshal.Marshaler, err error) (Handled, bool) {
	return f(m, err)
}

// classify turns one failure into one or more error nodes. Dispatch order:
// violation expansion, then the user-facing marker, then registered handlers,
// then the internal fallback whose detail goes out-of-band only.
func classify(ctx context.Context, m marshal.Marshaler, h Handler, err error, p path.Path, pos *ast.Position) []*gqlerror.Error {
	var re *ReducerError
	if errors.As(err, &re) && h != nil {
		if _, ok := h.Handle(m, re.Cause); ok {
			err = re.Cause
		}
	}

	var ve ViolationsError
	if errors.As(err, &ve) {
		violations := ve.Violations()
		nodes := make([]*gqlerror.Error, 0, len(violations))
		for _, v := range violations {
			nodes = append(nodes, node(err, v.Message, p, v.Position, nil))
		}
		return nodes
	}

	var uf UserFacing
	if errors.As(err, &uf) {
		return []*gqlerror.Error{node(err, uf.Error(), p, pos, nil)}
	}

	if h != nil {
		if handled, ok := h.Handle(m, err); ok {
			return []*gqlerror.Error{node(err, handled.Message, p, pos, handled.Extensions)}
		}
	}

	eventbus.Publish(ctx, events.InternalError{Err: err, Path: p.String()})
	return []*gqlerror.Error{node(err, internalMessage, p, pos, nil)}
}

func node(err error, message string, p path.Path, pos *ast.Position, extensions map[string]any) *gqlerror.Error {
	e := &gqlerror.Error{
		Err:        err,
		Message:    message,
		Path:       p.ToAST(),
		Extensions: extensions,
	}
	if pos != nil && pos.Line > 0 {
		e.Locations = []gqlerror.Location{{Line: pos.Line, Column: pos.Column}}
	}
	return e
}
