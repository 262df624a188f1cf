// Package result assembles the final response envelope from the completed
// data tree and the execution's error registry, through the generic
// node-builder capability.
package result

import (
	"context"
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	errfmt "github.com/resolvekit/resolvekit/internal/errfmt"
	marshal "github.com/resolvekit/resolvekit/internal/marshal"
	path "github.com/resolvekit/resolvekit/internal/path"
)

// Assemble builds the response envelope. The "data" key is always present
// (null when data is absent); "errors" appears only when the registry holds
// at least one entry.
func Assemble(m marshal.Marshaler, data marshal.Node, reg *errfmt.Registry) marshal.Node {
	env := m.EmptyMapNode([]string{"data", "errors"})
	if data == nil {
		data = m.NullNode()
	}
	env = m.AddMapNodeElem(env, "data", data, false)

	var errsNode marshal.Node
	if reg != nil && reg.Len() > 0 {
		nodes := make([]marshal.Node, 0, reg.Len())
		for _, e := range reg.Nodes() {
			nodes = append(nodes, errorNode(m, e))
		}
		errsNode = m.ArrayNode(nodes)
	}
	env = m.AddMapNodeElem(env, "errors", errsNode, true)
	return m.MapNode(env)
}

// ResolveFatal short-circuits a pre-execution failure into a complete
// {data: null, errors: [...]} envelope plus the registry holding the error.
func ResolveFatal(ctx context.Context, m marshal.Marshaler, handler errfmt.Handler, err error) (marshal.Node, *errfmt.Registry) {
	reg := errfmt.NewRegistry(m, handler)
	reg.AddError(ctx, path.Root, err, nil)
	return Assemble(m, nil, reg), reg
}

// errorNode renders one registry entry as {message, locations?, path?, ...extra}.
func errorNode(m marshal.Marshaler, e *gqlerror.Error) marshal.Node {
	mn := m.EmptyMapNode([]string{"message", "locations", "path"})

	msg, err := m.ScalarNode(e.Message)
	if err != nil {
		msg = m.NullNode()
	}
	mn = m.AddMapNodeElem(mn, "message", msg, false)

	if len(e.Locations) > 0 {
		locs := make([]marshal.Node, 0, len(e.Locations))
		for _, l := range e.Locations {
			ln := m.EmptyMapNode([]string{"line", "column"})
			line, _ := m.ScalarNode(l.Line)
			column, _ := m.ScalarNode(l.Column)
			ln = m.AddMapNodeElem(ln, "line", line, false)
			ln = m.AddMapNodeElem(ln, "column", column, false)
			locs = append(locs, m.MapNode(ln))
		}
		mn = m.AddMapNodeElem(mn, "locations", m.ArrayNode(locs), true)
	}

	if len(e.Path) > 0 {
		segs := make([]marshal.Node, 0, len(e.Path))
		for _, seg := range e.Path {
			switch s := seg.(type) {
			case ast.PathName:
				n, _ := m.ScalarNode(string(s))
				segs = append(segs, n)
			case ast.PathIndex:
				n, _ := m.ScalarNode(int(s))
				segs = append(segs, n)
			}
		}
		mn = m.AddMapNodeElem(mn, "path", m.ArrayNode(segs), true)
	}

	// handler-contributed fields merge into the node itself
	if len(e.Extensions) > 0 {
		keys := make([]string, 0, len(e.Extensions))
		for k := range e.Extensions {
			if k == "message" || k == "locations" || k == "path" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if n, err := valueNode(m, e.Extensions[k]); err == nil {
				mn = m.AddMapNodeElem(mn, k, n, true)
			}
		}
	}

	return m.MapNode(mn)
}

// valueNode converts a plain Go value tree into nodes.
func valueNode(m marshal.Marshaler, v any) (marshal.Node, error) {
	switch t := v.(type) {
	case nil:
		return m.NullNode(), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		mn := m.EmptyMapNode(keys)
		for _, k := range keys {
			n, err := valueNode(m, t[k])
			if err != nil {
				return nil, err
			}
			mn = m.AddMapNodeElem(mn, k, n, false)
		}
		return m.MapNode(mn), nil
	case []any:
		nodes := make([]marshal.Node, len(t))
		for i, item := range t {
			n, err := valueNode(m, item)
			if err != nil {
				return nil, err
			}
			nodes[i] = n
		}
		return m.ArrayNode(nodes), nil
	default:
		return m.ScalarNode(v)
	}
}
