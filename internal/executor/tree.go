package executor

import (
	"fmt"
	"reflect"

	marshal "github.com/resolvekit/resolvekit/internal/marshal"
	path "github.com/resolvekit/resolvekit/internal/path"
)

// omap is the mutable, order-preserving object node of the response tree
// under construction. Keys keep declaration order so assembly can reproduce
// the query's field order.
type omap struct {
	keys   []string
	values map[string]any
}

func newOmap() *omap {
	return &omap{values: make(map[string]any)}
}

func (o *omap) set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o *omap) get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// writeAt replaces the value at an absolute response path. Writes under
// missing or already-nulled subtrees are silently dropped; the deciding null
// stays in place.
func (st *executionState) writeAt(p path.Path, value any) {
	if st.responseRoot == nil || p.IsRoot() {
		return
	}
	segments := p.Segments()
	current := any(st.responseRoot)
	for _, seg := range segments[:len(segments)-1] {
		switch s := seg.(type) {
		case string:
			o, ok := current.(*omap)
			if !ok {
				return
			}
			current, ok = o.get(s)
			if !ok {
				return
			}
		case int:
			arr, ok := current.([]any)
			if !ok || s < 0 || s >= len(arr) {
				return
			}
			current = arr[s]
		}
	}
	switch s := segments[len(segments)-1].(type) {
	case string:
		if o, ok := current.(*omap); ok {
			o.set(s, value)
		}
	case int:
		if arr, ok := current.([]any); ok && s >= 0 && s < len(arr) {
			arr[s] = value
		}
	}
}

// isNullish reports whether v is nil or a typed nil. A pendingValue is not
// nullish: its branch is suspended, not settled.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	if _, ok := v.(pendingValue); ok {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// asSlice normalizes any slice value to []any.
func asSlice(v any) ([]any, bool) {
	if direct, ok := v.([]any); ok {
		return direct, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// toNode converts the completed response tree into marshaler nodes, walking
// object keys in declaration order.
func toNode(m marshal.Marshaler, v any) (marshal.Node, error) {
	switch t := v.(type) {
	case nil:
		return m.NullNode(), nil
	case pendingValue:
		return nil, fmt.Errorf("unsettled branch reached assembly")
	case *omap:
		if t == nil {
			return m.NullNode(), nil
		}
		mn := m.EmptyMapNode(t.keys)
		for _, k := range t.keys {
			child, _ := t.get(k)
			n, err := toNode(m, child)
			if err != nil {
				return nil, err
			}
			mn = m.AddMapNodeElem(mn, k, n, false)
		}
		return m.MapNode(mn), nil
	case []any:
		nodes := make([]marshal.Node, len(t))
		for i, item := range t {
			n, err := toNode(m, item)
			if err != nil {
				return nil, err
			}
			nodes[i] = n
		}
		return m.ArrayNode(nodes), nil
	default:
		if isNullish(v) {
			return m.NullNode(), nil
		}
		return m.ScalarNode(v)
	}
}
