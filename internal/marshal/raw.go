package marshal

import "fmt"

// Raw builds plain Go value trees (map[string]any, []any) — the in-tree
// default used by the executor and tests. Concrete encoders (JSON and
// friends) live outside the core behind the same interface.
type Raw struct{}

var rawCapabilities = NewCapabilitySet(
	KindNil, KindBool, KindInt, KindFloat, KindString, KindBytes, KindMap, KindArray,
)

type rawMap struct {
	keys   []string
	values map[string]any
}

func (Raw) EmptyMapNode(keys []string) MapNode {
	return &rawMap{keys: append([]string(nil), keys...), values: make(map[string]any, len(keys))}
}

func (Raw) AddMapNodeElem(m MapNode, key string, v Node, optional bool) MapNode {
	rm := m.(*rawMap)
	if optional && v == nil {
		return rm
	}
	if _, seen := rm.values[key]; !seen {
		found := false
		for _, k := range rm.keys {
			if k == key {
				found = true
				break
			}
		}
		if !found {
			rm.keys = append(rm.keys, key)
		}
	}
	rm.values[key] = v
	return rm
}

func (Raw) MapNode(m MapNode) Node {
	rm := m.(*rawMap)
	out := make(map[string]any, len(rm.values))
	for _, k := range rm.keys {
		if v, ok := rm.values[k]; ok {
			out[k] = v
		}
	}
	return out
}

func (Raw) ArrayNode(values []Node) Node {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func (Raw) ScalarNode(v any) (Node, error) {
	switch v.(type) {
	case nil, bool, string, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedScalar, v)
	}
}

func (Raw) NullNode() Node { return nil }

func (Raw) Capabilities() CapabilitySet { return rawCapabilities }
