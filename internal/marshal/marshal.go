// Package marshal defines the generic node-builder capability through which
// result assembly talks to a concrete output encoding. The execution core
// never names a format; anything that can build maps, arrays, scalars and
// null through this interface can carry the response envelope.
package marshal

import "fmt"

// Node is an encoding-specific value under construction. Consumers treat it
// as opaque and only combine nodes through a Marshaler.
type Node any

// MapNode is an encoding-specific map skeleton under construction.
type MapNode any

// Kind enumerates the native shapes a marshaler may be able to represent.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindMap
	KindArray
)

// CapabilitySet describes which native kinds a marshaler can represent.
type CapabilitySet map[Kind]struct{}

// NewCapabilitySet builds a set from kinds.
func NewCapabilitySet(kinds ...Kind) CapabilitySet {
	s := make(CapabilitySet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether k is representable.
func (s CapabilitySet) Has(k Kind) bool {
	_, ok := s[k]
	return ok
}

// Marshaler is the node-builder capability.
type Marshaler interface {
	// EmptyMapNode creates a map skeleton. keys lists the key names known up
	// front so encoders that preallocate or preserve order can do so.
	EmptyMapNode(keys []string) MapNode

	// AddMapNodeElem adds one key/value pair. optional marks keys that the
	// encoder may omit when the value is null (e.g. the envelope's "errors").
	AddMapNodeElem(m MapNode, key string, v Node, optional bool) MapNode

	// MapNode finalizes a skeleton into a Node.
	MapNode(m MapNode) Node

	// ArrayNode builds an array from already-built nodes.
	ArrayNode(values []Node) Node

	// ScalarNode builds a leaf node from a native Go value. Values outside the
	// marshaler's capability set are rejected.
	ScalarNode(v any) (Node, error)

	// NullNode builds an explicit null.
	NullNode() Node

	// Capabilities reports which native kinds this marshaler represents.
	Capabilities() CapabilitySet
}

// ErrUnsupportedScalar is wrapped by marshalers rejecting a scalar value.
var ErrUnsupportedScalar = fmt.Errorf("scalar value not representable by marshaler")
