// Package projector models projection mode: a restricted dry-run over the
// selection tree that predicts which field names a resolver's children will
// visit, so data layers can fetch exactly the columns a query needs.
package projector

import "strings"

// DefaultMaxDepth bounds how deep projected names are collected when the
// executor is not configured otherwise.
const DefaultMaxDepth = 1

// ProjectedName is a field name plus the ordered projected names of its
// children.
type ProjectedName struct {
	Name     string
	Children []ProjectedName
}

// Flatten expands the tree into every dotted path it represents, in
// depth-first declaration order. A name with children contributes its own
// path as well as its children's.
func (p ProjectedName) Flatten() []string {
	out := []string{p.Name}
	for _, c := range p.Children {
		for _, sub := range c.Flatten() {
			out = append(out, p.Name+"."+sub)
		}
	}
	return out
}

// FlattenAll flattens a forest of projected names.
func FlattenAll(names []ProjectedName) []string {
	var out []string
	for _, n := range names {
		out = append(out, n.Flatten()...)
	}
	return out
}

// Parse rebuilds a single-branch ProjectedName from a dotted path. It is the
// inverse of Flatten for chains without siblings.
func Parse(dotted string) ProjectedName {
	parts := strings.Split(dotted, ".")
	node := ProjectedName{Name: parts[len(parts)-1]}
	for i := len(parts) - 2; i >= 0; i-- {
		node = ProjectedName{Name: parts[i], Children: []ProjectedName{node}}
	}
	return node
}
