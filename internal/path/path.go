// Package path models the execution path of a field within a response tree:
// an immutable chain of field names and list indices rooted at the document.
package path

import (
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// Segment is either a field name (string) or a list index (int).
type Segment any

// Path locates a value or error within the result tree. The zero value is the
// document root. Paths are immutable; Append* returns a fresh path backed by
// its own segment storage so children never alias a sibling's tail.
type Path struct {
	segments []Segment
}

// Root is the empty path (document root).
var Root = Path{}

// FromSegments builds a path from raw segments. Non-string, non-int segments
// are rejected by construction elsewhere; this trusts its input.
func FromSegments(segments ...Segment) Path {
	p := make([]Segment, len(segments))
	copy(p, segments)
	return Path{segments: p}
}

// AppendName returns a child path extended with a field name.
func (p Path) AppendName(name string) Path {
	return p.append(name)
}

// AppendIndex returns a child path extended with a list index.
func (p Path) AppendIndex(i int) Path {
	return p.append(i)
}

func (p Path) append(seg Segment) Path {
	next := make([]Segment, len(p.segments)+1)
	copy(next, p.segments)
	next[len(p.segments)] = seg
	return Path{segments: next}
}

// IsRoot reports whether the path is the document root.
func (p Path) IsRoot() bool { return len(p.segments) == 0 }

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segments) }

// Segments returns the segments as a fresh slice of any, suitable for the
// response envelope's path entries.
func (p Path) Segments() []any {
	out := make([]any, len(p.segments))
	for i, seg := range p.segments {
		out[i] = seg
	}
	return out
}

// Head returns the path truncated to its first n segments.
func (p Path) Head(n int) Path {
	if n > len(p.segments) {
		n = len(p.segments)
	}
	return FromSegments(p.segments[:n]...)
}

// HasPrefix reports whether prefix is an ancestor of (or equal to) p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.segments) > len(p.segments) {
		return false
	}
	for i, seg := range prefix.segments {
		if p.segments[i] != seg {
			return false
		}
	}
	return true
}

// Key returns a string form usable as a map key. Distinct paths produce
// distinct keys because names are length-prefixed.
func (p Path) Key() string {
	var b strings.Builder
	for _, seg := range p.segments {
		switch v := seg.(type) {
		case string:
			b.WriteByte('n')
			b.WriteString(strconv.Itoa(len(v)))
			b.WriteByte(':')
			b.WriteString(v)
		case int:
			b.WriteByte('i')
			b.WriteString(strconv.Itoa(v))
			b.WriteByte(';')
		}
	}
	return b.String()
}

// String renders the path as "a.b[2].c" for messages.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p.segments {
		switch v := seg.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(v))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// ToAST converts the path to the gqlparser representation used in error nodes.
// The root path converts to nil so "path" is omitted for document-level errors.
func (p Path) ToAST() ast.Path {
	if len(p.segments) == 0 {
		return nil
	}
	out := make(ast.Path, len(p.segments))
	for i, seg := range p.segments {
		switch v := seg.(type) {
		case string:
			out[i] = ast.PathName(v)
		case int:
			out[i] = ast.PathIndex(v)
		}
	}
	return out
}
