// Package language exposes the query-language AST and parsers used by the
// executor, aliased from gqlparser so the rest of the module names one
// surface.
package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses an executable document.
func ParseQuery(source string) (*QueryDocument, error) {
	return parser.ParseQuery(&ast.Source{Input: source})
}

// ParseSchema parses a type-system document.
func ParseSchema(name, source string) (*SchemaDocument, error) {
	return parser.ParseSchema(&ast.Source{Name: name, Input: source})
}
