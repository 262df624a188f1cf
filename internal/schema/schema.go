// Package schema models the executable type schema: named types, field
// definitions carrying resolver functions, and type-reference wrappers for
// Non-Null and List shapes.
package schema

import (
	"context"

	path "github.com/resolvekit/resolvekit/internal/path"
	projector "github.com/resolvekit/resolvekit/internal/projector"
)

// Schema is the complete executable schema.
type Schema struct {
	QueryType    string
	MutationType string
	Types        map[string]*Type
}

// GetQueryType returns the root query type (nil if absent).
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (nil if absent).
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// TypeKind is the kind of a named type.
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// Type is a named type.
type Type struct {
	Name          string
	Kind          TypeKind
	Fields        []*Field // OBJECT and INTERFACE
	Interfaces    []string // OBJECT
	PossibleTypes []string // INTERFACE and UNION
	EnumValues    []string // ENUM
	InputFields   []*InputValue

	// ResolveType maps a value of this abstract type to its concrete object
	// type name. Required for INTERFACE and UNION when selected against.
	ResolveType func(ctx context.Context, value any) (string, error)
}

// Field returns the field definition named name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ResolveParams carries everything a resolver sees for one field visit.
type ResolveParams struct {
	Ctx    context.Context
	Source any            // parent object value (nil for root)
	Args   map[string]any // coerced argument values
	OpCtx  any            // operation context value, possibly rewritten by UpdateCtx upstream
	Path   path.Path
}

// Resolver computes one field's raw outcome. The returned value passes
// through action.Coerce, so a bare value, an error, a thunk, a deferred
// placeholder, or any Action variant are all legal.
type Resolver func(p ResolveParams) any

// ProjectedResolver is the alternate signature used while projection mode is
// active for a field: it additionally receives the projected names requested
// under this field.
type ProjectedResolver func(p ResolveParams, names []projector.ProjectedName) any

// Field is a field on an object or interface type.
type Field struct {
	Name      string
	Type      *TypeRef
	Arguments []*InputValue

	// Resolve produces the field's outcome. A nil Resolve falls back to
	// source-map lookup by field name.
	Resolve Resolver

	// Project, when set, replaces Resolve while projection mode is active
	// down to the executor's configured depth.
	Project ProjectedResolver
}

// InputValue is an argument or input-object field definition.
type InputValue struct {
	Name         string
	Type         *TypeRef
	DefaultValue any
}

// TypeRefKind distinguishes named, list and non-null references.
type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// TypeRef references a possibly wrapped type.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // List and NonNull
	Named  string   // named types
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t == nil {
		return false
	}
	if t.Kind == TypeRefKindList {
		return true
	}
	return t.Kind == TypeRefKindNonNull && t.OfType != nil && t.OfType.Kind == TypeRefKindList
}

// Unwrap removes one layer of Non-Null or List wrapping.
func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

// GetNamedType returns the innermost named type.
func (t *TypeRef) GetNamedType() string {
	for cur := t; cur != nil; cur = cur.OfType {
		if cur.Named != "" {
			return cur.Named
		}
	}
	return ""
}

// IsNonNull reports whether the reference is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t.IsNonNull() }

// IsList reports whether the reference is (or is wrapped by) a list.
func IsList(t *TypeRef) bool { return t.IsList() }

// Unwrap removes one wrapping layer from t.
func Unwrap(t *TypeRef) *TypeRef { return t.Unwrap() }

// GetNamedType returns the innermost named type of t.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
