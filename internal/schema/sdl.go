package schema

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"

	language "github.com/resolvekit/resolvekit/internal/language"
)

// Bind attaches runtime behavior to an SDL-built schema. Resolver keys are
// "Type.field"; type-resolver keys are abstract type names.
type Bind struct {
	Resolvers    map[string]Resolver
	Projected    map[string]ProjectedResolver
	TypeResolver map[string]func(ctx context.Context, value any) (string, error)
}

// FromSDL materializes an executable schema from a type-system document and
// the resolver bindings. Fields without a bound resolver fall back to the
// executor's source-map lookup.
func FromSDL(name, sdl string, bind Bind) (*Schema, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		return nil, err
	}

	s := &Schema{QueryType: "Query", MutationType: "Mutation", Types: map[string]*Type{}}
	for _, scalar := range []string{"String", "Int", "Float", "Boolean", "ID"} {
		s.Types[scalar] = &Type{Name: scalar, Kind: TypeKindScalar}
	}

	for _, sd := range doc.Schema {
		for _, op := range sd.OperationTypes {
			switch op.Operation {
			case ast.Query:
				s.QueryType = op.Type
			case ast.Mutation:
				s.MutationType = op.Type
			}
		}
	}

	for _, def := range doc.Definitions {
		t, err := buildType(def, bind)
		if err != nil {
			return nil, err
		}
		s.Types[t.Name] = t
	}

	// interfaces learn their possible types from the objects implementing
	// them, in declaration order
	for _, def := range doc.Definitions {
		t := s.Types[def.Name]
		if t == nil || t.Kind != TypeKindObject {
			continue
		}
		for _, iface := range t.Interfaces {
			if it := s.Types[iface]; it != nil {
				it.PossibleTypes = append(it.PossibleTypes, t.Name)
			}
		}
	}

	return s, nil
}

func buildType(def *ast.Definition, bind Bind) (*Type, error) {
	t := &Type{Name: def.Name}
	switch def.Kind {
	case ast.Object:
		t.Kind = TypeKindObject
		t.Interfaces = def.Interfaces
	case ast.Interface:
		t.Kind = TypeKindInterface
	case ast.Union:
		t.Kind = TypeKindUnion
		t.PossibleTypes = def.Types
	case ast.Scalar:
		t.Kind = TypeKindScalar
	case ast.Enum:
		t.Kind = TypeKindEnum
		for _, ev := range def.EnumValues {
			t.EnumValues = append(t.EnumValues, ev.Name)
		}
	case ast.InputObject:
		t.Kind = TypeKindInputObject
		for _, f := range def.Fields {
			t.InputFields = append(t.InputFields, &InputValue{
				Name:         f.Name,
				Type:         typeRefFromAST(f.Type),
				DefaultValue: literalToGo(f.DefaultValue),
			})
		}
	default:
		return nil, fmt.Errorf("unsupported definition kind %s for %s", def.Kind, def.Name)
	}

	if t.Kind == TypeKindObject || t.Kind == TypeKindInterface {
		for _, f := range def.Fields {
			field := &Field{
				Name:    f.Name,
				Type:    typeRefFromAST(f.Type),
				Resolve: bind.Resolvers[def.Name+"."+f.Name],
				Project: bind.Projected[def.Name+"."+f.Name],
			}
			for _, a := range f.Arguments {
				field.Arguments = append(field.Arguments, &InputValue{
					Name:         a.Name,
					Type:         typeRefFromAST(a.Type),
					DefaultValue: literalToGo(a.DefaultValue),
				})
			}
			t.Fields = append(t.Fields, field)
		}
	}
	if t.Kind == TypeKindInterface || t.Kind == TypeKindUnion {
		t.ResolveType = bind.TypeResolver[def.Name]
	}
	return t, nil
}

// typeRefFromAST converts an ast type reference, including Non-Null and List
// wrapping, into the schema representation.
func typeRefFromAST(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.NamedType != "" {
		ref = NamedType(t.NamedType)
	} else {
		ref = ListType(typeRefFromAST(t.Elem))
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

// literalToGo converts a constant SDL literal (default values) to a Go value.
func literalToGo(v *ast.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case ast.IntValue:
		i, _ := strconv.Atoi(v.Raw)
		return i
	case ast.FloatValue:
		f, _ := strconv.ParseFloat(v.Raw, 64)
		return f
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return v.Raw
	case ast.BooleanValue:
		return v.Raw == "true"
	case ast.NullValue:
		return nil
	case ast.ListValue:
		out := make([]any, 0, len(v.Children))
		for _, c := range v.Children {
			out = append(out, literalToGo(c.Value))
		}
		return out
	case ast.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			out[c.Name] = literalToGo(c.Value)
		}
		return out
	default:
		return v.Raw
	}
}
