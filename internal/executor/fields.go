package executor

import (
	language "github.com/resolvekit/resolvekit/internal/language"
	projector "github.com/resolvekit/resolvekit/internal/projector"
	schema "github.com/resolvekit/resolvekit/internal/schema"
)

// collectedFieldMap preserves response-name order from the original query so
// assembly follows declaration order.
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

func newCollectedFieldMap() *collectedFieldMap {
	return &collectedFieldMap{index: make(map[string]int)}
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if idx, ok := cfm.index[responseName]; ok {
		cfm.fields[idx].Fields = append(cfm.fields[idx].Fields, field)
		return
	}
	cfm.index[responseName] = len(cfm.fields)
	cfm.fields = append(cfm.fields, collectedField{
		ResponseName: responseName,
		Fields:       []*language.Field{field},
	})
}

func (cfm *collectedFieldMap) orderedFields() []collectedField {
	return cfm.fields
}

// collectFields groups a selection set by response name, resolving fragments
// and @skip/@include.
func collectFields(st *executionState, objectType *schema.Type, selectionSet language.SelectionSet) *collectedFieldMap {
	grouped := newCollectedFieldMap()
	collectFieldsImpl(st, objectType, selectionSet, grouped, map[string]bool{})
	return grouped
}

func collectFieldsImpl(
	st *executionState,
	objectType *schema.Type,
	selectionSet language.SelectionSet,
	grouped *collectedFieldMap,
	visitedFragments map[string]bool,
) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(st, sel.Directives) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			grouped.add(responseName, sel)

		case *language.InlineFragment:
			if !shouldIncludeNode(st, sel.Directives) {
				continue
			}
			if !fragmentApplies(st, sel.TypeCondition, objectType) {
				continue
			}
			collectFieldsImpl(st, objectType, sel.SelectionSet, grouped, visitedFragments)

		case *language.FragmentSpread:
			if !shouldIncludeNode(st, sel.Directives) {
				continue
			}
			if visitedFragments[sel.Name] {
				continue
			}
			visitedFragments[sel.Name] = true

			def := st.document.Fragments.ForName(sel.Name)
			if def == nil {
				continue
			}
			if !fragmentApplies(st, def.TypeCondition, objectType) {
				continue
			}
			collectFieldsImpl(st, objectType, def.SelectionSet, grouped, visitedFragments)
		}
	}
}

// fragmentApplies reports whether a type condition matches the concrete
// object type, directly or through an interface/union it belongs to.
func fragmentApplies(st *executionState, condition string, objectType *schema.Type) bool {
	if condition == "" || condition == objectType.Name {
		return true
	}
	for _, iface := range objectType.Interfaces {
		if iface == condition {
			return true
		}
	}
	if cond := st.schema.Types[condition]; cond != nil {
		for _, possible := range cond.PossibleTypes {
			if possible == objectType.Name {
				return true
			}
		}
	}
	return false
}

// shouldIncludeNode applies @skip and @include.
func shouldIncludeNode(st *executionState, directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := directiveArgument(st, skip, "if").(bool); ok && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := directiveArgument(st, include, "if").(bool); ok && !v {
			return false
		}
	}
	return true
}

func directiveArgument(st *executionState, directive *language.Directive, name string) any {
	for _, arg := range directive.Arguments {
		if arg.Name == name {
			return valueFromASTWithVars(arg.Value, st.variables)
		}
	}
	return nil
}

// mergeSelectionSets concatenates the subselections of one field group.
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// collectProjectedNames predicts the field names a projected resolver's
// subselections would visit, down to maxDepth levels.
func (st *executionState) collectProjectedNames(fieldType *schema.TypeRef, fields []*language.Field, maxDepth int) []projector.ProjectedName {
	if maxDepth <= 0 {
		return nil
	}
	named := st.schema.Types[schema.GetNamedType(fieldType)]
	if named == nil || (named.Kind != schema.TypeKindObject && named.Kind != schema.TypeKindInterface) {
		return nil
	}
	grouped := collectFields(st, named, mergeSelectionSets(fields))

	var names []projector.ProjectedName
	for _, cf := range grouped.orderedFields() {
		fieldName := cf.Fields[0].Name
		if fieldName == "__typename" {
			continue
		}
		def := named.Field(fieldName)
		if def == nil {
			continue
		}
		names = append(names, projector.ProjectedName{
			Name:     fieldName,
			Children: st.collectProjectedNames(def.Type, cf.Fields, maxDepth-1),
		})
	}
	return names
}
