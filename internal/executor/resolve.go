package executor

import (
	"fmt"
	"reflect"

	"github.com/vektah/gqlparser/v2/ast"

	action "github.com/resolvekit/resolvekit/internal/action"
	deferred "github.com/resolvekit/resolvekit/internal/deferred"
	language "github.com/resolvekit/resolvekit/internal/language"
	path "github.com/resolvekit/resolvekit/internal/path"
	schema "github.com/resolvekit/resolvekit/internal/schema"
)

// executeSelectionSet expands one object's selections. Synchronous branches
// complete inline; suspended branches leave a pendingValue that their wave
// completion overwrites. A nil return means a non-null child nulled this
// object, cascading toward the nearest nullable ancestor.
func (st *executionState) executeSelectionSet(
	objectType *schema.Type,
	selectionSet language.SelectionSet,
	source any,
	p path.Path,
	anchor path.Path,
	opCtx any,
) *omap {
	grouped := collectFields(st, objectType, selectionSet)
	resultMap := newOmap()
	nulled := false

	for _, cf := range grouped.orderedFields() {
		fields := cf.Fields
		fieldPath := p.AppendName(cf.ResponseName)

		if fields[0].Name == "__typename" {
			resultMap.set(cf.ResponseName, objectType.Name)
			continue
		}

		fieldDef := objectType.Field(fields[0].Name)
		if fieldDef == nil {
			st.reg.AddMessage(fieldPath, fmt.Sprintf("Cannot query field '%s' on type '%s'", fields[0].Name, objectType.Name))
			continue
		}

		completed := st.executeField(objectType, source, fieldDef, fields, fieldPath, anchor, opCtx)

		if _, pending := completed.(pendingValue); pending {
			resultMap.set(cf.ResponseName, pendingValue{})
			continue
		}
		if schema.IsNonNull(fieldDef.Type) && isNullish(completed) {
			if p.IsRoot() {
				// the document root is the nearest nullable ancestor
				st.markNullified(path.Root)
				continue
			}
			// cascade upward; remaining siblings still run for their errors
			nulled = true
			continue
		}
		if isNullish(completed) {
			resultMap.set(cf.ResponseName, nil)
		} else {
			resultMap.set(cf.ResponseName, completed)
		}
	}

	if nulled {
		return nil
	}
	return resultMap
}

// executeField invokes the field's resolver (projected or ordinary), coerces
// its raw output into an action and interprets the variant.
func (st *executionState) executeField(
	objectType *schema.Type,
	source any,
	fieldDef *schema.Field,
	fields []*language.Field,
	fieldPath path.Path,
	anchor path.Path,
	opCtx any,
) any {
	args := coerceArgumentValues(fieldDef, fields[0].Arguments, st, fieldPath)
	params := schema.ResolveParams{
		Ctx:    st.ctx,
		Source: source,
		Args:   args,
		OpCtx:  opCtx,
		Path:   fieldPath,
	}

	// this field's own nullable slot, for non-null bubbling below it
	fieldAnchor := anchor
	if !schema.IsNonNull(fieldDef.Type) {
		fieldAnchor = fieldPath
	}

	raw := st.invokeResolver(fieldDef, fields, params)
	act := action.Coerce(raw)

	var leaf action.Leaf
	var nextCtx func(any) any
	switch a := act.(type) {
	case action.UpdateCtx:
		leaf = a.Action
		nextCtx = a.NextCtx
	case action.Leaf:
		leaf = a
	}

	task := futureTask{
		def:     fieldDef,
		fields:  fields,
		path:    fieldPath,
		anchor:  fieldAnchor,
		opCtx:   opCtx,
		nextCtx: nextCtx,
	}

	switch a := leaf.(type) {
	case action.Value:
		return st.finishField(task, a.V, nil)
	case action.TryValue:
		return st.finishField(task, a.V, a.Err)
	case action.PartialValue:
		st.reg.AddBatch(st.ctx, fieldPath, a.Errs, nil)
		return st.finishField(task, a.V, nil)
	case action.FutureValue:
		task.kind = futurePlain
		task.await = a.Await
		st.futures = append(st.futures, task)
		return pendingValue{}
	case action.PartialFutureValue:
		task.kind = futurePartial
		task.await = a.Await
		st.futures = append(st.futures, task)
		return pendingValue{}
	case action.FutureDeferredValue:
		task.kind = futureDeferred
		task.await = a.Await
		st.futures = append(st.futures, task)
		return pendingValue{}
	case action.DeferredValue:
		st.registerDeferred(task, a.D)
		return pendingValue{}
	default:
		st.reg.AddError(st.ctx, fieldPath, &action.InvariantError{Msg: fmt.Sprintf("resolver produced unknown action %T", act)}, fieldPos(fields))
		return nil
	}
}

// invokeResolver runs the projected or ordinary resolver with panic recovery;
// a panicking resolver yields a failure, never an aborted execution.
func (st *executionState) invokeResolver(fieldDef *schema.Field, fields []*language.Field, params schema.ResolveParams) (raw any) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				raw = fmt.Errorf("resolver panic: %w", err)
			} else {
				raw = fmt.Errorf("resolver panic: %v", r)
			}
		}
	}()
	switch {
	case fieldDef.Project != nil && params.Path.Len() <= st.exec.opts.maxProjectionDepth:
		names := st.collectProjectedNames(fieldDef.Type, fields, st.exec.opts.maxProjectionDepth)
		return fieldDef.Project(params, names)
	case fieldDef.Resolve != nil:
		return fieldDef.Resolve(params)
	default:
		return defaultResolve(params.Source, fieldDef.Name)
	}
}

// registerDeferred queues one placeholder with the wave collector. The
// completion runs when the wave's batch settles.
func (st *executionState) registerDeferred(task futureTask, token deferred.Deferred) {
	st.collector.Add(token, func(res deferred.Result) {
		st.completeSettled(task, res.Value, res.Err)
	})
}

// completeSuspended routes one settled future by kind.
func (st *executionState) completeSuspended(task futureTask, value any, err error) {
	switch task.kind {
	case futurePartial:
		if err == nil {
			pv, ok := value.(action.PartialValue)
			if !ok {
				err = &action.InvariantError{Msg: fmt.Sprintf("partial future settled as %T instead of PartialValue", value)}
			} else {
				st.reg.AddBatch(st.ctx, task.path, pv.Errs, nil)
				value = pv.V
			}
		}
		st.completeSettled(task, value, err)
	case futureDeferred:
		if err != nil {
			st.completeSettled(task, nil, err)
			return
		}
		token, ok := value.(deferred.Deferred)
		if !ok {
			st.completeSettled(task, nil, &action.InvariantError{Msg: fmt.Sprintf("future deferred settled as %T instead of a placeholder", value)})
			return
		}
		// joins the current wave's batch: futures settle before the flush
		st.registerDeferred(task, token)
	default:
		st.completeSettled(task, value, err)
	}
}

// completeSettled finishes one suspended branch: errors are always recorded;
// writes are suppressed under tombstoned prefixes so an already-decided null
// is never overridden.
func (st *executionState) completeSettled(task futureTask, value any, err error) {
	if err != nil {
		st.reg.AddError(st.ctx, task.path, err, fieldPos(task.fields))
		if st.isNullified(task.path) {
			return
		}
		if schema.IsNonNull(task.def.Type) {
			st.nullify(task.anchor)
			return
		}
		st.writeAt(task.path, nil)
		return
	}

	childCtx := task.opCtx
	if task.nextCtx != nil {
		childCtx = task.nextCtx(value)
	}
	completed := st.completeValue(task.def.Type, task.fields, value, task.path, task.anchor, childCtx)

	if st.isNullified(task.path) {
		return
	}
	if schema.IsNonNull(task.def.Type) && isNullish(completed) {
		st.nullify(task.anchor)
		return
	}
	if isNullish(completed) {
		st.writeAt(task.path, nil)
	} else {
		st.writeAt(task.path, completed)
	}
}

// finishField completes a synchronously settled field outcome.
func (st *executionState) finishField(task futureTask, value any, err error) any {
	if err != nil {
		st.reg.AddError(st.ctx, task.path, err, fieldPos(task.fields))
		return nil
	}
	childCtx := task.opCtx
	if task.nextCtx != nil {
		childCtx = task.nextCtx(value)
	}
	return st.completeValue(task.def.Type, task.fields, value, task.path, task.anchor, childCtx)
}

// completeValue completes a resolved value against its declared type.
func (st *executionState) completeValue(
	fieldType *schema.TypeRef,
	fields []*language.Field,
	value any,
	p path.Path,
	anchor path.Path,
	opCtx any,
) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(value) {
			if !st.hasErrorAtPath(p) {
				st.reg.AddMessage(p, fmt.Sprintf("Cannot return null for non-nullable field %s", p))
			}
			return nil
		}
		return st.completeValue(schema.Unwrap(fieldType), fields, value, p, anchor, opCtx)
	}

	if isNullish(value) {
		return nil
	}

	if schema.IsList(fieldType) {
		return st.completeListValue(fieldType, fields, value, p, anchor, opCtx)
	}

	namedType := schema.GetNamedType(fieldType)
	typeDef := st.schema.Types[namedType]
	if typeDef == nil {
		st.reg.AddMessage(p, fmt.Sprintf("Unknown type: %s", namedType))
		return nil
	}

	switch typeDef.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := serializeLeaf(typeDef, value)
		if err != nil {
			st.reg.AddError(st.ctx, p, err, fieldPos(fields))
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return st.completeObjectValue(typeDef, fields, value, p, anchor, opCtx)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return st.completeAbstractValue(typeDef, fields, value, p, anchor, opCtx)
	default:
		st.reg.AddMessage(p, fmt.Sprintf("Cannot complete value of unexpected type kind: %s", typeDef.Kind))
		return nil
	}
}

func (st *executionState) completeListValue(
	listType *schema.TypeRef,
	fields []*language.Field,
	value any,
	p path.Path,
	anchor path.Path,
	opCtx any,
) any {
	items, ok := asSlice(value)
	if !ok {
		st.reg.AddMessage(p, fmt.Sprintf("Expected list value, got %T", value))
		return nil
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		ip := p.AppendIndex(i)
		elemAnchor := anchor
		if !schema.IsNonNull(inner) {
			elemAnchor = ip
		}
		v := st.completeValue(inner, fields, item, ip, elemAnchor, opCtx)
		if schema.IsNonNull(inner) && isNullish(v) {
			// a non-null element nulls the whole list value
			return nil
		}
		if isNullish(v) {
			completed[i] = nil
		} else {
			completed[i] = v
		}
	}
	return completed
}

func (st *executionState) completeObjectValue(
	objectType *schema.Type,
	fields []*language.Field,
	value any,
	p path.Path,
	anchor path.Path,
	opCtx any,
) any {
	sub := mergeSelectionSets(fields)
	obj := st.executeSelectionSet(objectType, sub, value, p, anchor, opCtx)
	if obj == nil {
		return nil
	}
	return obj
}

func (st *executionState) completeAbstractValue(
	abstractType *schema.Type,
	fields []*language.Field,
	value any,
	p path.Path,
	anchor path.Path,
	opCtx any,
) any {
	if abstractType.ResolveType == nil {
		st.reg.AddMessage(p, fmt.Sprintf("Abstract type %s has no type resolver", abstractType.Name))
		return nil
	}
	typeName, err := abstractType.ResolveType(st.ctx, value)
	if err != nil {
		st.reg.AddError(st.ctx, p, err, fieldPos(fields))
		return nil
	}
	objectType := st.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		st.reg.AddMessage(p, fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractType.Name, typeName))
		return nil
	}
	return st.completeObjectValue(objectType, fields, value, p, anchor, opCtx)
}

// nullify nulls the nearest nullable slot and tombstones its subtree.
func (st *executionState) nullify(anchor path.Path) {
	if anchor.IsRoot() {
		st.markNullified(path.Root)
		return
	}
	st.writeAt(anchor, nil)
	st.markNullified(anchor)
}

func (st *executionState) hasErrorAtPath(p path.Path) bool {
	want := p.ToAST()
	for _, e := range st.reg.Nodes() {
		if reflect.DeepEqual(e.Path, want) {
			return true
		}
	}
	return false
}

// serializeLeaf coerces a scalar or enum value into a JSON-safe Go value.
func serializeLeaf(typeDef *schema.Type, value any) (any, error) {
	if typeDef.Kind == schema.TypeKindEnum {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("enum %s value must be a string, got %T", typeDef.Name, value)
		}
		if len(typeDef.EnumValues) > 0 {
			for _, ev := range typeDef.EnumValues {
				if ev == s {
					return s, nil
				}
			}
			return nil, fmt.Errorf("value %q is not a member of enum %s", s, typeDef.Name)
		}
		return s, nil
	}
	switch typeDef.Name {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	default:
		// custom scalars pass through as-is
		return value, nil
	}
}

// defaultResolve is the fallback for fields without a bound resolver:
// a map lookup or an exported struct field of the same name.
func defaultResolve(source any, fieldName string) any {
	switch s := source.(type) {
	case nil:
		return nil
	case map[string]any:
		return s[fieldName]
	}
	rv := reflect.ValueOf(source)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		f := rv.FieldByNameFunc(func(n string) bool { return equalFold(n, fieldName) })
		if f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	}
	return nil
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func fieldPos(fields []*language.Field) *ast.Position {
	if len(fields) == 0 {
		return nil
	}
	return fields[0].Position
}
