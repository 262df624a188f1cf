package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	deferred "github.com/resolvekit/resolvekit/internal/deferred"
	errfmt "github.com/resolvekit/resolvekit/internal/errfmt"
	eventbus "github.com/resolvekit/resolvekit/internal/eventbus"
	events "github.com/resolvekit/resolvekit/internal/events"
	language "github.com/resolvekit/resolvekit/internal/language"
	marshal "github.com/resolvekit/resolvekit/internal/marshal"
	path "github.com/resolvekit/resolvekit/internal/path"
	projector "github.com/resolvekit/resolvekit/internal/projector"
	reqid "github.com/resolvekit/resolvekit/internal/reqid"
	result "github.com/resolvekit/resolvekit/internal/result"
	schema "github.com/resolvekit/resolvekit/internal/schema"
)

// Executor evaluates operations against one schema. It is stateless across
// calls; every execution owns fresh registry and collector instances.
type Executor struct {
	schema *schema.Schema
	opts   options
}

type options struct {
	resolver           deferred.Resolver
	marshaler          marshal.Marshaler
	handler            errfmt.Handler
	maxProjectionDepth int
}

// Option configures an Executor.
type Option func(*options)

// WithDeferredResolver registers the batching capability for deferred
// placeholders. Without it, every placeholder fails with ErrUnsupportedDefer.
func WithDeferredResolver(r deferred.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithMarshaler sets the node-builder capability used for assembly.
func WithMarshaler(m marshal.Marshaler) Option {
	return func(o *options) { o.marshaler = m }
}

// WithExceptionHandler registers the handled tier of error classification.
func WithExceptionHandler(h errfmt.Handler) Option {
	return func(o *options) { o.handler = h }
}

// WithMaxProjectionDepth bounds how deep projected resolvers apply; fields
// below the bound use their ordinary resolver, and projected names are
// collected down to the same depth.
func WithMaxProjectionDepth(depth int) Option {
	return func(o *options) { o.maxProjectionDepth = depth }
}

// New creates an Executor for sch.
func New(sch *schema.Schema, opts ...Option) *Executor {
	o := options{
		resolver:           deferred.NoopResolver{},
		marshaler:          marshal.Raw{},
		maxProjectionDepth: projector.DefaultMaxDepth,
	}
	for _, f := range opts {
		f(&o)
	}
	return &Executor{schema: sch, opts: o}
}

// executionState holds the per-execution bookkeeping. It is owned by exactly
// one ExecuteRequest call; nothing here is shared across executions.
type executionState struct {
	exec      *Executor
	schema    *schema.Schema
	document  *language.QueryDocument
	variables map[string]any
	ctx       context.Context
	opCtx     any

	reg       *errfmt.Registry
	collector *deferred.Collector

	futures       []futureTask
	responseRoot  *omap
	rootNullified bool
	nullified     map[string]struct{}
	wave          int
}

// futureTask is one suspended branch awaiting settlement within a wave.
type futureTask struct {
	kind    futureKind
	await   func(context.Context) (any, error)
	def     *schema.Field
	fields  []*language.Field
	path    path.Path
	anchor  path.Path // nearest nullable slot for non-null bubbling
	opCtx   any
	nextCtx func(any) any
}

type futureKind int

const (
	futurePlain futureKind = iota
	futurePartial
	futureDeferred
)

// pendingValue marks a response slot whose branch is suspended; it is always
// overwritten before assembly.
type pendingValue struct{}

// ExecuteRequest evaluates one operation and returns the assembled envelope
// plus the execution's error registry. A setup failure (unknown operation,
// variable coercion) short-circuits to a fatal envelope.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	rootValue any,
	opCtx any,
) (marshal.Node, *errfmt.Registry) {
	m := e.opts.marshaler
	ctx, _ = reqid.NewContext(ctx)

	operation := getOperation(document, operationName)
	if operation == nil {
		err := &errfmt.UserError{Message: "operation not found"}
		return result.ResolveFatal(ctx, m, e.opts.handler, err)
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	default:
		err := &errfmt.UserError{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)}
		return result.ResolveFatal(ctx, m, e.opts.handler, err)
	}
	if rootType == nil {
		err := &errfmt.UserError{Message: fmt.Sprintf("root type not found for %s operation", operation.Operation)}
		return result.ResolveFatal(ctx, m, e.opts.handler, err)
	}

	variables, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return result.ResolveFatal(ctx, m, e.opts.handler, &errfmt.UserError{Message: err.Error()})
	}

	eventbus.Publish(ctx, events.ExecutionStart{
		OperationName: operation.Name,
		OperationType: string(operation.Operation),
	})
	start := time.Now()

	state := &executionState{
		exec:      e,
		schema:    e.schema,
		document:  document,
		variables: variables,
		ctx:       ctx,
		opCtx:     opCtx,
		reg:       errfmt.NewRegistry(m, e.opts.handler),
		collector: deferred.NewCollector(e.opts.resolver),
		nullified: make(map[string]struct{}),
	}

	state.responseRoot = state.executeSelectionSet(rootType, operation.SelectionSet, rootValue, path.Root, path.Root, opCtx)

	// Wave loop: settle this wave's futures, then flush the deferred batch
	// exactly once. Completions may enqueue the next wave.
	for len(state.futures) > 0 || state.collector.Pending() > 0 {
		state.wave++
		futures := state.futures
		state.futures = nil
		settled := awaitAll(ctx, futures)
		for i, fut := range futures {
			state.completeSuspended(fut, settled[i].value, settled[i].err)
		}
		state.collector.Flush(ctx, opCtx)
	}

	var dataNode marshal.Node
	if !state.rootNullified && state.responseRoot != nil {
		dataNode, err = toNode(m, state.responseRoot)
		if err != nil {
			state.reg.AddError(ctx, path.Root, err, nil)
			dataNode = nil
		}
	}
	envelope := result.Assemble(m, dataNode, state.reg)

	eventbus.Publish(ctx, events.ExecutionFinish{
		OperationName: operation.Name,
		OperationType: string(operation.Operation),
		ErrorCount:    state.reg.Len(),
		Duration:      time.Since(start),
	})
	return envelope, state.reg
}

type settledValue struct {
	value any
	err   error
}

// awaitAll settles every future concurrently and returns outcomes in
// registration order. A panicking thunk settles as a failure.
func awaitAll(ctx context.Context, futures []futureTask) []settledValue {
	out := make([]settledValue, len(futures))
	var wg sync.WaitGroup
	for i, fut := range futures {
		wg.Add(1)
		go func(i int, await func(context.Context) (any, error)) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					out[i] = settledValue{err: fmt.Errorf("async resolver panic: %v", r)}
				}
			}()
			v, err := await(ctx)
			out[i] = settledValue{value: v, err: err}
		}(i, fut.await)
	}
	wg.Wait()
	return out
}

// getOperation picks the requested operation, or the only one when unnamed.
func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(document.Operations) == 1 {
		return document.Operations[0]
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}

// Tombstone helpers: a nullified prefix blocks every write underneath it.

func (st *executionState) markNullified(p path.Path) {
	if p.IsRoot() {
		st.rootNullified = true
		return
	}
	st.nullified[p.Key()] = struct{}{}
}

func (st *executionState) isNullified(p path.Path) bool {
	if st.rootNullified {
		return true
	}
	if len(st.nullified) == 0 {
		return false
	}
	for n := 1; n <= p.Len(); n++ {
		if _, ok := st.nullified[p.Head(n).Key()]; ok {
			return true
		}
	}
	return false
}
