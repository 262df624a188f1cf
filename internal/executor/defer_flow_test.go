package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	action "github.com/resolvekit/resolvekit/internal/action"
	deferred "github.com/resolvekit/resolvekit/internal/deferred"
	schema "github.com/resolvekit/resolvekit/internal/schema"
)

func TestDeferred_SiblingsShareOneBatch(t *testing.T) {
	sdl := `type Query { a: String b: String }`
	bind := schema.Bind{Resolvers: map[string]schema.Resolver{
		"Query.a": func(p schema.ResolveParams) any { return loadKey{Loader: "user", Key: "1"} },
		"Query.b": func(p schema.ResolveParams) any { return loadKey{Loader: "user", Key: "2"} },
	}}
	r := &batchResolver{fn: func(d deferred.Deferred) deferred.Result {
		return deferred.Result{Value: "v:" + d.(loadKey).Key}
	}}
	e := New(buildTestSchema(t, sdl, bind), WithDeferredResolver(r))

	env := run(t, e, `{ a b }`, nil, nil, nil)

	want := map[string]any{"a": "v:1", "b": "v:2"}
	if diff := cmp.Diff(want, dataOf(t, env)); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2}, r.batchSizes()); diff != "" {
		t.Fatalf("batch sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestDeferred_FutureTokenJoinsTheSameWave(t *testing.T) {
	sdl := `type Query { a: String b: String }`
	bind := schema.Bind{Resolvers: map[string]schema.Resolver{
		"Query.a": func(p schema.ResolveParams) any { return loadKey{Loader: "user", Key: "1"} },
		"Query.b": func(p schema.ResolveParams) any {
			return action.FutureDeferredValue{Await: func(ctx context.Context) (any, error) {
				return loadKey{Loader: "user", Key: "2"}, nil
			}}
		},
	}}
	r := &batchResolver{fn: func(d deferred.Deferred) deferred.Result {
		return deferred.Result{Value: "v:" + d.(loadKey).Key}
	}}
	e := New(buildTestSchema(t, sdl, bind), WithDeferredResolver(r))

	env := run(t, e, `{ a b }`, nil, nil, nil)

	want := map[string]any{"a": "v:1", "b": "v:2"}
	if diff := cmp.Diff(want, dataOf(t, env)); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2}, r.batchSizes()); diff != "" {
		t.Fatalf("late token split into its own batch (-want +got):\n%s", diff)
	}
}

func TestDeferred_NestedPlaceholdersTakeSuccessiveWaves(t *testing.T) {
	sdl := `
type Query { user: User }
type User { name: String }
`
	bind := schema.Bind{Resolvers: map[string]schema.Resolver{
		"Query.user": func(p schema.ResolveParams) any { return loadKey{Loader: "user", Key: "1"} },
	}}
	r := &batchResolver{fn: func(d deferred.Deferred) deferred.Result {
		switch k := d.(loadKey); k.Loader {
		case "user":
			// the loaded object defers its own field
			return deferred.Result{Value: map[string]any{"name": loadKey{Loader: "name", Key: k.Key}}}
		case "name":
			return deferred.Result{Value: "Zed"}
		default:
			return deferred.Result{Err: fmt.Errorf("unknown loader %q", k.Loader)}
		}
	}}
	e := New(buildTestSchema(t, sdl, bind), WithDeferredResolver(r))

	env := run(t, e, `{ user { name } }`, nil, nil, nil)

	want := map[string]any{"user": map[string]any{"name": "Zed"}}
	if diff := cmp.Diff(want, dataOf(t, env)); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 1}, r.batchSizes()); diff != "" {
		t.Fatalf("wave count mismatch (-want +got):\n%s", diff)
	}
}

func TestDeferred_MappedPlaceholderAppliesTransformAfterBatch(t *testing.T) {
	sdl := `type Query { a: String }`
	bind := schema.Bind{Resolvers: map[string]schema.Resolver{
		"Query.a": func(p schema.ResolveParams) any {
			return action.Map(action.DeferredValue{D: loadKey{Loader: "user", Key: "1"}}, func(v any) (any, error) {
				return v.(string) + "!", nil
			})
		},
	}}
	r := &batchResolver{fn: func(d deferred.Deferred) deferred.Result {
		if _, isMapping := d.(deferred.Mapping); isMapping {
			return deferred.Result{Err: errors.New("resolver must never see a mapping chain")}
		}
		return deferred.Result{Value: "v:" + d.(loadKey).Key}
	}}
	e := New(buildTestSchema(t, sdl, bind), WithDeferredResolver(r))

	env := run(t, e, `{ a }`, nil, nil, nil)

	want := map[string]any{"a": "v:1!"}
	if diff := cmp.Diff(want, dataOf(t, env)); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestDeferred_PerTokenFailureIsIsolated(t *testing.T) {
	sdl := `type Query { a: String b: String }`
	bind := schema.Bind{Resolvers: map[string]schema.Resolver{
		"Query.a": func(p schema.ResolveParams) any { return loadKey{Loader: "user", Key: "1"} },
		"Query.b": func(p schema.ResolveParams) any { return loadKey{Loader: "user", Key: "2"} },
	}}
	r := &batchResolver{fn: func(d deferred.Deferred) deferred.Result {
		if d.(loadKey).Key == "2" {
			return deferred.Result{Err: errors.New("row missing")}
		}
		return deferred.Result{Value: "v:1"}
	}}
	e := New(buildTestSchema(t, sdl, bind), WithDeferredResolver(r))

	env := run(t, e, `{ a b }`, nil, nil, nil)

	want := map[string]any{"a": "v:1", "b": nil}
	if diff := cmp.Diff(want, dataOf(t, env)); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if len(errorsOf(env)) != 1 {
		t.Fatalf("errors = %v", errorsOf(env))
	}
}

func TestDeferred_WithoutResolverEveryPlaceholderFails(t *testing.T) {
	sdl := `type Query { a: String }`
	bind := schema.Bind{Resolvers: map[string]schema.Resolver{
		"Query.a": func(p schema.ResolveParams) any { return loadKey{Loader: "user", Key: "1"} },
	}}
	e := New(buildTestSchema(t, sdl, bind))

	env := run(t, e, `{ a }`, nil, nil, nil)

	want := map[string]any{"a": nil}
	if diff := cmp.Diff(want, dataOf(t, env)); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if len(errorsOf(env)) != 1 {
		t.Fatalf("errors = %v", errorsOf(env))
	}
}

func TestDeferred_OpCtxReachesTheResolver(t *testing.T) {
	sdl := `type Query { a: String }`
	bind := schema.Bind{Resolvers: map[string]schema.Resolver{
		"Query.a": func(p schema.ResolveParams) any { return loadKey{Loader: "user", Key: "1"} },
	}}
	var seen any
	r := recordingOpCtxResolver{seen: &seen}
	e := New(buildTestSchema(t, sdl, bind), WithDeferredResolver(r))

	run(t, e, `{ a }`, nil, nil, "op-ctx-7")

	if seen != "op-ctx-7" {
		t.Fatalf("opCtx = %v", seen)
	}
}

type recordingOpCtxResolver struct{ seen *any }

func (r recordingOpCtxResolver) Resolve(ctx context.Context, tokens []deferred.Deferred, opCtx any) []deferred.Result {
	*r.seen = opCtx
	out := make([]deferred.Result, len(tokens))
	for i := range tokens {
		out[i] = deferred.Result{Value: "x"}
	}
	return out
}
