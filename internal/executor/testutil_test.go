package executor

import (
	"context"
	"sync"
	"testing"

	deferred "github.com/resolvekit/resolvekit/internal/deferred"
	language "github.com/resolvekit/resolvekit/internal/language"
	schema "github.com/resolvekit/resolvekit/internal/schema"
)

func buildTestSchema(t *testing.T, sdl string, bind schema.Bind) *schema.Schema {
	t.Helper()
	s, err := schema.FromSDL("test.graphql", sdl, bind)
	if err != nil {
		t.Fatalf("FromSDL: %v", err)
	}
	return s
}

// run executes one operation and returns the raw envelope.
func run(t *testing.T, e *Executor, query string, vars map[string]any, root, opCtx any) map[string]any {
	t.Helper()
	doc, err := language.ParseQuery(query)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	envelope, _ := e.ExecuteRequest(context.Background(), doc, "", vars, root, opCtx)
	m, ok := envelope.(map[string]any)
	if !ok {
		t.Fatalf("envelope is %T, want map", envelope)
	}
	return m
}

func dataOf(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	d, present := env["data"]
	if !present {
		t.Fatal("data key missing from envelope")
	}
	if d == nil {
		return nil
	}
	return d.(map[string]any)
}

func errorsOf(env map[string]any) []map[string]any {
	raw, _ := env["errors"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		out = append(out, e.(map[string]any))
	}
	return out
}

func errorMessages(env map[string]any) []string {
	var out []string
	for _, e := range errorsOf(env) {
		out = append(out, e["message"].(string))
	}
	return out
}

// loadKey is the placeholder used by executor tests.
type loadKey struct {
	Loader string
	Key    string
}

func (loadKey) IsDeferred() {}

// batchResolver records every batch it receives and settles each placeholder
// through fn.
type batchResolver struct {
	mu      sync.Mutex
	batches [][]deferred.Deferred
	fn      func(d deferred.Deferred) deferred.Result
}

func (r *batchResolver) Resolve(ctx context.Context, tokens []deferred.Deferred, opCtx any) []deferred.Result {
	r.mu.Lock()
	r.batches = append(r.batches, append([]deferred.Deferred(nil), tokens...))
	r.mu.Unlock()

	out := make([]deferred.Result, len(tokens))
	for i, tok := range tokens {
		out[i] = r.fn(tok)
	}
	return out
}

func (r *batchResolver) batchSizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	sizes := make([]int, len(r.batches))
	for i, b := range r.batches {
		sizes[i] = len(b)
	}
	return sizes
}
