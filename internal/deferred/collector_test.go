package deferred

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stubToken struct{ Key string }

func (stubToken) IsDeferred() {}

// stubResolver resolves each stubToken through fn, optionally reordering or
// truncating the returned slice to exercise the positional contract.
type stubResolver struct {
	fn      func(tok stubToken) Result
	mangle  func([]Result) []Result
	calls   int
	batches [][]Deferred
}

func (r *stubResolver) Resolve(ctx context.Context, tokens []Deferred, opCtx any) []Result {
	r.calls++
	r.batches = append(r.batches, tokens)
	out := make([]Result, len(tokens))
	for i, tok := range tokens {
		out[i] = r.fn(tok.(stubToken))
	}
	if r.mangle != nil {
		out = r.mangle(out)
	}
	return out
}

func collect(t *testing.T, c *Collector, tokens ...Deferred) []Result {
	t.Helper()
	results := make([]Result, len(tokens))
	for i, tok := range tokens {
		i := i
		c.Add(tok, func(res Result) { results[i] = res })
	}
	c.Flush(context.Background(), nil)
	return results
}

// Pattern: Positional contract
func TestCollector_ResultsArePositionalNotContentMatched(t *testing.T) {
	r := &stubResolver{
		fn: func(tok stubToken) Result { return Result{Value: "value-" + tok.Key} },
		mangle: func(rs []Result) []Result {
			for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
				rs[i], rs[j] = rs[j], rs[i]
			}
			return rs
		},
	}
	got := collect(t, NewCollector(r), stubToken{"a"}, stubToken{"b"}, stubToken{"c"})

	// a reversing resolver misassigns values, proving index correspondence
	want := []Result{{Value: "value-c"}, {Value: "value-b"}, {Value: "value-a"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestCollector_NoopResolverFailsEveryToken(t *testing.T) {
	got := collect(t, NewCollector(nil), stubToken{"a"}, stubToken{"b"})
	for i, res := range got {
		if !errors.Is(res.Err, ErrUnsupportedDefer) {
			t.Fatalf("result %d: want ErrUnsupportedDefer, got %v", i, res.Err)
		}
	}
}

func TestCollector_LengthMismatchFailsEveryBranch(t *testing.T) {
	r := &stubResolver{
		fn:     func(tok stubToken) Result { return Result{Value: tok.Key} },
		mangle: func(rs []Result) []Result { return rs[:1] },
	}
	got := collect(t, NewCollector(r), stubToken{"a"}, stubToken{"b"}, stubToken{"c"})
	for i, res := range got {
		if res.Err == nil {
			t.Fatalf("result %d: want mismatch failure, got %+v", i, res)
		}
	}
}

func TestCollector_FailureIsIsolatedToItsToken(t *testing.T) {
	boom := errors.New("boom")
	r := &stubResolver{fn: func(tok stubToken) Result {
		if tok.Key == "b" {
			return Result{Err: boom}
		}
		return Result{Value: tok.Key}
	}}
	got := collect(t, NewCollector(r), stubToken{"a"}, stubToken{"b"}, stubToken{"c"})

	want := []Result{{Value: "a"}, {Err: boom}, {Value: "c"}}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b error) bool { return errors.Is(a, b) || errors.Is(b, a) || a == b })); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestCollector_OneFlushPerWave(t *testing.T) {
	r := &stubResolver{fn: func(tok stubToken) Result { return Result{Value: tok.Key} }}
	c := NewCollector(r)

	collect(t, c, stubToken{"a"}, stubToken{"b"})
	collect(t, c, stubToken{"c"})

	if r.calls != 2 {
		t.Fatalf("want 2 batch calls, got %d", r.calls)
	}
	if len(r.batches[0]) != 2 || len(r.batches[1]) != 1 {
		t.Fatalf("unexpected batch sizes: %d, %d", len(r.batches[0]), len(r.batches[1]))
	}
}

func TestCollector_MappingChainIsLazyAndOrdered(t *testing.T) {
	applied := false
	d := Map(Map(stubToken{"x"}, func(v any) (any, error) {
		applied = true
		return v.(string) + "+inner", nil
	}), func(v any) (any, error) {
		return v.(string) + "+outer", nil
	})

	if applied {
		t.Fatal("composing Map must not trigger resolution")
	}

	r := &stubResolver{fn: func(tok stubToken) Result {
		// the resolver must see the real placeholder, not a Mapping
		return Result{Value: tok.Key}
	}}
	c := NewCollector(r)
	var got Result
	c.Add(d, func(res Result) { got = res })

	if applied {
		t.Fatal("Add must not trigger resolution")
	}
	c.Flush(context.Background(), nil)

	if got.Err != nil {
		t.Fatalf("unexpected error: %v", got.Err)
	}
	if got.Value != "x+inner+outer" {
		t.Fatalf("transforms misordered: %v", got.Value)
	}
	if _, isMapping := r.batches[0][0].(Mapping); isMapping {
		t.Fatal("mapping chain must be flattened before submission")
	}
}

func TestCollector_TransformFailureConvertsToError(t *testing.T) {
	d := Map(stubToken{"x"}, func(v any) (any, error) {
		return nil, fmt.Errorf("no good")
	})
	r := &stubResolver{fn: func(tok stubToken) Result { return Result{Value: tok.Key} }}
	got := collect(t, NewCollector(r), d)
	if got[0].Err == nil || got[0].Err.Error() != "no good" {
		t.Fatalf("want transform error, got %+v", got[0])
	}
}

func TestCollector_TransformPanicConvertsToError(t *testing.T) {
	d := Map(stubToken{"x"}, func(v any) (any, error) {
		panic("kaboom")
	})
	r := &stubResolver{fn: func(tok stubToken) Result { return Result{Value: tok.Key} }}
	got := collect(t, NewCollector(r), d)
	if got[0].Err == nil {
		t.Fatal("want panic converted to error")
	}
}
