package deferred

import (
	"context"
	"fmt"
	"time"

	eventbus "github.com/resolvekit/resolvekit/internal/eventbus"
	events "github.com/resolvekit/resolvekit/internal/events"
)

// Completion receives the settled outcome for one registered placeholder.
type Completion func(Result)

type registration struct {
	token      Deferred
	transforms []func(any) (any, error)
	done       Completion
}

// Collector accumulates the placeholders declared during one resolution wave
// and flushes them through the Resolver in a single batch call. A Collector is
// owned by exactly one execution; it is never shared.
type Collector struct {
	resolver Resolver
	pending  []registration
	wave     int
}

// NewCollector creates a Collector backed by r. A nil r falls back to the
// NoopResolver.
func NewCollector(r Resolver) *Collector {
	if r == nil {
		r = NoopResolver{}
	}
	return &Collector{resolver: r}
}

// Add registers a placeholder for the current wave. Mapping chains are
// flattened here so only real placeholders reach the resolver; the queued
// transforms are re-applied after the batch settles.
func (c *Collector) Add(token Deferred, done Completion) {
	root, transforms := Unwrap(token)
	c.pending = append(c.pending, registration{token: root, transforms: transforms, done: done})
}

// Pending returns the number of placeholders waiting for the next flush.
func (c *Collector) Pending() int { return len(c.pending) }

// Flush submits every pending placeholder in one Resolve call and fans the
// results back out positionally. It returns the batch size.
//
// A resolver returning the wrong number of results is a fatal defect of the
// resolver: every branch of the wave is failed. A per-token failure is
// isolated to its own completion.
func (c *Collector) Flush(ctx context.Context, opCtx any) int {
	if len(c.pending) == 0 {
		return 0
	}
	batch := c.pending
	c.pending = nil
	c.wave++

	tokens := make([]Deferred, len(batch))
	for i, reg := range batch {
		tokens[i] = reg.token
	}

	eventbus.Publish(ctx, events.DeferBatchStart{Wave: c.wave, Size: len(tokens)})
	start := time.Now()
	results := c.resolver.Resolve(ctx, tokens, opCtx)

	failed := 0
	if len(results) != len(tokens) {
		err := fmt.Errorf("deferred resolver returned %d results for %d placeholders", len(results), len(tokens))
		for _, reg := range batch {
			reg.done(Result{Err: err})
		}
		failed = len(batch)
	} else {
		for i, reg := range batch {
			res := settle(results[i], reg.transforms)
			if res.Err != nil {
				failed++
			}
			reg.done(res)
		}
	}
	eventbus.Publish(ctx, events.DeferBatchFinish{
		Wave:     c.wave,
		Size:     len(tokens),
		Failed:   failed,
		Duration: time.Since(start),
	})
	return len(tokens)
}

// settle applies the queued transforms in recorded order. A transform that
// fails or panics converts the placeholder's outcome to a failure.
func settle(res Result, transforms []func(any) (any, error)) (out Result) {
	if res.Err != nil {
		return res
	}
	out = res
	defer func() {
		if r := recover(); r != nil {
			out = Result{Err: fmt.Errorf("deferred transform panic: %v", r)}
		}
	}()
	for _, fn := range transforms {
		v, err := fn(out.Value)
		if err != nil {
			return Result{Err: err}
		}
		out = Result{Value: v}
	}
	return out
}
