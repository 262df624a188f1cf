// Package grpcdefer implements the deferred-resolver capability over gRPC:
// each wave's placeholders are grouped by loader name and shipped to remote
// loader services as one batch RPC per loader, with results fanned back out
// positionally.
//
// The wire contract uses structpb payloads on a fixed method:
//
//	rpc ResolveBatch(google.protobuf.Struct) returns (google.protobuf.Struct)
//
// Request:  {"loader": string, "keys": [any, ...]}
// Response: {"results": [{"value": any} | {"error": string}, ...]}
//
// The response's results array must match the request's keys array
// index-for-index; a length mismatch fails every key of that loader.
package grpcdefer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	deferred "github.com/resolvekit/resolvekit/internal/deferred"
	eventbus "github.com/resolvekit/resolvekit/internal/eventbus"
	events "github.com/resolvekit/resolvekit/internal/events"
)

// Token is a placeholder resolvable by a remote loader service. Key must be
// a JSON-safe value (scalars, []any, map[string]any).
type Token struct {
	Loader string
	Key    any
}

func (Token) IsDeferred() {}

var (
	// ErrNoEndpoint indicates no endpoint is configured for a loader.
	ErrNoEndpoint = errors.New("grpcdefer: no endpoint configured for loader")

	errClosed = errors.New("grpcdefer: resolver closed")
)

// Resolver is a deferred.Resolver backed by pooled gRPC connections.
type Resolver struct {
	opts *Options

	mu     sync.RWMutex
	pools  map[string]*connPool // key: endpoint
	closed atomic.Bool
}

var _ deferred.Resolver = (*Resolver)(nil)

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if len(o.DialOptions) == 0 {
		o.DialOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig}),
		}
	}
	return &Resolver{opts: o, pools: make(map[string]*connPool)}
}

// Resolve groups tokens by loader, runs one batch RPC per loader
// concurrently, and returns per-token results in submission order. Failures
// are isolated: an unreachable loader fails only its own tokens.
func (r *Resolver) Resolve(ctx context.Context, tokens []deferred.Deferred, opCtx any) []deferred.Result {
	results := make([]deferred.Result, len(tokens))
	if r.closed.Load() {
		for i := range results {
			results[i] = deferred.Result{Err: errClosed}
		}
		return results
	}

	// group token indices by loader, preserving submission order within a group
	groups := make(map[string][]int)
	var order []string
	for i, tok := range tokens {
		t, ok := tok.(Token)
		if !ok {
			results[i] = deferred.Result{Err: fmt.Errorf("grpcdefer: unsupported placeholder %T", tok)}
			continue
		}
		if _, seen := groups[t.Loader]; !seen {
			order = append(order, t.Loader)
		}
		groups[t.Loader] = append(groups[t.Loader], i)
	}

	var wg sync.WaitGroup
	for _, loader := range order {
		indices := groups[loader]
		wg.Add(1)
		go func(loader string, indices []int) {
			defer wg.Done()
			r.resolveGroup(ctx, loader, indices, tokens, results)
		}(loader, indices)
	}
	wg.Wait()
	return results
}

// resolveGroup runs one loader's batch RPC and writes its slots of results.
func (r *Resolver) resolveGroup(ctx context.Context, loader string, indices []int, tokens []deferred.Deferred, results []deferred.Result) {
	fail := func(err error) {
		for _, i := range indices {
			results[i] = deferred.Result{Err: err}
		}
	}

	endpoint := r.opts.Endpoints[loader]
	if endpoint == "" {
		endpoint = r.opts.DefaultEndpoint
	}
	if endpoint == "" {
		fail(fmt.Errorf("%w: %s", ErrNoEndpoint, loader))
		return
	}

	keys := make([]any, len(indices))
	for n, i := range indices {
		keys[n] = tokens[i].(Token).Key
	}
	req, err := structpb.NewStruct(map[string]any{"loader": loader})
	if err != nil {
		fail(err)
		return
	}
	keyList, err := structpb.NewList(keys)
	if err != nil {
		fail(fmt.Errorf("grpcdefer: key not representable: %w", err))
		return
	}
	req.Fields["keys"] = structpb.NewListValue(keyList)

	if _, ok := ctx.Deadline(); !ok && r.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.RPCTimeout)
		defer cancel()
	}
	ctx = metadata.AppendToOutgoingContext(ctx, "x-resolvekit-loader", loader)

	cc, err := r.getConn(ctx, endpoint)
	if err != nil {
		fail(err)
		return
	}
	defer r.returnConn(endpoint, cc)

	method := fmt.Sprintf("/%s/ResolveBatch", r.opts.ServiceName)
	resp := &structpb.Struct{}

	eventbus.Publish(ctx, events.LoaderCallStart{Loader: loader, Target: endpoint, Keys: len(keys)})
	start := time.Now()
	err = cc.Invoke(ctx, method, req, resp)
	eventbus.Publish(ctx, events.LoaderCallFinish{
		Loader:   loader,
		Target:   endpoint,
		Keys:     len(keys),
		Code:     status.Code(err),
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		if st, ok := status.FromError(err); ok {
			fail(fmt.Errorf("grpcdefer: loader %s: %s: %s", loader, st.Code(), st.Message()))
		} else {
			fail(fmt.Errorf("grpcdefer: loader %s: %w", loader, err))
		}
		return
	}

	items := resp.Fields["results"].GetListValue().GetValues()
	if len(items) != len(indices) {
		fail(fmt.Errorf("grpcdefer: loader %s returned %d results for %d keys", loader, len(items), len(indices)))
		return
	}
	for n, i := range indices {
		entry := items[n].GetStructValue()
		if entry == nil {
			results[i] = deferred.Result{Err: fmt.Errorf("grpcdefer: loader %s returned malformed result at %d", loader, n)}
			continue
		}
		if errField, ok := entry.Fields["error"]; ok && errField.GetStringValue() != "" {
			results[i] = deferred.Result{Err: errors.New(errField.GetStringValue())}
			continue
		}
		results[i] = deferred.Result{Value: entry.Fields["value"].AsInterface()}
	}
}

// Close releases every pooled connection. Subsequent Resolve calls fail.
func (r *Resolver) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pools {
		p.close()
	}
	r.pools = map[string]*connPool{}
	return nil
}

// ---------------- connection pooling ----------------

type connPool struct {
	endpoint string
	opts     *Options
	max      int

	mu     sync.Mutex
	conns  []*grpc.ClientConn
	closed bool
}

func newConnPool(endpoint string, opts *Options) *connPool {
	n := opts.MaxConnsPerEndpoint
	if n <= 0 {
		n = 2
	}
	return &connPool{endpoint: endpoint, opts: opts, max: n}
}

func (p *connPool) get() (*grpc.ClientConn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errClosed
	}
	if n := len(p.conns); n > 0 {
		cc := p.conns[n-1]
		p.conns = p.conns[:n-1]
		p.mu.Unlock()
		return cc, nil
	}
	p.mu.Unlock()
	return grpc.NewClient(p.endpoint, p.opts.DialOptions...)
}

func (p *connPool) put(cc *grpc.ClientConn) {
	if cc == nil {
		return
	}
	p.mu.Lock()
	if p.closed || len(p.conns) >= p.max {
		p.mu.Unlock()
		_ = cc.Close()
		return
	}
	p.conns = append(p.conns, cc)
	p.mu.Unlock()
}

func (p *connPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()
	for _, cc := range conns {
		_ = cc.Close()
	}
}

func (r *Resolver) getConn(ctx context.Context, endpoint string) (*grpc.ClientConn, error) {
	r.mu.RLock()
	pool := r.pools[endpoint]
	r.mu.RUnlock()
	if pool == nil {
		r.mu.Lock()
		pool = r.pools[endpoint]
		if pool == nil {
			pool = newConnPool(endpoint, r.opts)
			r.pools[endpoint] = pool
		}
		r.mu.Unlock()
	}
	return pool.get()
}

func (r *Resolver) returnConn(endpoint string, cc *grpc.ClientConn) {
	r.mu.RLock()
	pool := r.pools[endpoint]
	r.mu.RUnlock()
	if pool != nil {
		pool.put(cc)
		return
	}
	_ = cc.Close()
}
