package grpcdefer

import (
	"time"

	"google.golang.org/grpc"
)

// Options configures the gRPC-backed deferred resolver.
//
// Defaults:
// - MaxConnsPerEndpoint: 2
// - RPCTimeout:          3s (used only if the incoming context has no deadline)
// - DialOptions:         insecure credentials with default backoff
// - ServiceName:         "resolvekit.loader.v1.LoaderService"
//
// A loader without an entry in Endpoints uses DefaultEndpoint; a loader with
// neither fails its placeholders with ErrNoEndpoint.
type Options struct {
	DefaultEndpoint string
	Endpoints       map[string]string // per-loader endpoint override

	ServiceName         string
	MaxConnsPerEndpoint int
	RPCTimeout          time.Duration

	DialOptions []grpc.DialOption
}

// Option mutates Options; use the WithX helpers.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Endpoints:           map[string]string{},
		ServiceName:         "resolvekit.loader.v1.LoaderService",
		MaxConnsPerEndpoint: 2,
		RPCTimeout:          3 * time.Second,
	}
}

func WithDefaultEndpoint(endpoint string) Option {
	return func(o *Options) { o.DefaultEndpoint = endpoint }
}

func WithLoaderEndpoint(loader, endpoint string) Option {
	return func(o *Options) { o.Endpoints[loader] = endpoint }
}

func WithServiceName(name string) Option {
	return func(o *Options) { o.ServiceName = name }
}

func WithMaxConnsPerEndpoint(n int) Option {
	return func(o *Options) { o.MaxConnsPerEndpoint = n }
}

func WithRPCTimeout(d time.Duration) Option {
	return func(o *Options) { o.RPCTimeout = d }
}

func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *Options) { o.DialOptions = opts }
}
