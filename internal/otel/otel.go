// Package otel wires OpenTelemetry tracing to the execution lifecycle via
// eventbus subscribers: one span per execution, one per deferred batch, one
// per remote loader call, with internal errors recorded on the execution span.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	eventbus "github.com/resolvekit/resolvekit/internal/eventbus"
	events "github.com/resolvekit/resolvekit/internal/events"
	reqid "github.com/resolvekit/resolvekit/internal/reqid"
)

// Setup configures the OTLP/gRPC exporter and attaches the eventbus
// subscribers. If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("resolvekit")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer     trace.Tracer
	execSpans  sync.Map // execution id -> trace.Span
	batchSpans sync.Map // execution id -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.ExecutionStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "resolvekit.execute")
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.String("graphql.operation.type", e.OperationType),
		)
		s.execSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.ExecutionFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.execSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("graphql.errors.count", e.ErrorCount))
		if e.ErrorCount > 0 {
			span.SetStatus(codes.Error, "execution finished with errors")
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.DeferBatchStart) {
		rid, _ := reqid.FromContext(ctx)
		parent := ctx
		if v, ok := s.execSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "resolvekit.defer_batch")
		span.SetAttributes(
			attribute.Int("defer.wave", e.Wave),
			attribute.Int("defer.size", e.Size),
		)
		s.batchSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.DeferBatchFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.batchSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("defer.failed", e.Failed))
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.LoaderCallFinish) {
		rid, _ := reqid.FromContext(ctx)
		parent := ctx
		if v, ok := s.batchSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "resolvekit.loader_call")
		span.SetAttributes(
			attribute.String("loader.name", e.Loader),
			attribute.String("loader.target", e.Target),
			attribute.Int("loader.keys", e.Keys),
			attribute.String("rpc.grpc.status_code", e.Code.String()),
		)
		if e.Err != nil {
			span.SetStatus(codes.Error, e.Err.Error())
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.InternalError) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.execSpans.Load(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.RecordError(e.Err, trace.WithAttributes(attribute.String("graphql.path", e.Path)))
	})
}
