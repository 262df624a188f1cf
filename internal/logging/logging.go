// Package logging renders execution lifecycle events as structured log
// records. It is the default sink for the out-of-band internal-error channel:
// unclassified failures are logged here with full detail while the response
// envelope only ever carries the generic message.
package logging

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	eventbus "github.com/resolvekit/resolvekit/internal/eventbus"
	events "github.com/resolvekit/resolvekit/internal/events"
	reqid "github.com/resolvekit/resolvekit/internal/reqid"
)

// Setup subscribes a zerolog logger writing to w and returns an unsubscribe
// func detaching every handler.
func Setup(w io.Writer) func() {
	logger := zerolog.New(w).With().Timestamp().Logger()
	return SetupWithLogger(logger)
}

// SetupWithLogger subscribes an existing logger.
func SetupWithLogger(logger zerolog.Logger) func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.InternalError) {
			logger.Error().
				Str("execution_id", executionID(ctx)).
				Str("path", e.Path).
				Err(e.Err).
				Msg("internal resolver error")
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.ExecutionFinish) {
			logger.Info().
				Str("execution_id", executionID(ctx)).
				Str("operation", e.OperationName).
				Str("type", e.OperationType).
				Int("errors", e.ErrorCount).
				Dur("duration", e.Duration).
				Msg("execution finished")
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.DeferBatchFinish) {
			logger.Debug().
				Str("execution_id", executionID(ctx)).
				Int("wave", e.Wave).
				Int("size", e.Size).
				Int("failed", e.Failed).
				Dur("duration", e.Duration).
				Msg("deferred batch resolved")
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.LoaderCallFinish) {
			ev := logger.Debug()
			if e.Err != nil {
				ev = logger.Warn().Err(e.Err)
			}
			ev.Str("execution_id", executionID(ctx)).
				Str("loader", e.Loader).
				Str("target", e.Target).
				Int("keys", e.Keys).
				Str("code", e.Code.String()).
				Dur("duration", e.Duration).
				Msg("loader call finished")
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func executionID(ctx context.Context) string {
	id, _ := reqid.FromContext(ctx)
	return id
}
