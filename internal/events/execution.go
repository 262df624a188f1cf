// Package events defines the lifecycle events emitted during query execution.
package events

import "time"

// ExecutionStart is emitted before an operation begins resolving.
type ExecutionStart struct {
	OperationName string
	OperationType string
}

// ExecutionFinish is emitted after an operation's result is assembled.
type ExecutionFinish struct {
	OperationName string
	OperationType string
	ErrorCount    int
	Duration      time.Duration
}

// DeferBatchStart is emitted before one wave's deferred placeholders are
// handed to the resolver.
type DeferBatchStart struct {
	Wave int
	Size int
}

// DeferBatchFinish is emitted after a wave's batch call returns.
type DeferBatchFinish struct {
	Wave     int
	Size     int
	Failed   int
	Duration time.Duration
}

// InternalError carries an unclassified failure whose detail must never reach
// the response envelope; subscribers log or trace it instead.
type InternalError struct {
	Err  error
	Path string
}
