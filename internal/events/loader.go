package events

import (
	"time"

	"google.golang.org/grpc/codes"
)

// LoaderCallStart is emitted before a remote loader batch call.
type LoaderCallStart struct {
	Loader string
	Target string
	Keys   int
}

// LoaderCallFinish is emitted after a remote loader batch call completes.
type LoaderCallFinish struct {
	Loader   string
	Target   string
	Keys     int
	Code     codes.Code
	Err      error
	Duration time.Duration
}
