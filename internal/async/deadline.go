// Package async races blocking calls against a deadline and reports a tagged outcome.
package async

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status tags how a call settled.
type Status int

const (
	StatusOK Status = iota
	StatusTimedOut
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimedOut:
		return "timeout"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrTimedOut is carried in Outcome.Err when the deadline won the race.
var ErrTimedOut = errors.New("deadline exceeded before the call settled")

// Outcome is the settled result of a call. Value is only meaningful for StatusOK.
type Outcome[T any] struct {
	Value  T
	Status Status
	Err    error
}

// OK reports whether the call finished in time without error.
func (o Outcome[T]) OK() bool { return o.Status == StatusOK }

// WithDeadline runs fn and returns whichever settles first: fn or the timer.
// The context handed to fn is cancelled once the race is decided; a call that
// ignores it keeps running in the background and its result is dropped.
func WithDeadline[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) Outcome[T] {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type settled struct {
		value T
		err   error
	}
	// Buffered so a late sender never blocks after we stop listening.
	done := make(chan settled, 1)
	go func() {
		v, err := fn(callCtx)
		done <- settled{v, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s := <-done:
		if s.err != nil {
			return Outcome[T]{Status: StatusFailed, Err: s.err}
		}
		return Outcome[T]{Value: s.value, Status: StatusOK}
	case <-timer.C:
		return Outcome[T]{Status: StatusTimedOut, Err: ErrTimedOut}
	case <-ctx.Done():
		return Outcome[T]{Status: StatusFailed, Err: ctx.Err()}
	}
}
