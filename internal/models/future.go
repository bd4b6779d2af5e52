package models

import "context"

// Future resolves exactly once with the value sent on its input channel.
type Future[T any] struct {
	c      chan T
	cancel context.CancelFunc
}

// NewFuture wraps a result channel and the cancel function of the work
// feeding it. The channel must be buffered so resolving never blocks the
// sender.
func NewFuture[T any](c chan T, cancel context.CancelFunc) *Future[T] {
	return &Future[T]{c: c, cancel: cancel}
}

// C yields the result.
func (f *Future[T]) C() <-chan T { return f.c }

// Stop cancels the context the work runs under. The future still resolves,
// normally with the context error.
func (f *Future[T]) Stop() { f.cancel() }
