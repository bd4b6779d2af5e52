// Package models holds the generic scheduling primitives shared by the
// worker pool and its callers.
package models

import "context"

// Work is a unit of work executed by the pool. The context is canceled when
// the caller stops the future or the scheduler shuts down.
type Work[T any] func(ctx context.Context) (T, error)

// Result carries the outcome of one work item.
type Result[T any] struct {
	Data T
	Err  error
}

// Queue is a FIFO of pending work.
type Queue[T any] []T

func (q *Queue[T]) Len() int { return len(*q) }

func (q *Queue[T]) Push(t T) { *q = append(*q, t) }

func (q *Queue[T]) Pop() T {
	old := *q
	x := old[0]
	*q = old[1:]
	return x
}
