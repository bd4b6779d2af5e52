// Package scheduler runs submitted work functions on a bounded pool of
// workers, handing results back through single-use futures. The CLI uses
// it to fan batch operations out over multiple test configurations.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/netsonde/synthctl/internal/models"
)

type workRequest struct {
	fn  models.Work[any]
	c   chan models.Result[any]
	ctx context.Context
}

// Scheduler dispatches queued work to a fixed number of workers in FIFO
// order.
type Scheduler struct {
	size       int
	work       chan workRequest
	done       chan struct{}
	close      chan struct{}
	mainCtx    context.Context
	mainCancel context.CancelFunc

	inflight sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewScheduler(nbWorkers int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		size: nbWorkers,
		work: make(chan workRequest),
		// sized so workers finishing after shutdown never block
		done:       make(chan struct{}, nbWorkers),
		close:      make(chan struct{}),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	go s.run()
	return s
}

// AddWork queues w for execution. After Close the returned future
// resolves immediately with context.Canceled.
func (s *Scheduler) AddWork(w models.Work[any]) *models.Future[models.Result[any]] {
	c := make(chan models.Result[any], 1)
	ctx, cancel := context.WithCancel(s.mainCtx)
	select {
	case s.work <- workRequest{fn: w, c: c, ctx: ctx}:
	case <-s.mainCtx.Done():
		cancel()
		c <- models.Result[any]{Err: context.Canceled}
	}
	return models.NewFuture(c, cancel)
}

// Close cancels the context of all running work, stops the dispatcher and
// waits for in-flight work to drain. Queued items that never started do
// not resolve their futures.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.mainCancel()
	s.close <- struct{}{}
	s.inflight.Wait()
}

func (s *Scheduler) run() {
	var pending models.Queue[workRequest]
	idle := s.size
	for {
		select {
		case r := <-s.work:
			pending.Push(r)
			if idle == 0 {
				continue
			}
			idle--
			s.dispatch(pending.Pop())
		case <-s.done:
			idle++
			if pending.Len() == 0 {
				continue
			}
			idle--
			s.dispatch(pending.Pop())
		case <-s.close:
			return
		}
	}
}

func (s *Scheduler) dispatch(r workRequest) {
	s.inflight.Add(1)
	go s.execute(r)
}

// execute runs one work item, converting a panic into an error result.
func (s *Scheduler) execute(r workRequest) {
	defer func() {
		if p := recover(); p != nil {
			r.c <- models.Result[any]{Err: fmt.Errorf("worker panicked: %v", p)}
		}
		s.inflight.Done()
		s.done <- struct{}{}
	}()
	v, err := r.fn(r.ctx)
	r.c <- models.Result[any]{Data: v, Err: err}
}
