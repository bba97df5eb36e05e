// Package workerpool bounds how many OCR jobs the processing pipeline runs
// at once (spec.md section 4.D, "ocr.workers concurrent workers"). A
// Submit that would exceed the pool's capacity is rejected rather than
// blocked, since the capture loop enqueues fire-and-forget and must never
// stall waiting for a pipeline tick to drain (spec.md section 5,
// "Scheduling model").
package workerpool

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Task is a unit of work submitted to the pool.
type Task func()

// ErrShutdownTimedOut is returned by Shutdown when the context deadline
// passes before all in-flight and queued tasks finish.
var ErrShutdownTimedOut = errors.New("workerpool: shutdown timed out waiting for tasks to finish")

// Pool bounds concurrent task execution to maxWorkers and the number of
// pending-plus-running tasks to maxWorkers+queueSize. Unlike a fixed set of
// worker goroutines pulling off a shared channel, each accepted task gets
// its own goroutine gated by a semaphore: this keeps a slow task from
// starving the queue-draining logic a multiplexed-select loop would need.
type Pool struct {
	sem       chan struct{}
	admission chan struct{}
	wg        sync.WaitGroup
	accepting atomic.Bool
}

// New creates a pool admitting at most maxWorkers concurrently running
// tasks, with room for queueSize more waiting to run.
func New(maxWorkers, queueSize int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		sem:       make(chan struct{}, maxWorkers),
		admission: make(chan struct{}, maxWorkers+queueSize),
	}
	p.accepting.Store(true)

	log.Info().Int("workers", maxWorkers).Int("queue_size", queueSize).Msg("worker pool started")
	return p
}

// Submit runs task on a pool goroutine once a slot is free. It returns
// false without running task if the pool has stopped accepting work or is
// already at capacity (running + queued == maxWorkers+queueSize).
func (p *Pool) Submit(task Task) bool {
	if !p.accepting.Load() {
		return false
	}

	select {
	case p.admission <- struct{}{}:
	default:
		log.Warn().Msg("worker pool at capacity, task rejected")
		return false
	}

	p.wg.Add(1)
	go p.run(task)
	return true
}

func (p *Pool) run(task Task) {
	defer p.wg.Done()
	defer func() { <-p.admission }()

	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("pool task panicked")
		}
	}()
	task()
}

// Shutdown stops accepting new tasks and waits for in-flight and queued
// work to finish, up to ctx's deadline.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.accepting.Store(false)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("worker pool drained")
		return nil
	case <-ctx.Done():
		log.Warn().Msg("worker pool drain timed out")
		return ErrShutdownTimedOut
	}
}
