// Package executor runs blocking tmux work off the broadcaster goroutines.
//
// Captures go through RunLocked, which serializes them behind a single lock
// because tmux misbehaves when several capture-pane/list-panes commands race.
// Work that never touches tmux (file reads) uses RunUnlocked and only
// competes for a worker slot.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 2

// ErrShutdown is returned for work submitted after Shutdown.
var ErrShutdown = errors.New("executor: shut down")

// Executor owns the tmux lock and a bounded worker pool. The zero value is
// not usable; construct one with New and share it between broadcasters.
type Executor struct {
	lock    *semaphore.Weighted
	pool    *semaphore.Weighted
	workers int
	closed  atomic.Bool
	running atomic.Int64
}

// New creates an executor with the given number of workers. Values below
// one fall back to DefaultWorkers.
func New(workers int) *Executor {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Executor{
		lock:    semaphore.NewWeighted(1),
		pool:    semaphore.NewWeighted(int64(workers)),
		workers: workers,
	}
}

// Workers returns the pool size.
func (e *Executor) Workers() int {
	return e.workers
}

// InFlight returns the number of functions currently executing.
func (e *Executor) InFlight() int {
	return int(e.running.Load())
}

// Shutdown stops accepting new work. Functions already running are left to
// finish on their own; Shutdown does not wait for them.
func (e *Executor) Shutdown() {
	e.closed.Store(true)
}

// RunLocked runs fn on the pool while holding the executor's lock. No two
// RunLocked functions execute at the same time.
//
// If ctx is cancelled before fn starts, RunLocked returns ctx.Err() and fn
// never runs. If ctx is cancelled while fn is running, RunLocked returns
// ctx.Err() immediately, but the lock stays held until fn returns.
func RunLocked[T any](ctx context.Context, e *Executor, fn func() (T, error)) (T, error) {
	var zero T
	if e.closed.Load() {
		return zero, ErrShutdown
	}
	if err := e.lock.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	return submit(ctx, e, fn, func() { e.lock.Release(1) })
}

// RunUnlocked runs fn on the pool without taking the lock.
func RunUnlocked[T any](ctx context.Context, e *Executor, fn func() (T, error)) (T, error) {
	var zero T
	if e.closed.Load() {
		return zero, ErrShutdown
	}
	return submit(ctx, e, fn, nil)
}

type result[T any] struct {
	val T
	err error
}

// submit waits for a worker slot and runs fn in its own goroutine. release,
// when non-nil, is called exactly once: after fn returns, or right away if
// fn never starts.
func submit[T any](ctx context.Context, e *Executor, fn func() (T, error), release func()) (T, error) {
	var zero T
	if err := e.pool.Acquire(ctx, 1); err != nil {
		if release != nil {
			release()
		}
		return zero, err
	}
	if e.closed.Load() {
		e.pool.Release(1)
		if release != nil {
			release()
		}
		return zero, ErrShutdown
	}

	done := make(chan result[T], 1)
	e.running.Add(1)
	go func() {
		defer func() {
			e.running.Add(-1)
			e.pool.Release(1)
			if release != nil {
				release()
			}
		}()
		val, err := call(fn)
		done <- result[T]{val: val, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// call converts a panic in fn into an error so a broken capture cannot take
// down the process.
func call[T any](fn func() (T, error)) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor: panic: %v", r)
		}
	}()
	return fn()
}
