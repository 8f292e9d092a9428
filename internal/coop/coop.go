// Package coop runs tasks cooperatively: one baton is passed between
// goroutines and only the holder may touch shared state. A task gives the
// baton up only inside Sleep, so code between two sleeps runs without
// interleaving and needs no locks.
package coop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Runtime struct {
	baton chan struct{}
	clock Clock
	log   zerolog.Logger
	wg    sync.WaitGroup
}

type Option func(*Runtime)

func WithClock(c Clock) Option { return func(r *Runtime) { r.clock = c } }

func WithLogger(l zerolog.Logger) Option { return func(r *Runtime) { r.log = l } }

func New(opts ...Option) *Runtime {
	r := &Runtime{
		baton: make(chan struct{}, 1),
		clock: RealClock{},
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Runtime) Clock() Clock { return r.clock }

func (r *Runtime) acquire(ctx context.Context) error {
	select {
	case r.baton <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runtime) release() { <-r.baton }

// Go starts fn as a cooperative task. fn runs holding the baton. A returned
// error or a panic is logged; neither stops other tasks.
func (r *Runtime) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.acquire(ctx); err != nil {
			return
		}
		defer r.release()
		defer func() {
			if p := recover(); p != nil {
				r.log.Error().Str("task", name).Interface("panic", p).Msg("task panicked")
			}
		}()
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			r.log.Error().Err(err).Str("task", name).Msg("task ended")
			return
		}
		r.log.Debug().Str("task", name).Msg("task done")
	}()
}

// Sleep gives up the baton for d and takes it back before returning. It must
// only be called by the baton holder. On cancellation the baton is still
// re-acquired and ctx.Err is returned.
func (r *Runtime) Sleep(ctx context.Context, d time.Duration) error {
	r.release()
	err := r.clock.Wait(ctx, d)
	r.baton <- struct{}{}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// Yield lets any waiting task run.
func (r *Runtime) Yield(ctx context.Context) error { return r.Sleep(ctx, 0) }

// Block runs fn without the baton so blocking I/O does not stall other
// tasks. fn must not touch shared state. The baton is held again on return.
func (r *Runtime) Block(ctx context.Context, fn func() error) error {
	r.release()
	defer func() { r.baton <- struct{}{} }()
	return fn()
}

// Do runs fn holding the baton. It is how goroutines outside the runtime
// (HTTP handlers, file watchers) touch shared state.
func (r *Runtime) Do(ctx context.Context, fn func()) (err error) {
	if err := r.acquire(ctx); err != nil {
		return err
	}
	defer r.release()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("coop: panic: %v", p)
		}
	}()
	fn()
	return nil
}

// Wait blocks until every task started with Go has returned.
func (r *Runtime) Wait() { r.wg.Wait() }
