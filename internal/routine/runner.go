// Package routine implements the sign's animation routines and the runner
// that steps the selected one once per scheduler tick.
package routine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Routine advances its animation by one tick: at most one mutation pass over
// the buffer, then a hold for its interval.
type Routine interface {
	Kind() Kind
	Step(ctx context.Context, st State, env *Env) (State, error)
}

type Registry struct{ m map[Kind]Routine }

func NewRegistry() *Registry { return &Registry{m: map[Kind]Routine{}} }

// DefaultRegistry holds the five built-in routines.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(flashing{})
	r.Register(fill{})
	r.Register(skate{})
	r.Register(skate{rng: true})
	r.Register(fade{})
	return r
}

func (r *Registry) Register(rt Routine) {
	if rt == nil {
		return
	}
	r.m[rt.Kind()] = rt
}

func (r *Registry) Get(k Kind) (Routine, bool) { rt, ok := r.m[k]; return rt, ok }

func (r *Registry) List() []Kind {
	out := make([]Kind, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var ErrNoRoutine = errors.New("routine not registered")

// Runner owns the animation state and steps one routine per tick.
type Runner struct {
	Reg   *Registry
	Env   *Env
	State State

	// metrics of the last tick
	Last struct {
		Kind   Kind
		StepMS float64
	}
}

func NewRunner(reg *Registry, env *Env) (*Runner, error) {
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	if env == nil || env.Surface == nil {
		return nil, errors.New("env needs a surface")
	}
	if err := env.Palette.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{Reg: reg, Env: env}
	r.Reset()
	return r, nil
}

// Reset clears the animation state and blanks the buffer.
func (r *Runner) Reset() {
	r.State = NewState(r.Env.Brightness)
	r.Env.Buf.Clear()
}

// Tick runs routine k for one tick. When reset is set the state and buffer
// are cleared first.
func (r *Runner) Tick(ctx context.Context, k Kind, reset bool) error {
	if reset {
		r.Reset()
	}
	rt, ok := r.Reg.Get(k)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRoutine, k)
	}
	start := time.Now()
	st, err := rt.Step(ctx, r.State, r.Env)
	r.State = st
	r.Last.Kind = k
	r.Last.StepMS = float64(time.Since(start).Microseconds()) / 1000.0
	return err
}
