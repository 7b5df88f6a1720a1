package composable

import (
	catrate "github.com/joeycumines/go-catrate"
)

// RateLimited wraps effects so that Action calls are subject to a
// multi-window sliding-rate limit, scoped to category. Calls within the
// configured rate pass straight through; calls that would exceed it are
// rescheduled to the next allowed instant via the wrapped Effects' own
// Scheduler (At), rather than dropped — no action is silently lost, it is
// only delayed.
//
// This supplements spec.md's Debounce/Throttle (per-action-identity
// coalescing keyed on a *Task slot the caller holds) with a true
// multi-window rate limiter that needs no caller-held state at all: the
// limiter itself tracks event history per category. Grounded on
// catrate.Limiter/NewLimiter (see DESIGN.md).
func RateLimited[A any](effects Effects[A], limiter *catrate.Limiter, category any) Effects[A] {
	return &rateLimitedEffects[A]{Effects: effects, limiter: limiter, category: category}
}

// rateLimitedEffects decorates an Effects[A], overriding only Action; every
// other method (the embedded Scheduler, Task, Future, Stream) is promoted
// straight through to the wrapped Effects.
type rateLimitedEffects[A any] struct {
	Effects[A]
	limiter  *catrate.Limiter
	category any
}

func (r *rateLimitedEffects[A]) Action(a A) {
	next, ok := r.limiter.Allow(r.category)
	if ok {
		r.Effects.Action(a)
		return
	}
	r.Effects.At(next, a)
}
