package composable

import (
	"sync"
	"time"
)

// Scheduler is the time-modifier half of [Effects]: apply a delay, a
// repeat pattern, or debounce/throttle coalescing to when an action is
// sent.
//
// Grounded on original_source/src/effects/mod.rs's Scheduler trait.
// Schedule is the SUPPLEMENTED primitive the original exposes as
// Scheduler::schedule (hidden from docs but used to implement
// after/at/every); this module exposes it directly, since After/At/Every
// are implemented in terms of it and it is useful on its own for an
// arbitrary custom repeat pattern.
type Scheduler[A any] interface {
	Now() time.Time
	Schedule(a A, next func() (time.Time, bool)) Task
	After(d time.Duration, a A) Task
	At(t time.Time, a A) Task
	Every(i Interval, a A) Task
	Debounce(a A, prev *Task, i Interval)
	Throttle(a A, prev *Task, i Interval)
}

// Interval selects whether a repeating or coalescing Scheduler operation
// fires immediately (Leading) or only after the first delay has elapsed
// (Trailing). Grounded on original_source/src/effects/mod.rs's Interval enum.
type Interval struct {
	duration time.Duration
	trailing bool
}

// LeadingInterval returns an Interval whose first firing happens
// immediately.
func LeadingInterval(d time.Duration) Interval { return Interval{duration: d} }

// TrailingInterval returns an Interval whose first firing happens only
// after d has elapsed.
func TrailingInterval(d time.Duration) Interval { return Interval{duration: d, trailing: true} }

// Duration returns the interval's period, regardless of Leading/Trailing.
func (i Interval) Duration() time.Duration { return i.duration }

// IsTrailing reports whether this is a Trailing interval.
func (i Interval) IsTrailing() bool { return i.trailing }

func (e *storeEffects[A]) Now() time.Time {
	return e.reactor.Now()
}

// Schedule repeatedly sends a at the instants next produces, stopping the
// first time next returns ok == false. Grounded on Scheduler::schedule:
// the original takes an iterator of Delay values computed once; this
// module instead calls next lazily, once per firing, so next can close
// over mutable state exactly the way the original's from_fn closures (used
// by every/after/at) do.
func (e *storeEffects[A]) Schedule(a A, next func() (time.Time, bool)) Task {
	st := newTaskState(nil)
	if e.registry != nil {
		e.registry.register(st)
	}

	var mu sync.Mutex
	var handle *TimerHandle
	var armNext func()
	armNext = func() {
		t, ok := next()
		if !ok {
			st.markDone()
			return
		}
		st.setWhen(t)
		h := e.reactor.Add(t, func(time.Time) {
			if st.isDone() {
				return
			}
			e.sendScheduled(a)
			armNext()
		})
		mu.Lock()
		handle = h
		mu.Unlock()
	}

	st.setStop(func() {
		mu.Lock()
		h := handle
		mu.Unlock()
		if h != nil {
			h.Cancel()
		}
	})

	armNext()
	return Task{state: st}
}

// After sends a once, duration from now.
func (e *storeEffects[A]) After(d time.Duration, a A) Task {
	return e.At(e.Now().Add(d), a)
}

// At sends a once, at instant t.
func (e *storeEffects[A]) At(t time.Time, a A) Task {
	st := newTaskState(nil)
	if e.registry != nil {
		e.registry.register(st)
	}
	st.setWhen(t)

	handle := e.reactor.Add(t, func(time.Time) {
		if st.isDone() {
			return
		}
		st.markDone()
		e.sendScheduled(a)
	})
	st.setStop(func() { handle.Cancel() })

	return Task{state: st}
}

// Every repeatedly sends a, once per i's period — the first firing is
// immediate for a Leading interval, or delayed by one period for a
// Trailing interval. The repeat stops cleanly (no error, no further
// firings) on time.Duration overflow, matching the original's
// checked_mul/checked_add returning None.
func (e *storeEffects[A]) Every(i Interval, a A) Task {
	var n int64
	if i.trailing {
		n = 1
	}
	start := e.Now()
	duration := i.duration

	return e.Schedule(a, func() (time.Time, bool) {
		delay, ok := safeMulDuration(duration, n)
		if !ok {
			return time.Time{}, false
		}
		t, ok := safeAddDuration(start, delay)
		if !ok {
			return time.Time{}, false
		}
		n++
		return t, true
	})
}

// Debounce coalesces repeated calls into a single send: every call cancels
// whatever *prev held before replacing it, the same way the original's
// `*previous = Some(task)` drops (and thereby cancels) the Task it
// overwrites. For a Trailing interval, a is scheduled unconditionally at
// now+timeout — a call that never sees a gap of timeout keeps pushing the
// fire time out, so only the last call in a burst ever actually sends. For
// a Leading interval, a is dropped if *prev fired within the last timeout;
// otherwise it fires immediately.
func (e *storeEffects[A]) Debounce(a A, prev *Task, i Interval) {
	if i.trailing {
		old := *prev
		*prev = e.At(e.Now().Add(i.duration), a)
		old.Cancel()
		return
	}

	now := e.Now()
	if prev != nil && prev.state != nil {
		if when, ok := prev.When(); ok && !now.After(when.Add(i.duration)) {
			return
		}
	}
	old := *prev
	*prev = e.At(now, a)
	old.Cancel()
}

// Throttle sends a if at least one interval has passed since *prev was
// sent; otherwise it replaces *prev, deferring to the remainder of the
// current window. Like Debounce, the superseded task is canceled —
// grounded on the original's previous.take(), which drops (and thereby
// cancels) the old Task after reading its when.
func (e *storeEffects[A]) Throttle(a A, prev *Task, i Interval) {
	now := e.Now()
	timeout := i.duration

	var prevWhen time.Time
	hadWhen := false
	if prev != nil && prev.state != nil {
		prevWhen, hadWhen = prev.When()
		prev.Cancel()
	}

	var when time.Time
	switch {
	case hadWhen && prevWhen.After(now):
		when = prevWhen
	case hadWhen && prevWhen.Add(timeout).After(now):
		when = prevWhen.Add(timeout)
	case i.trailing:
		when = now.Add(timeout)
	default:
		when = now
	}

	*prev = e.At(when, a)
}

// safeMulDuration multiplies d by n, reporting ok == false on overflow —
// the Go equivalent of the original's Duration::checked_mul.
func safeMulDuration(d time.Duration, n int64) (time.Duration, bool) {
	if n == 0 {
		return 0, true
	}
	result := int64(d) * n
	if d != 0 && result/n != int64(d) {
		return 0, false
	}
	return time.Duration(result), true
}

// safeAddDuration adds d to t, reporting ok == false if the result would
// overflow — the Go equivalent of the original's Instant::checked_add.
// time.Time.Add saturates at the extremes of its representable range
// rather than wrapping, so overflow shows up as the result moving the
// wrong direction relative to d.
func safeAddDuration(t time.Time, d time.Duration) (time.Time, bool) {
	result := t.Add(d)
	if d > 0 && result.Before(t) {
		return time.Time{}, false
	}
	if d < 0 && result.After(t) {
		return time.Time{}, false
	}
	return result, true
}

// scopedEffects Scheduler delegation: every operation lifts its Child
// action to a Parent action via lift before forwarding to the parent
// Effects, matching Scoped's Scheduler impl in the original.

func (s *scopedEffects[Parent, Child]) Now() time.Time {
	return s.parent.Now()
}

func (s *scopedEffects[Parent, Child]) Schedule(a Child, next func() (time.Time, bool)) Task {
	return s.parent.Schedule(s.lift(a), next)
}

func (s *scopedEffects[Parent, Child]) After(d time.Duration, a Child) Task {
	return s.parent.After(d, s.lift(a))
}

func (s *scopedEffects[Parent, Child]) At(t time.Time, a Child) Task {
	return s.parent.At(t, s.lift(a))
}

func (s *scopedEffects[Parent, Child]) Every(i Interval, a Child) Task {
	return s.parent.Every(i, s.lift(a))
}

func (s *scopedEffects[Parent, Child]) Debounce(a Child, prev *Task, i Interval) {
	s.parent.Debounce(s.lift(a), prev, i)
}

func (s *scopedEffects[Parent, Child]) Throttle(a Child, prev *Task, i Interval) {
	s.parent.Throttle(s.lift(a), prev, i)
}
