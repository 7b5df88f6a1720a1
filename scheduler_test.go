package composable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Both scenarios below drive a real [Store] against an externally-owned
// virtual [Reactor] (via [WithSharedReactor]), rather than [TestStore]: the
// debounce Task handle lives inside the reducer's own state, and
// [TestStore.Send]'s whole-state equality check has no way to exclude a
// field like that from comparison. A plain Store only needs its final
// state at [Store.IntoInner] time, which sidesteps the problem entirely.
// [Store.Sync] after every Send establishes a happens-before relationship
// with the reducer's own Debounce/reactor.Add call, so advancing the
// virtual clock from the test goroutine afterward always observes it.

type debounceAction interface{ isDebounceAction() }

type debounceSaved struct{}

type typed struct{}
type saved = debounceSaved

func (typed) isDebounceAction() {}
func (saved) isDebounceAction() {}

type debounceState struct {
	N    int
	task Task
}

func (s *debounceState) reduceDebounce(a debounceAction, effects Effects[debounceAction], i Interval) {
	switch a.(type) {
	case typed:
		effects.Debounce(saved{}, &s.task, i)
	case saved:
		s.N++
	}
}

type leadingDebounceState struct{ debounceState }

func (s *leadingDebounceState) Reduce(a debounceAction, effects Effects[debounceAction]) {
	s.reduceDebounce(a, effects, LeadingInterval(4*time.Second))
}

// TestScheduler_DebounceLeading exercises a leading debounce: the first
// Typed in a quiet window fires Saved immediately, and any further Typed
// within the window is dropped outright, never just delayed.
func TestScheduler_DebounceLeading(t *testing.T) {
	start := time.Unix(0, 0)
	reactor := NewVirtualReactor(start)
	store := New[leadingDebounceState, debounceAction, *leadingDebounceState](
		leadingDebounceState{}, WithSharedReactor[leadingDebounceState, debounceAction](reactor),
	)

	// t=0: first Typed fires Saved immediately.
	require.NoError(t, store.Sync(typed{}))
	reactor.Advance(0, nil)

	// t=3s: still inside the 4s window since the last fire — dropped.
	reactor.Advance(3*time.Second, nil)
	require.NoError(t, store.Sync(typed{}))

	// t=11s: 8s further on, well outside the window — fires again.
	reactor.Advance(8*time.Second, nil)
	require.NoError(t, store.Sync(typed{}))
	reactor.Advance(0, nil)

	final, err := store.IntoInner()
	require.NoError(t, err)
	require.Equal(t, 2, final.N)
}

type trailingDebounceState struct{ debounceState }

func (s *trailingDebounceState) Reduce(a debounceAction, effects Effects[debounceAction]) {
	s.reduceDebounce(a, effects, TrailingInterval(150*time.Millisecond))
}

// TestScheduler_DebounceTrailing exercises a trailing debounce: every Typed
// reschedules Saved to fire one interval after itself, so only the last of
// several rapid Typed actions ever actually fires — the same behavior the
// donor's editor example (examples/03_timers) demonstrates at real-time
// scale, pinned down here under a virtual clock.
func TestScheduler_DebounceTrailing(t *testing.T) {
	start := time.Unix(0, 0)
	reactor := NewVirtualReactor(start)
	store := New[trailingDebounceState, debounceAction, *trailingDebounceState](
		trailingDebounceState{}, WithSharedReactor[trailingDebounceState, debounceAction](reactor),
	)

	require.NoError(t, store.Sync(typed{}))
	reactor.Advance(50*time.Millisecond, nil)
	require.NoError(t, store.Sync(typed{}))
	reactor.Advance(50*time.Millisecond, nil)
	require.NoError(t, store.Sync(typed{}))

	// The last Typed landed at t=100ms and pushed Saved out to t=250ms.
	reactor.Advance(150*time.Millisecond, nil)

	final, err := store.IntoInner()
	require.NoError(t, err)
	require.Equal(t, 1, final.N)
}
