package composable

import (
	"testing"
	"time"

	catrate "github.com/joeycumines/go-catrate"
	"github.com/stretchr/testify/require"
)

// recordingEffects implements Effects[A] by embedding a nil Effects[A] and
// overriding only Action/At — the two methods RateLimited actually calls.
// Any other method invoked on it panics on the nil embedded interface,
// which would fail the test loudly rather than silently passing.
type recordingEffects[A any] struct {
	Effects[A]
	actions []A
	delayed []delayedAction[A]
}

type delayedAction[A any] struct {
	at time.Time
	a  A
}

func (r *recordingEffects[A]) Action(a A) {
	r.actions = append(r.actions, a)
}

func (r *recordingEffects[A]) At(t time.Time, a A) Task {
	r.delayed = append(r.delayed, delayedAction[A]{at: t, a: a})
	return Task{}
}

func TestRateLimited_PassesThroughWithinRate(t *testing.T) {
	limiter := catrate.NewLimiter(map[time.Duration]int{time.Hour: 2})
	rec := &recordingEffects[int]{}
	rl := RateLimited[int](rec, limiter, "user-1")

	rl.Action(1)
	rl.Action(2)

	require.Equal(t, []int{1, 2}, rec.actions)
	require.Empty(t, rec.delayed)
}

func TestRateLimited_ReschedulesOverLimit(t *testing.T) {
	limiter := catrate.NewLimiter(map[time.Duration]int{time.Hour: 1})
	rec := &recordingEffects[int]{}
	rl := RateLimited[int](rec, limiter, "user-1")

	rl.Action(1)
	rl.Action(2)
	rl.Action(3)

	require.Equal(t, []int{1}, rec.actions)
	require.Len(t, rec.delayed, 2)
	require.Equal(t, 2, rec.delayed[0].a)
	require.Equal(t, 3, rec.delayed[1].a)
	require.True(t, rec.delayed[0].at.After(time.Now()))
}

func TestRateLimited_SeparateCategoriesIndependent(t *testing.T) {
	limiter := catrate.NewLimiter(map[time.Duration]int{time.Hour: 1})
	rec := &recordingEffects[string]{}
	rl := RateLimited[string](rec, limiter, "alice")

	rl.Action("alice-1")
	// A different category's budget is untouched by alice's usage.
	rlBob := RateLimited[string](rec, limiter, "bob")
	rlBob.Action("bob-1")

	require.Equal(t, []string{"alice-1", "bob-1"}, rec.actions)
	require.Empty(t, rec.delayed)
}

// TestRateLimited_PromotesOtherEffectsMethods confirms a method other than
// Action passes straight through to the wrapped Effects unmodified, using
// At (from the embedded Scheduler) as the representative; the recording
// stub implements only Action and At, so Task/Future/Stream are not called.
func TestRateLimited_PromotesOtherEffectsMethods(t *testing.T) {
	limiter := catrate.NewLimiter(map[time.Duration]int{time.Hour: 10})
	rec := &recordingEffects[int]{}
	rl := RateLimited[int](rec, limiter, "cat")

	rl.At(time.Now().Add(time.Minute), 5)
	require.Len(t, rec.delayed, 1)
	require.Equal(t, 5, rec.delayed[0].a)
}
