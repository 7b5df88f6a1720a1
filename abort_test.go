package composable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAbortSignal_OnAbortAfterAbort(t *testing.T) {
	controller := NewAbortController()
	require.False(t, controller.Signal().Aborted())

	controller.Abort("stop")
	require.True(t, controller.Signal().Aborted())
	require.Equal(t, "stop", controller.Signal().Reason())

	var got any
	controller.Signal().OnAbort(func(reason any) { got = reason })
	require.Equal(t, "stop", got)
}

func TestAbortSignal_OnAbortBeforeAbort(t *testing.T) {
	controller := NewAbortController()

	var got any
	controller.Signal().OnAbort(func(reason any) { got = reason })
	require.Nil(t, got)

	controller.Abort("later")
	require.Equal(t, "later", got)
}

func TestAbortController_AbortIsIdempotent(t *testing.T) {
	controller := NewAbortController()
	controller.Abort("first")
	controller.Abort("second")
	require.Equal(t, "first", controller.Signal().Reason())
}

func TestAbortController_NilReasonDefaultsToAbortError(t *testing.T) {
	controller := NewAbortController()
	controller.Abort(nil)

	var abortErr *AbortError
	require.ErrorAs(t, controller.Signal().Reason().(error), &abortErr)
}

func TestAbortSignal_ThrowIfAborted(t *testing.T) {
	controller := NewAbortController()
	require.NoError(t, controller.Signal().ThrowIfAborted())

	controller.Abort(errors.New("boom"))
	err := controller.Signal().ThrowIfAborted()
	require.Error(t, err)

	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
	require.EqualError(t, errors.Unwrap(abortErr), "boom")
}

func TestAbortAny_FirstToAbortWins(t *testing.T) {
	c1 := NewAbortController()
	c2 := NewAbortController()
	combined := AbortAny([]*AbortSignal{c1.Signal(), c2.Signal()})
	require.False(t, combined.Aborted())

	c2.Abort("from c2")
	require.True(t, combined.Aborted())
	require.Equal(t, "from c2", combined.Reason())

	// A later abort on the other input is a no-op for the composite.
	c1.Abort("from c1")
	require.Equal(t, "from c2", combined.Reason())
}

func TestAbortAny_AlreadyAbortedInput(t *testing.T) {
	c1 := NewAbortController()
	c1.Abort("already gone")
	c2 := NewAbortController()

	combined := AbortAny([]*AbortSignal{c1.Signal(), c2.Signal()})
	require.True(t, combined.Aborted())
	require.Equal(t, "already gone", combined.Reason())
}

func TestAbortAny_Empty(t *testing.T) {
	combined := AbortAny(nil)
	require.False(t, combined.Aborted())
}

func TestAbortTimeout_FiresOnVirtualReactor(t *testing.T) {
	reactor := NewVirtualReactor(time.Unix(0, 0))
	controller := AbortTimeout(reactor, 5*time.Second)
	require.False(t, controller.Signal().Aborted())

	reactor.Advance(5*time.Second, nil)
	require.True(t, controller.Signal().Aborted())

	var abortErr *AbortError
	require.ErrorAs(t, controller.Signal().Reason().(error), &abortErr)
}

// TestContextFromSignal_CancelsRunningFuture drives a real Store so that
// Effects.Future's context.Context comes from ContextFromSignal: aborting
// the signal must cancel the Future's ctx and prevent it from ever
// delivering its action.
func TestContextFromSignal_CancelsRunningFuture(t *testing.T) {
	controller := NewAbortController()
	ctx, cancel := ContextFromSignal(context.Background(), controller.Signal())
	defer cancel()

	started := make(chan struct{})
	store := New[abortFutureState, abortFutureAction, *abortFutureState](
		abortFutureState{ctx: ctx, started: started},
	)

	require.NoError(t, store.Sync(abortStart{}))
	<-started
	controller.Abort("canceled by test")

	require.NoError(t, store.Sync(abortPoke{}))
	final, err := store.IntoInner()
	require.NoError(t, err)
	require.False(t, final.Finished)
}

type abortFutureAction interface{ isAbortFutureAction() }

type (
	abortStart struct{}
	abortDone  struct{}
	abortPoke  struct{}
)

func (abortStart) isAbortFutureAction() {}
func (abortDone) isAbortFutureAction()  {}
func (abortPoke) isAbortFutureAction()  {}

type abortFutureState struct {
	ctx      context.Context
	started  chan struct{}
	Finished bool
}

func (s *abortFutureState) Reduce(a abortFutureAction, effects Effects[abortFutureAction]) {
	switch a.(type) {
	case abortStart:
		effects.Future(s.ctx, func(ctx context.Context) (abortFutureAction, bool) {
			close(s.started)
			<-ctx.Done()
			return abortDone{}, true
		})
	case abortDone:
		s.Finished = true
	case abortPoke:
		// No-op: only used via Sync to get a happens-before barrier after
		// the abort, confirming the canceled Future never sent abortDone.
	}
}
