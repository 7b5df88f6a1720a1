package composable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// --- scenario: basic send ---

type incAction struct{}

type counterState struct{ N int }

func (s *counterState) Reduce(incAction, Effects[incAction]) {
	s.N++
}

func TestStore_BasicSend(t *testing.T) {
	store := New[counterState, incAction, *counterState](counterState{})

	const n = 100_000
	for i := 0; i < n; i++ {
		store.Send(incAction{})
	}

	final, err := store.IntoInner()
	require.NoError(t, err)
	require.Equal(t, n, final.N)
}

// --- scenario: internal fan-out ---

type fanoutAction interface{ isFanoutAction() }

type (
	incMany struct{}
	incOne  struct{}
)

func (incMany) isFanoutAction() {}
func (incOne) isFanoutAction()  {}

type fanoutState struct{ N int }

func (s *fanoutState) Reduce(a fanoutAction, effects Effects[fanoutAction]) {
	switch a.(type) {
	case incMany:
		for i := 0; i < 100_000; i++ {
			effects.Action(incOne{})
		}
	case incOne:
		s.N++
	}
}

func TestStore_InternalFanOut(t *testing.T) {
	store := New[fanoutState, fanoutAction, *fanoutState](fanoutState{})

	require.NoError(t, store.Sync(incMany{}))

	final, err := store.IntoInner()
	require.NoError(t, err)
	require.Equal(t, 100_000, final.N)
}

// --- scenario: stream fan-out ---

type streamAction interface{ isStreamAction() }

type (
	startStream struct{}
	streamInc   struct{}
	streamDone  struct{}
)

func (startStream) isStreamAction() {}
func (streamInc) isStreamAction()   {}
func (streamDone) isStreamAction()  {}

type streamState struct {
	N    int
	done chan struct{}
}

func (s *streamState) Reduce(a streamAction, effects Effects[streamAction]) {
	switch a.(type) {
	case startStream:
		effects.Task(context.Background(), func(yield func(streamAction) bool) {
			for i := 0; i < 100_000; i++ {
				if !yield(streamInc{}) {
					return
				}
			}
			yield(streamDone{})
		})
	case streamInc:
		s.N++
	case streamDone:
		close(s.done)
	}
}

func TestStore_StreamFanOut(t *testing.T) {
	done := make(chan struct{})
	store := New[streamState, streamAction, *streamState](streamState{done: done})

	store.Send(startStream{})
	<-done

	final, err := store.IntoInner()
	require.NoError(t, err)
	require.Equal(t, 100_000, final.N)
}

// --- panic recovery ---

type panicAction struct{}

type panicState struct{ Recovered bool }

func (s *panicState) Reduce(panicAction, Effects[panicAction]) {
	panic("boom")
}

func TestStore_PanicRecovered(t *testing.T) {
	store := New[panicState, panicAction, *panicState](panicState{})

	store.Send(panicAction{})
	_, err := store.IntoInner()
	require.Error(t, err)

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "boom", pe.Value)
}
