package composable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// One child action type keyed by id, routed through ReduceKeyedField,
// verifying that an action keyed to one child never touches a sibling at a
// different key.

type keyedChildAction interface{ isKeyedChildAction() }

type (
	keyedEmitPing struct{}
	keyedPing     struct{}
)

func (keyedEmitPing) isKeyedChildAction() {}
func (keyedPing) isKeyedChildAction()     {}

type keyedChildState struct{ Log []string }

func (c *keyedChildState) Reduce(a keyedChildAction, effects Effects[keyedChildAction]) {
	switch a.(type) {
	case keyedEmitPing:
		effects.Action(keyedPing{})
	case keyedPing:
		c.Log = append(c.Log, "ping")
	}
}

type entityID int

type keyedParentAction interface{ isKeyedParentAction() }

type (
	keyedParentEmitPing struct{ ID entityID }
	keyedParentPing     struct{ ID entityID }
)

func (keyedParentEmitPing) isKeyedParentAction() {}
func (keyedParentPing) isKeyedParentAction()     {}

func convertKeyedChild(a keyedParentAction) (Keyed[entityID, keyedChildAction], bool) {
	switch v := a.(type) {
	case keyedParentEmitPing:
		return Keyed[entityID, keyedChildAction]{Key: v.ID, Action: keyedEmitPing{}}, true
	case keyedParentPing:
		return Keyed[entityID, keyedChildAction]{Key: v.ID, Action: keyedPing{}}, true
	default:
		return Keyed[entityID, keyedChildAction]{}, false
	}
}

func liftKeyedChild(id entityID, a keyedChildAction) keyedParentAction {
	switch a.(type) {
	case keyedEmitPing:
		return keyedParentEmitPing{ID: id}
	case keyedPing:
		return keyedParentPing{ID: id}
	default:
		return nil
	}
}

type keyedParentState struct {
	Children KeyedState[entityID, keyedChildState]
}

func (p *keyedParentState) Reduce(a keyedParentAction, effects Effects[keyedParentAction]) {
	ReduceKeyedField[entityID, keyedParentAction, keyedChildAction, keyedChildState, *keyedChildState](
		&p.Children, a, effects, convertKeyedChild, liftKeyedChild,
	)
}

func TestKeyed_SiblingIsolation(t *testing.T) {
	children := NewKeyedState[entityID, keyedChildState](map[entityID]keyedChildState{
		1: {},
		2: {},
	})
	store := New[keyedParentState, keyedParentAction, *keyedParentState](keyedParentState{Children: children})

	require.NoError(t, store.Sync(keyedParentEmitPing{ID: 1}))

	final, err := store.IntoInner()
	require.NoError(t, err)

	c1, ok := final.Children.Get(1)
	require.True(t, ok)
	require.Equal(t, []string{"ping"}, c1.Log)

	c2, ok := final.Children.Get(2)
	require.True(t, ok)
	require.Empty(t, c2.Log)
}
