package composable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Two independent children, routed off one parent action type, verifying
// that an action aimed at one never touches the other's state (sibling
// isolation).

type childAAction interface{ isChildAAction() }

type (
	childAPing struct{}
	childAPong struct{}
)

func (childAPing) isChildAAction() {}
func (childAPong) isChildAAction() {}

type childAState struct{ Log []string }

func (c *childAState) Reduce(a childAAction, effects Effects[childAAction]) {
	switch a.(type) {
	case childAPing:
		c.Log = append(c.Log, "a:ping")
		effects.Action(childAPong{})
	case childAPong:
		c.Log = append(c.Log, "a:pong")
	}
}

type childBAction interface{ isChildBAction() }

type childBPing struct{}

func (childBPing) isChildBAction() {}

type childBState struct{ Log []string }

func (c *childBState) Reduce(a childBAction, _ Effects[childBAction]) {
	switch a.(type) {
	case childBPing:
		c.Log = append(c.Log, "b:ping")
	}
}

type parentAction interface{ isParentAction() }

type (
	parentAPing struct{}
	parentAPong struct{}
	parentBPing struct{}
)

func (parentAPing) isParentAction() {}
func (parentAPong) isParentAction() {}
func (parentBPing) isParentAction() {}

func convertParentA(a parentAction) (childAAction, bool) {
	switch a.(type) {
	case parentAPing:
		return childAPing{}, true
	case parentAPong:
		return childAPong{}, true
	default:
		return nil, false
	}
}

func liftParentA(a childAAction) parentAction {
	switch a.(type) {
	case childAPing:
		return parentAPing{}
	case childAPong:
		return parentAPong{}
	default:
		return nil
	}
}

func convertParentB(a parentAction) (childBAction, bool) {
	if _, ok := a.(parentBPing); ok {
		return childBPing{}, true
	}
	return nil, false
}

func liftParentB(childBAction) parentAction {
	return parentBPing{}
}

type parentState struct {
	A childAState
	B childBState
}

func (p *parentState) Reduce(a parentAction, effects Effects[parentAction]) {
	ReduceField[parentAction, childAAction, childAState, *childAState](&p.A, a, effects, convertParentA, liftParentA)
	ReduceField[parentAction, childBAction, childBState, *childBState](&p.B, a, effects, convertParentB, liftParentB)
}

func TestRecursive_SiblingIsolation(t *testing.T) {
	ts := NewTestStore[parentState, parentAction, *parentState](t, parentState{}, time.Now())

	ts.Send(parentAPing{}, func(s *parentState) {
		s.A.Log = append(s.A.Log, "a:ping")
	})
	ts.Recv(parentAPong{}, func(s *parentState) {
		s.A.Log = append(s.A.Log, "a:pong")
	})

	ts.Send(parentBPing{}, func(s *parentState) {
		s.B.Log = append(s.B.Log, "b:ping")
	})

	final := ts.IntoInner()
	require.Equal(t, []string{"a:ping", "a:pong"}, final.A.Log)
	require.Equal(t, []string{"b:ping"}, final.B.Log)
}
