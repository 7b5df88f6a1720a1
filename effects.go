package composable

import "context"

// Effects is the handle a Reducer uses to propagate actions as side
// effects of handling another action. It is also a [Scheduler]: every
// Effects can apply delay/repeat/debounce/throttle modifiers to when an
// action is sent.
//
// Grounded on original_source/src/effects/mod.rs's Effects trait
// (action/task/future/stream/scope), translated from Rust's blanket-trait
// default-method style into a plain Go interface plus free functions for
// scoping (see ScopeEffects/ScopeKeyedEffects below).
type Effects[A any] interface {
	Scheduler[A]

	// Action sends a through the Store's Reducer as a synchronous
	// follow-up: it is queued and reduced before the Store returns to
	// waiting on new external actions, in declaration order with any
	// other follow-ups from the same Reduce call.
	Action(a A)

	// Task runs stream on its own goroutine, sending every action it
	// yields back through the Store's Reducer, until stream returns or
	// ctx is canceled. Use this over Future/Stream when the caller needs
	// the returned Task's Cancel().
	Task(ctx context.Context, stream func(yield func(A) bool)) Task

	// Future runs f once on its own goroutine and, if it produces a
	// value, sends it back through the Store's Reducer.
	Future(ctx context.Context, f func(context.Context) (A, bool)) Task

	// Stream runs stream to completion the same way Task does, but
	// discards the handle (the Go analogue of Effects::stream's
	// self.task(stream).detach()).
	Stream(ctx context.Context, stream func(yield func(A) bool))
}

// storeEffects is the root Effects[A] implementation bound to one Store: its
// Action calls enqueue into the in-reduce follow-up buffer (same goroutine,
// no synchronization needed), while Task/Future/Stream and every Scheduler
// operation deliver their results asynchronously through a [WeakSender],
// since they run on the Reactor's goroutine or an Executor-spawned
// goroutine, never the Store's own drive goroutine.
type storeEffects[A any] struct {
	follow   *chunkedQueue[A]
	executor *Executor[A]
	registry *taskRegistry
	reactor  *Reactor
	sender   WeakSender[A]
}

func newStoreEffects[A any](follow *chunkedQueue[A], executor *Executor[A], registry *taskRegistry, reactor *Reactor, sender WeakSender[A]) *storeEffects[A] {
	return &storeEffects[A]{follow: follow, executor: executor, registry: registry, reactor: reactor, sender: sender}
}

func (e *storeEffects[A]) Action(a A) {
	e.follow.push(a)
}

func (e *storeEffects[A]) Task(ctx context.Context, stream func(yield func(A) bool)) Task {
	return e.executor.Spawn(ctx, e.registry, stream)
}

func (e *storeEffects[A]) Future(ctx context.Context, f func(context.Context) (A, bool)) Task {
	return e.executor.SpawnFuture(ctx, e.registry, f)
}

func (e *storeEffects[A]) Stream(ctx context.Context, stream func(yield func(A) bool)) {
	e.executor.Spawn(ctx, e.registry, stream).Detach()
}

// sendScheduled delivers one Scheduler-produced action (a timer firing, not
// a reducer's direct Action call) back into the Store through the channel,
// since Reactor callbacks never run on the Store's own drive goroutine.
func (e *storeEffects[A]) sendScheduled(a A) {
	tx, ok := e.sender.Upgrade()
	if !ok {
		return
	}
	defer tx.Close()
	tx.Send(a)
}

// scopedEffects is the Effects[Child] view over a parent Effects[Parent],
// returned by [ScopeEffects]. Grounded on original_source/src/effects/mod.rs's
// Scoped<Parent, Child> — every operation lifts the child action to a
// parent action and forwards to the parent, exactly as Scoped::action/
// Scoped::task do.
type scopedEffects[Parent, Child any] struct {
	parent Effects[Parent]
	lift   func(Child) Parent
}

// ScopeEffects returns an Effects[Child] that lifts every child action to a
// parent action via lift before forwarding to parent. This is the free
// function standing in for the original's Effects::scope method and for
// the per-field routing call a RecursiveReducer's Reduce method makes (see
// recursive.go's ReduceField).
func ScopeEffects[Parent, Child any](parent Effects[Parent], lift func(Child) Parent) Effects[Child] {
	return &scopedEffects[Parent, Child]{parent: parent, lift: lift}
}

// ScopeKeyedEffects returns an Effects[ChildAction] that lifts every action
// to Keyed{key, childAction} via lift before forwarding to parent. Standing
// in for the original's scope() call inside keyed-child dispatch
// (derive_reducers/src/util.rs's keyed_child_reduce template).
func ScopeKeyedEffects[K comparable, Parent, ChildAction any](parent Effects[Parent], key K, lift func(K, ChildAction) Parent) Effects[ChildAction] {
	return ScopeEffects(parent, func(a ChildAction) Parent { return lift(key, a) })
}

func (s *scopedEffects[Parent, Child]) Action(a Child) {
	s.parent.Action(s.lift(a))
}

func (s *scopedEffects[Parent, Child]) Task(ctx context.Context, stream func(yield func(Child) bool)) Task {
	return s.parent.Task(ctx, func(yield func(Parent) bool) {
		stream(func(a Child) bool { return yield(s.lift(a)) })
	})
}

func (s *scopedEffects[Parent, Child]) Future(ctx context.Context, f func(context.Context) (Child, bool)) Task {
	return s.parent.Future(ctx, func(ctx context.Context) (Parent, bool) {
		a, ok := f(ctx)
		if !ok {
			var zero Parent
			return zero, false
		}
		return s.lift(a), true
	})
}

func (s *scopedEffects[Parent, Child]) Stream(ctx context.Context, stream func(yield func(Child) bool)) {
	s.parent.Stream(ctx, func(yield func(Parent) bool) {
		stream(func(a Child) bool { return yield(s.lift(a)) })
	})
}
