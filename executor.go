package composable

import (
	"context"
)

// Executor is the task pool behind a Store's Effects.Task and
// Effects.Future: each spawned task runs on its own goroutine, not on the
// Store's drive goroutine, and feeds its results back to the Store through
// a [WeakSender], so a task outlives neither the Store nor, once canceled,
// itself. The reducer itself still only runs on the drive goroutine, since
// every result re-enters through the action channel.
//
// Grounded on effects/task.rs's Executor{spawner, actions: WeakSender}.
// Every result delivery goes through the weak sender's normal send-and-wake
// path; isLoopThread is available but no send path consults it.
type Executor[A any] struct {
	loopGoroutineID func() (uint64, bool)
	actions         WeakSender[A]
}

// NewExecutor creates an Executor that delivers completions through the
// given weak sender. loopGoroutineID, if non-nil, returns the Store's drive
// goroutine ID (and true) once known; it backs isLoopThread below.
func NewExecutor[A any](actions WeakSender[A], loopGoroutineID func() (uint64, bool)) *Executor[A] {
	return &Executor[A]{loopGoroutineID: loopGoroutineID, actions: actions}
}

func (e *Executor[A]) isLoopThread() bool {
	if e.loopGoroutineID == nil {
		return false
	}
	id, ok := e.loopGoroutineID()
	return ok && id == getGoroutineID()
}

// send delivers one result back into the Store, upgrading the weak sender
// each time (a task's completion must never keep the Store's channel open
// once every strong Sender has gone away).
func (e *Executor[A]) send(a A) {
	tx, ok := e.actions.Upgrade()
	if !ok {
		return
	}
	defer tx.Close()
	tx.Send(a)
}

// spawnTask launches fn on its own goroutine under ctx, registering a
// taskState so the task can be canceled and scavenged by the registry.
// fn is expected to call send as it produces results and to return
// once its stream/future is exhausted or ctx is canceled.
func (e *Executor[A]) spawnTask(ctx context.Context, registry *taskRegistry, fn func(ctx context.Context, send func(A))) Task {
	ctx, cancel := context.WithCancel(ctx)
	st := newTaskState(cancel)
	if registry != nil {
		registry.register(st)
	}

	go func() {
		defer st.markDone()
		defer func() {
			if r := recover(); r != nil {
				// A panicking task is contained here, matching the donor's
				// safeExecute: the Store's drive loop never sees it.
				_ = r
			}
		}()
		fn(ctx, func(a A) {
			if ctx.Err() != nil {
				return
			}
			e.send(a)
		})
	}()

	return Task{state: st}
}

// Spawn runs stream to completion on its own goroutine, sending every
// yielded action back into the Store, and returns a [Task] handle.
// Grounded on Effects.Task (spec.md/SPEC_FULL.md §4.4): stream is the Go
// analogue of the original's futures::Stream, expressed as a push-style
// iterator (yield returns false to stop early, matching range-over-func
// iterator conventions).
func (e *Executor[A]) Spawn(ctx context.Context, registry *taskRegistry, stream func(yield func(A) bool)) Task {
	return e.spawnTask(ctx, registry, func(ctx context.Context, send func(A)) {
		stream(func(a A) bool {
			if ctx.Err() != nil {
				return false
			}
			send(a)
			return true
		})
	})
}

// SpawnFuture runs f once on its own goroutine and, if it produces a value
// (ok == true), sends it back into the Store. Grounded on Effects.Future.
func (e *Executor[A]) SpawnFuture(ctx context.Context, registry *taskRegistry, f func(ctx context.Context) (A, bool)) Task {
	return e.spawnTask(ctx, registry, func(ctx context.Context, send func(A)) {
		if a, ok := f(ctx); ok {
			send(a)
		}
	})
}
