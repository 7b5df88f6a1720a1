package composable

import (
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Store owns exactly one piece of state and drives a single goroutine that
// applies a [Reducer] to incoming actions, draining any synchronously
// emitted follow-up actions before returning to wait on the next externally
// sent action.
//
// Grounded on the donor event loop's Loop: Loop.run/Loop.tick's
// block-then-drain structure and safeExecute's panic containment carry over
// almost unchanged, retargeted from "run arbitrary submitted callbacks" to
// "reduce one action, then its follow-ups". Every external action goes
// through the action channel; there is no direct-dispatch fast path.
type Store[S, A any] struct {
	reduce func(*S, A, Effects[A])
	state  S

	fast *FastState

	tx     Sender[A]
	rx     *Receiver[A]
	follow chunkedQueue[A]

	executor   *Executor[A]
	registry   *taskRegistry
	reactor    *Reactor
	ownReactor bool

	logger       Logger
	metrics      *Metrics
	batchSize    int
	panicHandler func(error)

	loopGID atomic.Uint64

	done chan struct{}

	errMu sync.Mutex
	err   error
}

// New constructs a Store over an initial state value, starting its drive
// goroutine immediately. R is the pointer-to-state type implementing
// Reducer[A] — it can't be inferred from state alone, so callers supply it
// explicitly, e.g.:
//
//	store := composable.New[CounterState, Action, *CounterState](CounterState{}, opts...)
//
// See DESIGN.md's "Store runtime" entry for why this differs from a naive
// New(state, reducer, opts...) reading: Reducer[A].Reduce takes no separate
// state parameter (the pointer receiver IS the state), so reducer and state
// can't be independent constructor arguments without risking two Stores'
// worth of state drifting out of sync.
func New[S, A any, R interface {
	*S
	Reducer[A]
}](state S, opts ...Option[S, A]) *Store[S, A] {
	cfg := resolveStoreOptions(opts)

	tx, rx := NewChannel[A]()

	reactor := cfg.reactor
	ownReactor := false
	if reactor == nil {
		reactor = NewReactor()
		ownReactor = true
	}

	st := &Store[S, A]{
		reduce:       func(s *S, a A, e Effects[A]) { R(s).Reduce(a, e) },
		state:        state,
		fast:         NewFastState(),
		tx:           tx,
		rx:           rx,
		registry:     newTaskRegistry(),
		reactor:      reactor,
		ownReactor:   ownReactor,
		logger:       cfg.logger,
		metrics:      cfg.metrics,
		batchSize:    cfg.batchSize,
		panicHandler: cfg.panicHandler,
		done:         make(chan struct{}),
	}
	st.executor = NewExecutor[A](tx.Downgrade(), st.loopGoroutineID)

	st.fast.TryTransition(StateAwake, StateRunning)
	go st.run()

	return st
}

func (s *Store[S, A]) loopGoroutineID() (uint64, bool) {
	id := s.loopGID.Load()
	return id, id != 0
}

// Send enqueues a without blocking. A Send against a draining or terminated
// Store is silently dropped, matching WeakSender's "no strong reference,
// no-op" contract elsewhere in this package.
func (s *Store[S, A]) Send(a A) {
	if !s.fast.CanAcceptWork() {
		return
	}
	s.tx.Send(a)
}

// Sync enqueues a and blocks until the drive goroutine has reduced it (and
// every synchronous follow-up it produced) and returned to waiting. The
// returned error is any PanicError/AggregateError accumulated by the Store
// since the last Sync/IntoInner call — a reducer panic is never silently
// lost, but it also never unwinds the caller's own goroutine.
func (s *Store[S, A]) Sync(a A) error {
	if !s.fast.CanAcceptWork() {
		return s.takeError()
	}
	s.tx.Sync(a)
	return s.takeError()
}

// IntoInner closes the Store for further external sends, drains whatever is
// already queued, cancels every outstanding Task via the registry, joins
// the drive goroutine, and returns the final state together with any
// accumulated error. Shutdown is an alias for the same operation — the
// donor names its analogous operation Shutdown; this package's vocabulary
// follows spec.md's into_inner() naming, exposing both.
func (s *Store[S, A]) IntoInner() (S, error) {
	for {
		cur := s.fast.Load()
		if cur == StateDraining || cur == StateTerminated {
			break
		}
		if s.fast.TryTransition(cur, StateDraining) {
			break
		}
	}
	s.tx.Close()
	<-s.done
	return s.state, s.takeError()
}

// Shutdown is an alias for [Store.IntoInner].
func (s *Store[S, A]) Shutdown() (S, error) { return s.IntoInner() }

// Metrics returns the Store's Metrics, or nil if it was constructed without
// [WithMetrics].
func (s *Store[S, A]) Metrics() *Metrics { return s.metrics }

func (s *Store[S, A]) setError(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
		return
	}
	var agg *AggregateError
	if errors.As(s.err, &agg) {
		agg.Errors = append(agg.Errors, err)
		return
	}
	s.err = &AggregateError{Errors: []error{s.err, err}}
}

func (s *Store[S, A]) takeError() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// run is the drive goroutine: block on the action channel, reduce, drain
// follow-ups, repeat. Grounded on loop.go's Loop.run/Loop.tick.
func (s *Store[S, A]) run() {
	s.loopGID.Store(getGoroutineID())

	effects := newStoreEffects[A](&s.follow, s.executor, s.registry, s.reactor, s.tx.Downgrade())

	defer func() {
		s.registry.cancelAll()
		if s.ownReactor {
			s.reactor.Close()
		}
		for {
			cur := s.fast.Load()
			if cur == StateTerminated {
				break
			}
			if s.fast.TryTransition(cur, StateTerminated) {
				break
			}
		}
		close(s.done)
	}()

	for {
		if s.metrics != nil {
			s.metrics.Queue.Update(s.rx.Len())
		}

		a, ok := s.rx.Next(nil)
		if !ok {
			return
		}

		s.logAction("store", "reduce", a)
		s.reduceStep(a, effects)
	}
}

// reduceStep reduces a, then drains the in-reduce follow-up buffer — each
// buffered action reduces in turn, refilling and draining the same buffer —
// until it is empty. The drain counts reductions in groups of s.batchSize
// (the joeycumines-go-utilpkg/microbatch fixed-size-chunk model, see
// SPEC_FULL.md DOMAIN STACK), but never stops early at a group boundary.
func (s *Store[S, A]) reduceStep(a A, effects Effects[A]) {
	start := time.Now()

	s.safeReduce(a, effects)
	if s.metrics != nil {
		s.metrics.recordAction()
	}

	inBatch := 0
	for {
		item, ok := s.follow.pop()
		if !ok {
			break
		}
		s.safeReduce(item, effects)
		if s.metrics != nil {
			s.metrics.recordAction()
		}
		inBatch++
		if inBatch >= s.batchSize {
			inBatch = 0
		}
	}

	if s.metrics != nil {
		s.metrics.Latency.Record(time.Since(start))
	}
}

// safeReduce invokes the reducer with panic recovery, mirroring loop.go's
// safeExecute: a recovered panic never unwinds the drive goroutine, it
// becomes a PanicError surfaced on the next Sync/IntoInner call (and, if
// configured, reported immediately to a WithPanicHandler callback).
func (s *Store[S, A]) safeReduce(a A, effects Effects[A]) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Value: r, Stack: string(debug.Stack())}
			s.setError(pe)
			if s.panicHandler != nil {
				s.panicHandler(pe)
			}
			if s.logger.IsEnabled(LevelError) {
				s.logger.Log(LogEntry{
					Level:    LevelError,
					Category: "store",
					Message:  "reducer panic recovered",
					Err:      pe,
				})
			}
		}
	}()
	s.reduce(&s.state, a, effects)
}

func (s *Store[S, A]) logAction(category, message string, a any) {
	if !s.logger.IsEnabled(LevelDebug) {
		return
	}
	s.logger.Log(LogEntry{
		Level:    LevelDebug,
		Category: category,
		Message:  message,
		Context:  map[string]any{"action": a},
	})
}
