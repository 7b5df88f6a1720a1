package composable

import (
	"container/heap"
	"sync"
	"time"
)

// timerCallback is invoked by the Reactor when a scheduled entry comes due.
// now is the instant (real or virtual) at which the entry fired.
type timerCallback func(now time.Time)

type timerEntry struct {
	when  time.Time
	seq   uint64
	fn    timerCallback
	index int
}

// timerHeap orders entries by (when, seq) — ties broken by insertion order,
// matching the Rust original's Reverse<Instant> queue with stable ordering
// for equal keys.
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// TimerHandle references one scheduled entry on a Reactor.
type TimerHandle struct {
	r     *Reactor
	entry *timerEntry
}

// Cancel removes the entry if it has not yet fired. Returns false if the
// entry already fired or was already canceled.
func (h *TimerHandle) Cancel() bool {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	if h.entry.index < 0 {
		return false
	}
	heap.Remove(&h.r.heap, h.entry.index)
	return true
}

// Reactor is the timer wheel: an ordered queue of (instant, callback)
// entries, drained either by a single background goroutine parked on the
// earliest pending deadline (real-time mode) or synchronously on demand via
// [Reactor.Advance] (virtual-clock mode, used by [TestStore]).
//
// Grounded on the donor event loop's container/heap-based timerHeap plus
// calculateTimeout, and on the original Rust Reactor/Shared/Queue's
// park/park_timeout/drain_until/peek_next discipline: a new insertion only
// wakes the parking goroutine when it is earlier than everything already
// pending.
type Reactor struct {
	mu      sync.Mutex
	heap    timerHeap
	seq     uint64
	wake    chan struct{}
	closed  chan struct{}
	closeOn sync.Once
	virtual bool
	vnow    time.Time
}

// NewReactor creates a real-time Reactor backed by one background goroutine.
// Callers should Close it when no longer needed.
func NewReactor() *Reactor {
	r := &Reactor{
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	go r.run()
	return r
}

// NewVirtualReactor creates a deterministic Reactor whose clock only moves
// when [Reactor.Advance] is called. Used by [TestStore].
func NewVirtualReactor(start time.Time) *Reactor {
	return &Reactor{virtual: true, vnow: start}
}

var defaultReactor struct {
	once sync.Once
	r    *Reactor
}

// DefaultReactor returns a process-wide shared real-time Reactor, created
// lazily on first use. Stores that don't need per-instance timer isolation
// can share this one, the way the donor event loop's timer goroutine is
// amortized across users of a single Loop.
func DefaultReactor() *Reactor {
	defaultReactor.once.Do(func() {
		defaultReactor.r = NewReactor()
	})
	return defaultReactor.r
}

// DependencyDefault synthesizes [DefaultReactor] when no *Reactor has been
// pushed onto the dependency stack via [WithDependency], letting
// [GetOrDefault] stand in for an explicitly-threaded one. Grounded on
// effects/scheduler.rs's "impl DependencyDefault for Reactor {}".
func (*Reactor) DependencyDefault() *Reactor {
	return DefaultReactor()
}

// Now returns the Reactor's current clock reading — wall time for a
// real-time Reactor, the logical clock for a virtual one.
func (r *Reactor) Now() time.Time {
	if !r.virtual {
		return time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vnow
}

// Add schedules fn to run at when. Returns a handle that can cancel it
// before it fires.
func (r *Reactor) Add(when time.Time, fn timerCallback) *TimerHandle {
	r.mu.Lock()
	e := &timerEntry{when: when, seq: r.seq, fn: fn}
	r.seq++
	heap.Push(&r.heap, e)
	isEarliest := r.heap[0] == e
	r.mu.Unlock()

	if !r.virtual && isEarliest {
		r.notify()
	}
	return &TimerHandle{r: r, entry: e}
}

func (r *Reactor) notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Close stops the background goroutine of a real-time Reactor. A no-op on
// a virtual Reactor.
func (r *Reactor) Close() {
	if r.virtual {
		return
	}
	r.closeOn.Do(func() { close(r.closed) })
}

func (r *Reactor) run() {
	for {
		r.mu.Lock()
		if len(r.heap) == 0 {
			r.mu.Unlock()
			select {
			case <-r.wake:
				continue
			case <-r.closed:
				return
			}
		}
		next := r.heap[0].when
		r.mu.Unlock()

		d := time.Until(next)
		if d <= 0 {
			r.drainDue(time.Now())
			continue
		}

		timer := time.NewTimer(d)
		select {
		case <-timer.C:
			r.drainDue(time.Now())
		case <-r.wake:
			timer.Stop()
		case <-r.closed:
			timer.Stop()
			return
		}
	}
}

// drainDue fires every entry whose deadline is <= now, in chronological
// order, releasing the lock before invoking each callback — no lock is ever
// held across user code.
func (r *Reactor) drainDue(now time.Time) {
	for {
		r.mu.Lock()
		if len(r.heap) == 0 || r.heap[0].when.After(now) {
			r.mu.Unlock()
			return
		}
		e := heap.Pop(&r.heap).(*timerEntry)
		r.mu.Unlock()
		e.fn(now)
	}
}

// Advance moves a virtual Reactor's clock forward by d, firing every entry
// due at or before the new instant in chronological order. afterEach, if
// non-nil, runs after each individual firing and before the next — this is
// how [TestStore] drains a Store's synchronous fan-out between timer
// firings within one Advance call. Panics if called on a real-time Reactor.
func (r *Reactor) Advance(d time.Duration, afterEach func()) {
	if !r.virtual {
		panic("composable: Advance called on a non-virtual Reactor")
	}

	r.mu.Lock()
	target := r.vnow.Add(d)
	r.mu.Unlock()

	for {
		r.mu.Lock()
		if len(r.heap) == 0 || r.heap[0].when.After(target) {
			r.vnow = target
			r.mu.Unlock()
			return
		}
		e := heap.Pop(&r.heap).(*timerEntry)
		r.vnow = e.when
		now := r.vnow
		r.mu.Unlock()

		e.fn(now)
		if afterEach != nil {
			afterEach()
		}
	}
}
