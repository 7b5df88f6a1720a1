package composable

import (
	"sync"
)

// msgKind distinguishes the two message shapes a channel carries.
type msgKind int

const (
	msgValue msgKind = iota
	msgBarrier
)

// msg is one entry in an action channel: either a value or a barrier
// rendezvous point. Grounded on the original Rust channel's Msg::Value /
// Msg::Barrier enum.
type msg[A any] struct {
	kind    msgKind
	value   A
	barrier *barrier
}

// barrier is a two-party rendezvous: the Sync caller blocks on wait() until
// the drive goroutine signals done() after dispatching the barrier message.
type barrier struct {
	wg sync.WaitGroup
}

func newBarrier() *barrier {
	b := &barrier{}
	b.wg.Add(1)
	return b
}

func (b *barrier) done() { b.wg.Done() }
func (b *barrier) wait() { b.wg.Wait() }

// shared is the cross-goroutine state of one action channel: a mutex-
// protected queue plus at most one parked waker. Grounded on the Rust
// original's Shared<T> (VecDeque + Option<Waker>) and on the donor event
// loop's ChunkedIngress for the queue's own storage.
//
// Invariants (unchanged from the spec this module implements):
//   - at most one waker is stored; each transition into "pending" consumes
//     or overwrites it;
//   - the receiver drains into a private buffer while holding the lock at
//     most once per poll;
//   - a Barrier always follows a Value from the same Sync call, so a
//     barrier can never be the first item observed after a buffer swap;
//   - senders is tracked; when it reaches zero and the queue is empty, the
//     stream ends.
type shared[A any] struct {
	mu      sync.Mutex
	queue   chunkedQueue[msg[A]]
	waker   chan struct{}
	senders int
}

func newShared[A any]() *shared[A] {
	return &shared[A]{senders: 1}
}

// wakeAfter runs fn with the lock held, capturing any parked waker
// beforehand, then signals that waker only after the lock has been
// released — "there are no extra wakes", per the original's wake_after.
func (s *shared[A]) wakeAfter(fn func()) {
	s.mu.Lock()
	waker := s.waker
	s.waker = nil
	fn()
	s.mu.Unlock()

	if waker != nil {
		close(waker)
	}
}

// Sender is the many-sender half of an action channel.
type Sender[A any] struct {
	s *shared[A]
}

// NewChannel creates a connected Sender/Receiver pair for actions of type A.
func NewChannel[A any]() (Sender[A], *Receiver[A]) {
	s := newShared[A]()
	return Sender[A]{s: s}, &Receiver[A]{s: s}
}

// Send enqueues v without blocking. At most one waker is woken per
// pending window — wakes are not coalesced beyond that.
func (tx Sender[A]) Send(v A) {
	tx.s.wakeAfter(func() {
		tx.s.queue.push(msg[A]{kind: msgValue, value: v})
	})
}

// Sync enqueues v followed by a barrier in one locked operation, wakes the
// receiver, then blocks the calling goroutine until the drive goroutine has
// processed v and its entire synchronous follow-up fan-out and re-entered
// its wait state. This is the one cross-goroutine blocking primitive in the
// public API, grounded on the original channel's sync()/wake_after pairing.
func (tx Sender[A]) Sync(v A) {
	b := newBarrier()
	tx.s.wakeAfter(func() {
		tx.s.queue.push(msg[A]{kind: msgValue, value: v})
		tx.s.queue.push(msg[A]{kind: msgBarrier, barrier: b})
	})
	b.wait()
}

// Downgrade returns a WeakSender that does not keep the channel open by
// itself.
func (tx Sender[A]) Downgrade() WeakSender[A] {
	return WeakSender[A]{s: tx.s}
}

// Close drops this Sender's contribution to the channel's live-sender
// count. Once every Sender (and every successfully-Upgraded WeakSender) has
// been closed, the Receiver observes end-of-stream once its queue is also
// drained.
func (tx Sender[A]) Close() {
	tx.s.wakeAfter(func() {
		tx.s.senders--
	})
}

// WeakSender is a lookup capability, not ownership: a Task holds one so
// that a running task does not keep the Store alive. Once every strong
// Sender is closed, Upgrade fails and the task's sends become silent
// no-ops, per the spec's weak-reference contract.
type WeakSender[A any] struct {
	s *shared[A]
}

// Upgrade returns a usable Sender if the channel is still open.
func (w WeakSender[A]) Upgrade() (Sender[A], bool) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	if w.s.senders <= 0 {
		return Sender[A]{}, false
	}
	w.s.senders++
	return Sender[A]{s: w.s}, true
}

// Receiver is the single-receiver half of an action channel.
type Receiver[A any] struct {
	s       *shared[A]
	private chunkedQueue[msg[A]]
}

// Len returns the approximate number of queued messages — the private
// buffer plus whatever remains in the shared queue, momentarily locked to
// read. Used only for metrics (see Metrics.Queue); never relied on for
// correctness.
func (r *Receiver[A]) Len() int {
	r.s.mu.Lock()
	n := r.s.queue.len()
	r.s.mu.Unlock()
	return n + r.private.len()
}

// TryNext returns the next value without blocking: ok is false if nothing is
// queued right now, regardless of whether the channel is still open. Used by
// [TestStore], which drives everything from one synchronous goroutine and
// never wants to park on a waker.
func (r *Receiver[A]) TryNext() (v A, ok bool) {
	for {
		if m, got := r.private.pop(); got {
			if m.kind == msgBarrier {
				m.barrier.done()
				continue
			}
			return m.value, true
		}

		r.s.mu.Lock()
		m, got := r.s.queue.pop()
		if !got {
			r.s.mu.Unlock()
			return v, false
		}
		r.s.queue.drainInto(&r.private)
		r.s.mu.Unlock()

		if m.kind == msgBarrier {
			panic("composable: observed a Barrier as the first message after a buffer swap")
		}
		return m.value, true
	}
}

// Next blocks until a value is available, the channel is closed with an
// empty queue (ok == false), or done is closed (ok == false, v is the zero
// value). Barriers encountered along the way are dispatched inline: the
// drive goroutine signals the barrier and continues to the next message
// without returning it to the caller.
//
// Grounded on the original channel's Receiver::poll_next: drain the private
// buffer first (dispatching barriers inline); if empty, lock, pop one
// value, swap the remainder of the shared queue into the private buffer in
// one locked operation, and return the value.
func (r *Receiver[A]) Next(done <-chan struct{}) (v A, ok bool) {
	for {
		if m, got := r.private.pop(); got {
			if m.kind == msgBarrier {
				// A barrier can only be reached here if it is NOT the first
				// item after a swap, which is guaranteed by the channel's
				// invariant that Barrier always follows its own Value.
				m.barrier.done()
				continue
			}
			return m.value, true
		}

		r.s.mu.Lock()
		if m, got := r.s.queue.pop(); got {
			r.s.queue.drainInto(&r.private)
			r.s.mu.Unlock()

			if m.kind == msgBarrier {
				panic("composable: observed a Barrier as the first message after a buffer swap")
			}
			return m.value, true
		}

		if r.s.senders <= 0 {
			r.s.mu.Unlock()
			return v, false
		}

		waker := make(chan struct{})
		r.s.waker = waker
		r.s.mu.Unlock()

		select {
		case <-waker:
		case <-done:
			return v, false
		}
	}
}
