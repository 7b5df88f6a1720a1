// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package composable

// storeOptions holds configuration resolved from a Store's constructor
// options. Grounded on the donor event loop's loopOptions/LoopOption split.
type storeOptions struct {
	logger       Logger
	metrics      *Metrics
	reactor      *Reactor
	batchSize    int
	panicHandler func(error)
}

// defaultBatchSize is the group size a Store's drive loop counts buffered
// follow-up actions in while draining them, mirroring microbatch.Batcher's
// fixed-size-chunk submission model (see DESIGN.md). The drain always runs
// until the follow-up buffer is empty before the channel is read again.
const defaultBatchSize = 256

// Option configures a [Store] at construction time.
type Option[S, A any] interface {
	applyStore(*storeOptions)
}

// optionFunc adapts a plain function to Option, the same loopOptionImpl
// shape the donor uses for LoopOption.
type optionFunc[S, A any] func(*storeOptions)

func (f optionFunc[S, A]) applyStore(opts *storeOptions) { f(opts) }

// WithLogger attaches a structured [Logger] to a Store. Defaults to
// NewNoOpLogger() if never set.
func WithLogger[S, A any](logger Logger) Option[S, A] {
	return optionFunc[S, A](func(opts *storeOptions) {
		opts.logger = logger
	})
}

// WithMetrics enables runtime metrics collection (actions processed, queue
// depth, reduce latency) on a Store, retrievable via Store.Metrics(). Timer
// firings are not recorded.
func WithMetrics[S, A any](enabled bool) Option[S, A] {
	return optionFunc[S, A](func(opts *storeOptions) {
		if enabled {
			opts.metrics = &Metrics{}
		} else {
			opts.metrics = nil
		}
	})
}

// WithSharedReactor binds a Store's Scheduler to an externally-owned
// Reactor (e.g. [DefaultReactor]) instead of creating a private one,
// amortizing one timer-parking goroutine across many Stores.
func WithSharedReactor[S, A any](r *Reactor) Option[S, A] {
	return optionFunc[S, A](func(opts *storeOptions) {
		opts.reactor = r
	})
}

// WithBatchSize sets the in-reduce follow-up buffer's drain batch size. The
// drive loop always drains the follow-up buffer completely before reading
// its external queue again, so the batch size does not change which actions
// are reduced or in what order. Must be > 0; non-positive values are ignored.
func WithBatchSize[S, A any](n int) Option[S, A] {
	return optionFunc[S, A](func(opts *storeOptions) {
		if n > 0 {
			opts.batchSize = n
		}
	})
}

// WithPanicHandler registers a callback invoked (on the drive goroutine,
// after recovery) whenever a reducer panics, in addition to the panic
// surfacing as a PanicError on the next Sync/IntoInner call — mirrors the
// donor's OnOverload hook shape.
func WithPanicHandler[S, A any](fn func(error)) Option[S, A] {
	return optionFunc[S, A](func(opts *storeOptions) {
		opts.panicHandler = fn
	})
}

// resolveStoreOptions applies every Option in order, producing a ready-to-use
// storeOptions with defaults filled in.
func resolveStoreOptions[S, A any](opts []Option[S, A]) *storeOptions {
	cfg := &storeOptions{
		logger:    NewNoOpLogger(),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyStore(cfg)
	}
	return cfg
}
