package composable

import (
	"reflect"
	"runtime"
	"sync"
)

// getGoroutineID parses the current goroutine's numeric ID out of its own
// stack trace header ("goroutine 123 [running]:..."). Ported verbatim from
// the donor event loop's getGoroutineID; it is the only portable way to
// obtain this value without cgo or a custom runtime build.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// dependencyStacks holds, per goroutine ID, a LIFO stack of values keyed by
// their dynamic type. This is the Go substitute for the original's
// thread_local! dependency stack (dependencies/mod.rs): Go has neither
// thread-locals nor goroutine-locals, so the stack is keyed explicitly by
// the same goroutine-ID lookup the donor uses for its isLoopThread check
// (see executor.go's isLoopThread).
//
// This means a dependency scope is only visible to code running on the
// exact goroutine that entered it — a reducer's Effects callbacks that hop
// goroutines (e.g. a Task's spawned goroutine) do not see the scope unless
// they re-enter it themselves. This matches the original crate's
// thread_local! semantics, where a spawned OS thread likewise does not
// inherit the caller's dependency stack.
var dependencyStacks sync.Map // map[uint64]map[reflect.Type][]any

func depStackFor(gid uint64) map[reflect.Type][]any {
	if v, ok := dependencyStacks.Load(gid); ok {
		return v.(map[reflect.Type][]any)
	}
	m := make(map[reflect.Type][]any)
	actual, _ := dependencyStacks.LoadOrStore(gid, m)
	return actual.(map[reflect.Type][]any)
}

func pushDependency(t reflect.Type, value any) {
	gid := getGoroutineID()
	m := depStackFor(gid)
	m[t] = append(m[t], value)
}

func popDependency(t reflect.Type) {
	gid := getGoroutineID()
	m := depStackFor(gid)
	stack := m[t]
	if len(stack) == 0 {
		return
	}
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(m, t)
	} else {
		m[t] = stack
	}
	if len(m) == 0 {
		dependencyStacks.Delete(gid)
	}
}

// WithDependency runs fn with value pushed onto the current goroutine's
// dependency stack for type T, popping it again before returning — even if
// fn panics. Grounded on dependencies/mod.rs's with_dependency.
func WithDependency[T any](value T, fn func()) {
	t := reflect.TypeFor[T]()
	pushDependency(t, value)
	defer popDependency(t)
	fn()
}

// WithDependencies pushes multiple values of possibly-different types for
// the duration of fn, in order, popping them in reverse order afterward.
// Grounded on dependencies/mod.rs's with_dependencies.
func WithDependencies(fn func(), pushes ...func(func())) {
	if len(pushes) == 0 {
		fn()
		return
	}
	pushes[0](func() {
		WithDependencies(fn, pushes[1:]...)
	})
}

// Dep wraps a value so it can be passed to [WithDependencies] as one entry.
func Dep[T any](value T) func(func()) {
	return func(fn func()) { WithDependency(value, fn) }
}

// DependencyDefault marks T as having a synthesizable fallback, for use with
// [GetOrDefault]. Grounded on dependencies/mod.rs's DependencyDefault marker
// trait (e.g. "impl DependencyDefault for Reactor {}" in
// effects/scheduler.rs): the original's marker pairs with the type's own
// Default impl to synthesize a fallback; Go has no implicit Default, so the
// marker method supplies the fallback value directly instead.
type DependencyDefault[T any] interface {
	DependencyDefault() T
}

// GetOrDefault looks up the most recently pushed value of type T, the same
// way [Dependency] does, but falls back to T's own DependencyDefault()
// instead of reporting ok == false when none is in scope. Grounded on
// dependencies/mod.rs's get_or_default, exposed only where T:
// DependencyDefault. See [*Reactor.DependencyDefault] for the one concrete
// instance this module ships.
func GetOrDefault[T DependencyDefault[T]]() T {
	if v, ok := Dependency[T](); ok {
		return v
	}
	var zero T
	return zero.DependencyDefault()
}

// Dependency looks up the most recently pushed value of type T on the
// calling goroutine's dependency stack. ok is false if none is in scope.
//
// This collapses the original's Ref<'a, T> (Borrowed/Owned) distinction to
// a single return value: Go has no borrow checker forcing that split, so
// ownership of the returned T is left to the caller exactly as with any
// other Go API returning a value.
func Dependency[T any]() (T, bool) {
	gid := getGoroutineID()
	m := depStackFor(gid)
	stack := m[reflect.TypeFor[T]()]
	if len(stack) == 0 {
		var zero T
		return zero, false
	}
	return stack[len(stack)-1].(T), true
}
