package composable

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDependency_NotInScope(t *testing.T) {
	_, ok := Dependency[int]()
	require.False(t, ok)
}

func TestWithDependency_ScopedAndPopped(t *testing.T) {
	WithDependency(42, func() {
		v, ok := Dependency[int]()
		require.True(t, ok)
		require.Equal(t, 42, v)
	})

	_, ok := Dependency[int]()
	require.False(t, ok)
}

func TestWithDependency_Nested(t *testing.T) {
	WithDependency("outer", func() {
		WithDependency("inner", func() {
			v, _ := Dependency[string]()
			require.Equal(t, "inner", v)
		})
		// Popped back to the outer value, not cleared entirely.
		v, ok := Dependency[string]()
		require.True(t, ok)
		require.Equal(t, "outer", v)
	})
}

func TestWithDependency_PopsOnPanic(t *testing.T) {
	require.Panics(t, func() {
		WithDependency("doomed", func() {
			panic("boom")
		})
	})
	_, ok := Dependency[string]()
	require.False(t, ok)
}

func TestWithDependencies_PushesInOrderPopsInReverse(t *testing.T) {
	WithDependencies(func() {
		i, ok := Dependency[int]()
		require.True(t, ok)
		require.Equal(t, 7, i)

		s, ok := Dependency[string]()
		require.True(t, ok)
		require.Equal(t, "seven", s)
	}, Dep(7), Dep("seven"))

	_, ok := Dependency[int]()
	require.False(t, ok)
	_, ok = Dependency[string]()
	require.False(t, ok)
}

// TestDependency_PerGoroutine confirms a dependency scope entered on one
// goroutine is invisible to another, matching the original's thread_local!
// semantics (see dependency.go's dependencyStacks doc comment).
func TestDependency_PerGoroutine(t *testing.T) {
	var wg sync.WaitGroup
	entered := make(chan struct{})
	checked := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		WithDependency(99, func() {
			close(entered)
			<-checked
		})
	}()

	<-entered
	_, ok := Dependency[int]()
	require.False(t, ok)
	close(checked)
	wg.Wait()
}

// TestGetOrDefault exercises the DependencyDefault marker: with no *Reactor
// pushed, it falls back to DefaultReactor(); once one is pushed, that value
// wins instead.
func TestGetOrDefault(t *testing.T) {
	r, ok := Dependency[*Reactor]()
	require.False(t, ok)
	require.Nil(t, r)

	got := GetOrDefault[*Reactor]()
	require.Same(t, DefaultReactor(), got)

	custom := NewVirtualReactor(DefaultReactor().Now())
	WithDependency(custom, func() {
		require.Same(t, custom, GetOrDefault[*Reactor]())
	})

	// Back outside the scope, the fallback applies again.
	require.Same(t, DefaultReactor(), GetOrDefault[*Reactor]())
}
