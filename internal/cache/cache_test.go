package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tryteex/fcgiapp/internal/cacheval"
)

func TestGetSetRoundTrip(t *testing.T) {
	s := New()
	s.Set("setting:site_name", cacheval.String("tryteex"))

	got, ok := s.Get("setting:site_name")
	require.True(t, ok)
	v, ok := got.StringValue()
	require.True(t, ok)
	require.Equal(t, "tryteex", v)
}

func TestHasMissing(t *testing.T) {
	s := New()
	require.False(t, s.Has("route:/missing"))
}

func TestDelPrefix(t *testing.T) {
	s := New()
	s.Set("auth:1:user:admin:index", cacheval.Bool(true))
	s.Set("auth:1:user:admin:edit", cacheval.Bool(false))
	s.Set("auth:2:user:admin:index", cacheval.Bool(true))

	s.Del("auth:1:")

	require.False(t, s.Has("auth:1:user:admin:index"))
	require.False(t, s.Has("auth:1:user:admin:edit"))
	require.True(t, s.Has("auth:2:user:admin:index"))
}

// TestConcurrentSetNeverTornRead exercises spec.md §8: concurrent set(K,v1)
// and set(K,v2) followed by get(K) must return either v1 or v2, never a
// partially constructed value.
func TestConcurrentSetNeverTornRead(t *testing.T) {
	s := New()
	const key = "route:/concurrent"
	v1 := cacheval.String("index:index:index:::0")
	v2 := cacheval.String("user:admin:index:::0")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.Set(key, v1) }()
	go func() { defer wg.Done(); s.Set(key, v2) }()
	wg.Wait()

	got, ok := s.Get(key)
	require.True(t, ok)
	str, _ := got.StringValue()
	require.Contains(t, []string{"index:index:index:::0", "user:admin:index:::0"}, str)
}

func TestClear(t *testing.T) {
	s := New()
	s.Set("setting:a", cacheval.I64(1))
	s.Clear()
	require.False(t, s.Has("setting:a"))
}
