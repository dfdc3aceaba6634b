package roomlock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForReturnsSameMutexForSameCodeAndIndependentForDifferentCodes(t *testing.T) {
	r := New()

	a1 := r.For("ROOMA")
	a2 := r.For("ROOMA")
	b1 := r.For("ROOMB")

	require.Same(t, a1, a2, "repeated lookups for the same room code return the same mutex")
	require.NotSame(t, a1, b1, "different room codes get independent mutexes")
}

func TestDropRemovesEntrySoNextForAllocatesAFreshMutex(t *testing.T) {
	r := New()

	first := r.For("ROOMA")
	r.Drop("ROOMA")
	second := r.For("ROOMA")

	require.NotSame(t, first, second, "Drop must make For allocate a new mutex rather than reuse a stale one")
}

func TestWithLockRunsFnUnderTheRoomsMutex(t *testing.T) {
	r := New()
	ran := false

	r.WithLock("ROOMA", func() {
		ran = true
		// the mutex must already be held: a concurrent For+TryLock on the
		// same code must fail while fn is still running.
		require.False(t, r.For("ROOMA").TryLock())
	})

	require.True(t, ran)
	require.True(t, r.For("ROOMA").TryLock(), "the mutex must be released once WithLock returns")
}

func TestWithLockOnDifferentCodesDoesNotContend(t *testing.T) {
	r := New()
	outerRan, innerRan := false, false

	r.WithLock("ROOMA", func() {
		outerRan = true
		r.WithLock("ROOMB", func() {
			innerRan = true
		})
	})

	require.True(t, outerRan)
	require.True(t, innerRan, "locks for different room codes must not nest/deadlock")
}
