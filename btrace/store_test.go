package btrace

import (
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	uatomic "go.uber.org/atomic"
)

func TestNextSlot(t *testing.T) {
	for name, next := range map[string]func(*uatomic.Int32) int{
		"cas":   nextSlotCAS,
		"plain": nextSlotPlain,
	} {
		t.Run(name, func(t *testing.T) {
			var cursor uatomic.Int32
			for i := 0; i < 3*SaveTraces; i++ {
				assert.Equal(t, i%SaveTraces, next(&cursor))
				assert.Equal(t, int32((i+1)%SaveTraces), cursor.Load())
			}
		})
	}
}

func TestNextSlotPlainOutOfRange(t *testing.T) {
	cursor := uatomic.NewInt32(SaveTraces + 3)
	assert.Equal(t, 0, nextSlotPlain(cursor))
	assert.Equal(t, int32(1), cursor.Load())
}

func TestNextSlotConcurrent(t *testing.T) {
	const goroutines, perGoroutine = 8, 1000

	t.Run("cas", func(t *testing.T) {
		var cursor uatomic.Int32
		var counts [SaveTraces]uatomic.Int64
		var wg sync.WaitGroup
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perGoroutine; i++ {
					counts[nextSlotCAS(&cursor)].Inc()
				}
			}()
		}
		wg.Wait()
		// Every advance is counted exactly once.
		assert.Equal(t, int32(goroutines*perGoroutine%SaveTraces), cursor.Load())
		for i := range counts {
			assert.Equal(t, int64(goroutines*perGoroutine/SaveTraces), counts[i].Load(), "slot %d", i)
		}
	})

	t.Run("plain", func(t *testing.T) {
		var cursor uatomic.Int32
		var wg sync.WaitGroup
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perGoroutine; i++ {
					slot := nextSlotPlain(&cursor)
					if slot < 0 || slot >= SaveTraces {
						t.Errorf("slot %d out of range", slot)
						return
					}
				}
			}()
		}
		wg.Wait()
		c := cursor.Load()
		assert.True(t, c >= 0 && c < SaveTraces, "cursor %d out of range", c)
	})
}

// fill publishes n raw traces labeled "0", "1", ... into s, each holding
// its own index in every PC.
func fill(s *Store, n int) {
	for i := 0; i < n; i++ {
		t := newRawTrace(strconv.Itoa(i), 4)
		for k := range t.PCs {
			t.PCs[k] = uintptr(i)
		}
		s.publish(s.nextSlot(), t)
	}
}

func TestStoreEviction(t *testing.T) {
	s := newStore(false)
	defer s.Destroy()
	fill(s, SaveTraces+5)

	for k := 1; k <= SaveTraces; k++ {
		tr := s.trace(k)
		require.NotNil(t, tr, "trace(%d)", k)
		assert.Equal(t, strconv.Itoa(SaveTraces+5-k), tr.Label, "trace(%d)", k)
	}
	assert.Nil(t, s.trace(0))
	assert.Nil(t, s.trace(SaveTraces+1))

	for i := 0; i < 5; i++ {
		assert.Nil(t, s.named(strconv.Itoa(i)), "%d should be evicted", i)
	}
	assert.Same(t, s.trace(1), s.named(strconv.Itoa(SaveTraces+4)))
	assert.Len(t, s.Labels(), SaveTraces)
}

func TestStoreNamedFindsMostRecent(t *testing.T) {
	s := newStore(false)
	defer s.Destroy()
	first := &Trace{Label: "gc"}
	second := &Trace{Label: "gc"}
	s.publish(s.nextSlot(), first)
	s.publish(s.nextSlot(), &Trace{Label: "other"})
	s.publish(s.nextSlot(), second)
	assert.Same(t, second, s.named("gc"))
}

func TestDestroyReleasesOnce(t *testing.T) {
	live, bad := liveBuffers.Load(), badReleases.Load()

	s := newStore(false)
	fill(s, 3) // most slots stay empty
	assert.Equal(t, live+3, liveBuffers.Load())
	s.Destroy()
	assert.Equal(t, live, liveBuffers.Load())

	s = newStore(false)
	fill(s, 2*SaveTraces+3)
	assert.Equal(t, live+SaveTraces, liveBuffers.Load(), "overwritten slots must be released")
	s.Destroy()
	s.Destroy()
	assert.Equal(t, live, liveBuffers.Load())
	assert.Equal(t, bad, badReleases.Load())

	var nilStore *Store
	nilStore.Destroy()
}

func TestReleaseTwice(t *testing.T) {
	bad := badReleases.Load()
	tr := newRawTrace("x", 1)
	tr.release()
	tr.release()
	assert.Equal(t, bad+1, badReleases.Load())
}

func TestConcurrentPublish(t *testing.T) {
	live := liveBuffers.Load()
	s := newStore(true)

	const goroutines, perGoroutine = 8, 500
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				id := g*perGoroutine + i
				tr := newRawTrace(strconv.Itoa(id), 8)
				for k := range tr.PCs {
					tr.PCs[k] = uintptr(id)
				}
				s.publish(s.nextSlot(), tr)
			}
		}(g)
	}
	wg.Wait()

	c := s.cursor.Load()
	assert.True(t, c >= 0 && c < SaveTraces, "cursor %d out of range", c)
	for i := range s.slots {
		tr := s.slots[i].Load()
		require.NotNil(t, tr, "slot %d", i)
		want := uintptr(mustAtoi(t, tr.Label))
		for k, pc := range tr.PCs {
			assert.Equal(t, want, pc, "slot %d pc %d: torn trace", i, k)
		}
	}
	assert.Equal(t, live+SaveTraces, liveBuffers.Load())
	s.Destroy()
	assert.Equal(t, live, liveBuffers.Load())
}

func mustAtoi(t *testing.T, s string) int {
	n, err := strconv.Atoi(s)
	require.NoError(t, err, fmt.Sprintf("label %q", s))
	return n
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "", truncate("", 2))
}
