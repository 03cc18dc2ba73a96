package btrace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttach(t *testing.T) {
	assert.Nil(t, Current())
	c := Attach("main")
	assert.Same(t, c, Current())
	assert.Same(t, c, Attach("again"), "second Attach returns the existing context")
	assert.Equal(t, ThreadSelf(), c.ID)

	alias, ok := ThreadAlias(c.ID)
	assert.True(t, ok)
	assert.Equal(t, "main", alias)

	c.Close()
	assert.Nil(t, Current())
	_, ok = ThreadAlias(c.ID)
	assert.False(t, ok)
	c.Close()
}

func TestContextsAreIndependent(t *testing.T) {
	c := Attach("")
	defer c.Close()
	s := getOrCreate(c)
	require.True(t, s.Shared())

	var other *Store
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		oc := Attach("")
		defer oc.Close()
		other = getOrCreate(oc)
		assert.NotSame(t, s, other)
	}()
	wg.Wait()
	assert.Same(t, s, getOrCreate(c), "store is created once")
}

func TestGetOrCreateRace(t *testing.T) {
	c := &Context{ID: -1}
	var wg sync.WaitGroup
	stores := make([]*Store, 16)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores[i] = getOrCreate(c)
		}(i)
	}
	wg.Wait()
	for _, s := range stores {
		assert.Same(t, stores[0], s)
	}
	c.Close()
}

func TestCloseDestroysStore(t *testing.T) {
	live := liveBuffers.Load()
	c := Attach("")
	s := getOrCreate(c)
	fill(s, 4)
	c.Close()
	assert.Nil(t, c.Store())
	assert.Equal(t, live, liveBuffers.Load())
	assert.True(t, s.dead.Load())

	s = getOrCreate(c)
	assert.False(t, s.Shared(), "closed context hands out detached stores")
}

// A capture that picked up the store before a concurrent Clear still
// publishes into it after Destroy.
func TestCaptureAfterClearReleases(t *testing.T) {
	live, bad := liveBuffers.Load(), badReleases.Load()
	c := Attach("")
	defer c.Close()
	s := getOrCreate(c)
	require.True(t, c.Clear())

	captureInto(s, "late", 0)
	s.publish(s.nextSlot(), newRawTrace("late", 4))

	assert.Nil(t, s.trace(1))
	assert.Equal(t, live, liveBuffers.Load())
	assert.Equal(t, bad, badReleases.Load())
}

func TestClear(t *testing.T) {
	c := Attach("")
	defer c.Close()
	assert.False(t, c.Clear())
	fill(getOrCreate(c), 2)
	assert.True(t, c.Clear())
	assert.Nil(t, c.Store())
}

func TestGetIfExists(t *testing.T) {
	assert.Nil(t, getIfExists(nil))
	s := getOrCreate(nil)
	assert.False(t, s.Shared())
	s.Destroy()
}
