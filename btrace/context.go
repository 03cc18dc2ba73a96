package btrace

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	uatomic "go.uber.org/atomic"
)

// Context is an execution context: a goroutine that keeps its own trace
// store. Goroutines that never Attach capture into detached stores.
type Context struct {
	ID    int64 // goroutine id
	Alias string

	store  atomic.Pointer[Store]
	closed uatomic.Bool
}

// contexts maps goroutine ids to attached contexts.
var contexts sync.Map

// Attach binds a context to the calling goroutine and returns it. If the
// goroutine is already attached its existing context is returned.
// The caller must Close the context before the goroutine exits.
func Attach(alias string) *Context {
	id := goid.Get()
	c, loaded := contexts.LoadOrStore(id, &Context{ID: id, Alias: alias})
	if loaded {
		logf("goroutine %d already attached", id)
	}
	return c.(*Context)
}

// Current returns the context of the calling goroutine, or nil.
func Current() *Context {
	return lookup(goid.Get())
}

func lookup(id int64) *Context {
	if c, ok := contexts.Load(id); ok {
		return c.(*Context)
	}
	return nil
}

// Close detaches the context and destroys its store. Only the first call
// has an effect.
func (c *Context) Close() {
	if !c.closed.CAS(false, true) {
		return
	}
	contexts.CompareAndDelete(c.ID, c)
	if s := c.store.Swap(nil); s != nil {
		s.Destroy()
	}
}

// Clear destroys the context's stored traces. It reports whether there
// were any.
func (c *Context) Clear() bool {
	s := c.store.Swap(nil)
	if s == nil {
		return false
	}
	s.Destroy()
	return true
}

// Store returns the context's store without creating it.
func (c *Context) Store() *Store {
	return getIfExists(c)
}

// getOrCreate returns the store of c, creating it on first use. A nil
// context gets a fresh detached store, which the caller must destroy.
func getOrCreate(c *Context) *Store {
	if c == nil {
		return newStore(false)
	}
	if c.closed.Load() {
		logf("capture on closed context %d", c.ID)
		return newStore(false)
	}
	if s := c.store.Load(); s != nil {
		return s
	}
	s := newStore(true)
	if c.store.CompareAndSwap(nil, s) {
		return s
	}
	// Lost the race against a concurrent capture on this context.
	return c.store.Load()
}

func getIfExists(c *Context) *Store {
	if c == nil {
		return nil
	}
	return c.store.Load()
}

// attached returns all attached contexts ordered by id.
func attached() []*Context {
	var cs []*Context
	contexts.Range(func(_, v interface{}) bool {
		cs = append(cs, v.(*Context))
		return true
	})
	sort.Slice(cs, func(i, k int) bool { return cs[i].ID < cs[k].ID })
	return cs
}

// ThreadSelf returns the id of the calling goroutine.
func ThreadSelf() int64 {
	return goid.Get()
}

// ThreadAlias returns the alias of the context attached to goroutine id.
func ThreadAlias(id int64) (string, bool) {
	c := lookup(id)
	if c == nil || c.Alias == "" {
		return "", false
	}
	return c.Alias, true
}
