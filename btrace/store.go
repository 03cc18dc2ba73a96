// Package btrace records labeled stack traces in a small per-context ring
// buffer and prints them on demand, typically from a crash handler.
//
// Code calls Capture at points of interest (before a collection, on entry
// to a risky section). If the process crashes shortly after, the crash
// report shows the recent traces of every context alongside the trace of
// the crash itself.
//
// Capturing is lock-free except on Windows, never fails and never panics.
// Resolving raw addresses to names happens only when printing.
package btrace

import (
	"sync/atomic"

	uatomic "go.uber.org/atomic"
)

// Store is a ring buffer of the last SaveTraces traces of one context.
type Store struct {
	slots  [SaveTraces]atomic.Pointer[Trace]
	cursor uatomic.Int32 // next slot to write, in [0, SaveTraces)

	// shared stores belong to a Context and are destroyed when it closes.
	// Detached stores are destroyed by whoever created them.
	shared bool
	dead   uatomic.Bool
}

func newStore(shared bool) *Store {
	return &Store{shared: shared}
}

// Shared reports whether the store belongs to a Context.
func (s *Store) Shared() bool {
	return s.shared
}

// nextSlotCAS advances the cursor with compare-and-swap and returns the
// slot to write. Concurrent callers always get distinct slots unless more
// than SaveTraces of them race.
func nextSlotCAS(cursor *uatomic.Int32) int {
	for {
		cur := cursor.Load()
		if cursor.CAS(cur, (cur+1)%SaveTraces) {
			return int(cur)
		}
	}
}

// nextSlotPlain advances the cursor with a plain increment-and-wrap. Two
// concurrent callers may get the same slot; the cursor stays in range.
func nextSlotPlain(cursor *uatomic.Int32) int {
	cur := cursor.Load()
	if cur < 0 || cur >= SaveTraces {
		cur = 0
	}
	next := cur + 1
	if next >= SaveTraces {
		next = 0
	}
	cursor.Store(next)
	return int(cur)
}

func (s *Store) nextSlot() int {
	return nextSlot(&s.cursor)
}

// publish installs t in slot i and releases the trace it replaces. A
// capture that finishes after Destroy releases its own trace.
func (s *Store) publish(i int, t *Trace) {
	if old := s.slots[i].Swap(t); old != nil {
		old.release()
	}
	if s.dead.Load() {
		if cur := s.slots[i].Swap(nil); cur != nil {
			cur.release()
		}
	}
}

// trace returns the k-th most recent trace (1 is the newest), or nil.
func (s *Store) trace(k int) *Trace {
	if k < 1 || k > SaveTraces {
		return nil
	}
	i := (int(s.cursor.Load()) - k) % SaveTraces
	if i < 0 {
		i += SaveTraces
	}
	return s.slots[i].Load()
}

// named returns the most recent trace with the given label, or nil.
func (s *Store) named(label string) *Trace {
	i := int(s.cursor.Load()) - 1
	for n := 0; n < SaveTraces; n++ {
		if i < 0 {
			i += SaveTraces
		}
		if t := s.slots[i].Load(); t != nil && t.Label == label {
			return t
		}
		i--
	}
	return nil
}

// Labels returns the labels of the stored traces, newest first.
func (s *Store) Labels() []string {
	var labels []string
	for k := 1; k <= SaveTraces; k++ {
		if t := s.trace(k); t != nil {
			labels = append(labels, t.Label)
		}
	}
	return labels
}

// Destroy releases every stored trace. It must be called exactly once:
// by the owning Context for shared stores, by the creator for detached
// ones. Further calls are logged and ignored.
func (s *Store) Destroy() {
	if s == nil {
		return
	}
	if !s.dead.CAS(false, true) {
		logf("store destroyed twice")
		return
	}
	for i := range s.slots {
		if t := s.slots[i].Swap(nil); t != nil {
			t.release()
		}
	}
}
