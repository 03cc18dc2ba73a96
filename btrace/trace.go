package btrace

import (
	uatomic "go.uber.org/atomic"
)

const (
	// SaveTraces is the number of traces kept per context.
	SaveTraces = 10

	maxFuncName   = 32
	maxModuleName = 64
)

// Frame is one captured stack level. Backends that resolve while walking
// the stack fill in Func and Offset (and, on Windows, Module); the others
// record only PC.
type Frame struct {
	PC     uintptr
	Func   string
	Offset uintptr
	Module string

	// ModuleErr explains an empty Module.
	ModuleErr error
}

// Trace is a labeled stack capture. A trace is immutable once published
// into a store slot.
type Trace struct {
	Label string

	// Frames holds pre-resolved frames, innermost first.
	Frames []Frame

	// PCs holds raw return addresses for backends that resolve at print
	// time. The buffer is owned by the trace and released once.
	PCs []uintptr

	released uatomic.Bool
}

var (
	liveBuffers   uatomic.Int64 // raw PC buffers not yet released
	badReleases   uatomic.Int64 // releases of an already released trace
	capturePanics uatomic.Int64
)

// newRawTrace returns a trace owning a PC buffer of the given depth.
func newRawTrace(label string, depth int) *Trace {
	liveBuffers.Inc()
	return &Trace{Label: label, PCs: make([]uintptr, depth)}
}

// Depth returns the number of captured frames.
func (t *Trace) Depth() int {
	if t == nil {
		return 0
	}
	if t.Frames != nil {
		return len(t.Frames)
	}
	return len(t.PCs)
}

// release gives up the trace's PC buffer. It runs when the trace's slot is
// overwritten or its store destroyed. The buffer itself is left to the
// garbage collector: a concurrent printer may still be reading it.
func (t *Trace) release() {
	if !t.released.CAS(false, true) {
		badReleases.Inc()
		logf("trace %q released twice", t.Label)
		return
	}
	if t.PCs != nil {
		liveBuffers.Dec()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
