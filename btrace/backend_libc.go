//go:build !cstack_none && !cstack_unwind && unix

package btrace

import "runtime"

const libcDepth = 100

// libcBackend records raw return addresses and leaves naming them to the
// resolver at print time.
type libcBackend struct{}

func newBackend() backend { return &libcBackend{} }

func (*libcBackend) name() string    { return "libc" }
func (*libcBackend) supported() bool { return true }

func (*libcBackend) capture(label string, skip int) *Trace {
	t := newRawTrace(label, libcDepth)
	n := runtime.Callers(skip+2, t.PCs)
	t.PCs = t.PCs[:n]
	return t
}

func (*libcBackend) format(f *Frame) string {
	return resolvePC(f.PC)
}
