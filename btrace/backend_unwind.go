//go:build !cstack_none && !js && !wasip1 && (cstack_unwind || !(unix || windows))

package btrace

import (
	"fmt"
	"runtime"
)

const unwindDepth = 10

// unwindBackend names each frame while walking, so printing needs no
// symbol lookup.
type unwindBackend struct{}

func newBackend() backend { return &unwindBackend{} }

func (*unwindBackend) name() string    { return "unwind" }
func (*unwindBackend) supported() bool { return true }

func (*unwindBackend) capture(label string, skip int) *Trace {
	var pcs [unwindDepth]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	t := &Trace{Label: label, Frames: make([]Frame, 0, n)}
	if n == 0 {
		return t
	}
	frames := runtime.CallersFrames(pcs[:n])
	for len(t.Frames) < unwindDepth {
		f, more := frames.Next()
		name := f.Function
		if name == "" {
			name = "?"
		}
		t.Frames = append(t.Frames, Frame{
			PC:     f.PC,
			Func:   truncate(name, maxFuncName),
			Offset: f.PC - f.Entry,
		})
		if !more {
			break
		}
	}
	return t
}

func (*unwindBackend) format(f *Frame) string {
	return fmt.Sprintf("%s+0x%x", f.Func, f.Offset)
}
