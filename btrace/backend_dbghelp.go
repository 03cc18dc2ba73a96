//go:build !cstack_none && !cstack_unwind && windows

package btrace

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const dbghelpDepth = 10

// dbghelpBackend resolves module and function while capturing. The module
// queries are serialized by mu, so concurrent captures on Windows may wait
// for each other.
type dbghelpBackend struct {
	mu sync.Mutex
}

func newBackend() backend { return &dbghelpBackend{} }

func (*dbghelpBackend) name() string    { return "dbghelp" }
func (*dbghelpBackend) supported() bool { return true }

func (b *dbghelpBackend) capture(label string, skip int) *Trace {
	var pcs [dbghelpDepth]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	t := &Trace{Label: label, Frames: make([]Frame, n)}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, pc := range pcs[:n] {
		f := &t.Frames[i]
		f.PC = pc
		f.Func = "?"
		if fn := runtime.FuncForPC(pc - 1); fn != nil {
			f.Func = truncate(fn.Name(), maxFuncName)
			f.Offset = pc - fn.Entry()
		}
		f.Module, f.ModuleErr = moduleName(pc)
	}
	return t
}

// moduleName returns the base name of the image containing pc.
func moduleName(pc uintptr) (string, error) {
	var h windows.Handle
	flags := uint32(windows.GET_MODULE_HANDLE_EX_FLAG_FROM_ADDRESS | windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT)
	if err := windows.GetModuleHandleEx(flags, (*uint16)(unsafe.Pointer(pc)), &h); err != nil {
		return "", err
	}
	var buf [windows.MAX_PATH]uint16
	n, err := windows.GetModuleFileName(h, &buf[0], uint32(len(buf)))
	if err != nil {
		return "", err
	}
	return truncate(filepath.Base(windows.UTF16ToString(buf[:n])), maxModuleName), nil
}

func (*dbghelpBackend) format(f *Frame) string {
	if f.Module == "" {
		return fmt.Sprintf("<unknown module>:%s [0x%x]", f.Func, f.PC)
	}
	return fmt.Sprintf("<%s>:%s() [0x%x]", f.Module, f.Func, f.PC)
}
