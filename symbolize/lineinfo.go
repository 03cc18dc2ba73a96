package symbolize

import (
	"fmt"
	"runtime"
)

// PCInfo gives information about a program counter.
type PCInfo struct {
	PC   uint64    // program counter value
	File string    // path to the file containing the line that compiled to PC
	Line uint64    // line number in File that compiled to PC
	Func *FuncInfo // function that contains PC
}

// FuncInfo gives information about a function.
type FuncInfo struct {
	Name    string
	EntryPC uint64
}

// String formats the line-level form "func() at file:line".
func (info *PCInfo) String() string {
	return fmt.Sprintf("%s() at %s:%d", info.Func.Name, info.File, info.Line)
}

// goPCInfo returns information about a program counter in Go code of the
// running executable, using the runtime's line tables. pc is a return
// address as recorded by runtime.Callers.
func goPCInfo(pc uint64) (*PCInfo, error) {
	if pc == 0 {
		return nil, fmt.Errorf("no line information for PC 0x0")
	}
	fn := runtime.FuncForPC(uintptr(pc) - 1)
	if fn == nil {
		return nil, fmt.Errorf("PC 0x%x not contained in a Go function", pc)
	}
	frames := runtime.CallersFrames([]uintptr{uintptr(pc)})
	f, _ := frames.Next()
	if f.File == "" || f.Line == 0 {
		return nil, fmt.Errorf("could not find line information about PC 0x%x", pc)
	}
	name := f.Function
	if name == "" {
		name = fn.Name()
	}
	return &PCInfo{
		PC:   pc,
		File: f.File,
		Line: uint64(f.Line),
		Func: &FuncInfo{
			Name:    name,
			EntryPC: uint64(fn.Entry()),
		},
	}, nil
}
