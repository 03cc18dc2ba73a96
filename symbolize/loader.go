package symbolize

import (
	"os"
	"runtime"
)

// Info describes what the dynamic loader knows about an address.
// Module and Symbol are empty when unknown.
type Info struct {
	Module     string // path of the containing image
	ModuleBase uint64 // load address of Module
	Symbol     string // nearest preceding symbol
	SymbolAddr uint64 // absolute address of Symbol
}

// Loader maps an address to its containing module and symbol.
type Loader interface {
	Lookup(addr uint64) (Info, bool)
}

// procLoader is the Loader for the running process.
type procLoader struct {
	exe    string
	tables symbolTables
}

func newProcLoader() *procLoader {
	exe, err := os.Executable()
	if err != nil {
		logf("os.Executable: %v", err)
	}
	return &procLoader{exe: exe}
}

func (l *procLoader) Lookup(addr uint64) (Info, bool) {
	m, ok := currentModules(false).findModule(addr)
	if !ok {
		// The map may be stale if a library was loaded since.
		if m, ok = currentModules(true).findModule(addr); !ok {
			return Info{}, false
		}
	}
	info := Info{Module: m.Path, ModuleBase: m.Base}

	// Go functions are named from the runtime's own table; it survives
	// stripping the executable.
	// addr is a return address; look up the call instruction.
	if m.Path == l.exe || l.exe == "" {
		if fn := runtime.FuncForPC(uintptr(addr) - 1); fn != nil {
			info.Symbol = fn.Name()
			info.SymbolAddr = uint64(fn.Entry())
			return info, true
		}
	}
	if name, symAddr, ok := l.tables.get(m.Path).find(addr, m.Base); ok {
		info.Symbol = name
		info.SymbolAddr = symAddr
	}
	return info, true
}
