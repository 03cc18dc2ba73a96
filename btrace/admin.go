package btrace

import (
	"sort"
	"sync"

	"github.com/tombergan/cstack/diag"
)

// AdminFunc is an entry point for interactive tooling. It takes at most
// one argument and reports success.
type AdminFunc func(args ...string) bool

var (
	adminMu       sync.Mutex
	adminCommands = map[string]AdminFunc{}
)

func registerAdmin(name string, fn AdminFunc) {
	adminMu.Lock()
	defer adminMu.Unlock()
	adminCommands[name] = fn
}

// AdminCommand returns the named admin entry point. Entry points exist only
// in builds with the cstack_debug tag.
func AdminCommand(name string) (AdminFunc, bool) {
	adminMu.Lock()
	defer adminMu.Unlock()
	fn, ok := adminCommands[name]
	return fn, ok
}

// AdminCommands lists the registered admin entry points.
func AdminCommands() []string {
	adminMu.Lock()
	defer adminMu.Unlock()
	names := make([]string, 0, len(adminCommands))
	for name := range adminCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// clearTraces drops the traces of the current context.
func clearTraces(args ...string) bool {
	if len(args) != 0 {
		return false
	}
	if c := Current(); c != nil {
		c.Clear()
	}
	return true
}

// printTrace prints the current context's newest trace with the given
// label.
func printTrace(args ...string) bool {
	if len(args) != 1 {
		return false
	}
	getIfExists(Current()).FprintNamed(diag.Output(), args[0])
	return true
}
