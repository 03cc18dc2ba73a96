//go:build !linux

package symbolize

import (
	"math"
	"os"
	"sync"
)

var (
	modulesOnce sync.Once
	modules     moduleMap
)

// currentModules has no loader introspection to draw on here, so the whole
// address space is attributed to the executable with an unknown base.
// Symbol lookups for Go code go through the runtime function table instead.
func currentModules(refresh bool) moduleMap {
	modulesOnce.Do(func() {
		exe, err := os.Executable()
		if err != nil {
			logf("locating executable: %v", err)
			return
		}
		modules = moduleMap{{start: 0, end: math.MaxUint64, module: &Module{Path: exe}}}
	})
	return modules
}
