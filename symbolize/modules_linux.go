//go:build linux

package symbolize

import (
	"os"
	"sync"
)

var (
	modulesMu sync.Mutex
	modules   moduleMap
)

// currentModules returns the module map of the running process. The map is
// re-read when refresh is set, which callers do after a lookup miss because
// shared objects may have been loaded since the last read.
func currentModules(refresh bool) moduleMap {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	if modules != nil && !refresh {
		return modules
	}
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		logf("reading module map: %v", err)
		return modules
	}
	defer f.Close()
	mm, err := parseProcMaps(f)
	if err != nil {
		logf("parsing module map: %v", err)
		return modules
	}
	verbosef("loaded %d module segments", len(mm))
	modules = mm
	return modules
}
