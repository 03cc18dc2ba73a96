package crash

import "fmt"

// panicStatus is the exit status Go uses for an unrecovered panic.
const panicStatus = 2

// RecoverPanic reports a panic through the installed crash handler and
// panics again with the same value. It must be deferred directly:
//
//	defer crash.RecoverPanic()
//
// Without an installed handler it only re-panics.
func RecoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	installMu.Lock()
	h := installed
	installMu.Unlock()
	if h != nil {
		h.handlePanic(r)
	}
	panic(r)
}

// handlePanic runs the crash report for a panic value. The process is
// left to die from the re-raised panic.
func (h *Handler) handlePanic(r interface{}) {
	if !h.trigger("panic") {
		return
	}
	watchdog := h.startWatchdog()
	defer watchdog.Stop()

	h.state.Store(int32(Reporting))
	out := h.output()
	h.banner(out, "panic: "+fmt.Sprint(r))
	h.reportStacks(out)
	h.runHooks(out, panicStatus)
	h.state.Store(int32(Terminated))
}
