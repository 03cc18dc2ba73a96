//go:build windows

package crash

import (
	"os"
	"syscall"

	"github.com/tombergan/cstack/diag"
)

// SIGTERM is how structured exceptions and kill requests reach Go.
var fatalSignals = []os.Signal{
	syscall.SIGSEGV,
	syscall.SIGILL,
	syscall.SIGFPE,
	syscall.SIGTERM,
}

var resetSignals = []os.Signal{syscall.SIGABRT, syscall.SIGSEGV}

// abortStatus is the exit code of abort() on Windows.
const abortStatus = 3

func signalName(sig syscall.Signal) string {
	return sig.String()
}

// reraise cannot deliver the signal again on Windows; it aborts instead.
func reraise(h *Handler, sig syscall.Signal) {
	diag.Fprintf(h.output(), "Aborting\n")
	os.Exit(abortStatus)
}

func abort() {
	os.Exit(abortStatus)
}
