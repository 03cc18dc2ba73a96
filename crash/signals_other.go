//go:build js || wasip1

package crash

import (
	"os"
	"syscall"

	"github.com/tombergan/cstack/diag"
)

// No signals are delivered on these platforms; only RecoverPanic reports.
var (
	fatalSignals []os.Signal
	resetSignals []os.Signal
)

const abortStatus = 134

func signalName(sig syscall.Signal) string {
	return sig.String()
}

func reraise(h *Handler, sig syscall.Signal) {
	diag.Fprintf(h.output(), "Aborting\n")
	os.Exit(abortStatus)
}

func abort() {
	os.Exit(abortStatus)
}
