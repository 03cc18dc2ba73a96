//go:build unix

package crash

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tombergan/cstack/diag"
)

var fatalSignals = []os.Signal{
	unix.SIGSEGV,
	unix.SIGILL,
	unix.SIGBUS,
	unix.SIGFPE,
	unix.SIGSYS,
}

// resetSignals get their default disposition back as soon as a crash is
// triggered, along with the signal that triggered it.
var resetSignals = []os.Signal{unix.SIGABRT, unix.SIGALRM, unix.SIGSEGV}

var abortStatus = 128 + int(unix.SIGABRT)

func signalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}

// runtimeThrows holds the signals the Go runtime turns into a throw (exit
// status 2) once their default disposition is restored, instead of dying
// by them.
var runtimeThrows = map[syscall.Signal]bool{
	unix.SIGSEGV: true,
	unix.SIGILL:  true,
	unix.SIGBUS:  true,
	unix.SIGFPE:  true,
	unix.SIGSYS:  true,
}

// reraise terminates the process with the status a death by sig reports.
// Signals in runtimeThrows exit with 128+sig directly. Others are sent to
// the process again, with 128+sig as the fallback if it survives.
func reraise(h *Handler, sig syscall.Signal) {
	status := 128 + int(sig)
	if !runtimeThrows[sig] {
		pid := unix.Getpid()
		diag.Fprintf(h.output(), "Killing %d with default signal handlers\n", pid)
		if err := unix.Kill(pid, sig); err != nil {
			log.WithError(err).Error("re-raising signal")
		}
		time.Sleep(time.Second)
	}
	diag.Fprintf(h.output(), "Exiting with status %d\n", status)
	os.Exit(status)
}

func abort() {
	os.Exit(abortStatus)
}
