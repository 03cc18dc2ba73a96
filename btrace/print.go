package btrace

import (
	"io"
	"runtime"

	"github.com/tombergan/cstack/diag"
	"github.com/tombergan/cstack/symbolize"
)

// resolvePC names a raw return address.
var resolvePC = func(pc uintptr) string {
	return symbolize.Default().Resolve(uint64(pc))
}

// Print writes the k-th most recent trace of the current context to the
// diagnostic output; 1 is the newest.
func Print(k int) {
	if !active.supported() {
		notSupported(diag.Output(), 1)
		return
	}
	s := getIfExists(Current())
	if s == nil {
		diag.Printf("No backtrace store?\n")
		return
	}
	s.Fprint(diag.Output(), k)
}

// PrintNamed writes the most recent trace of the current context labeled
// label to the diagnostic output.
func PrintNamed(label string) {
	if !active.supported() {
		notSupported(diag.Output(), 1)
		return
	}
	getIfExists(Current()).FprintNamed(diag.Output(), label)
}

// Fprint writes the k-th most recent trace of s to w.
func (s *Store) Fprint(w io.Writer, k int) {
	if s == nil {
		diag.Fprintf(w, "No backtrace store?\n")
		return
	}
	writeTrace(w, s.trace(k))
}

// FprintNamed writes the most recent trace of s labeled label to w.
func (s *Store) FprintNamed(w io.Writer, label string) {
	if s == nil {
		diag.Fprintf(w, "No stack trace\n")
		return
	}
	t := s.named(label)
	if t == nil {
		diag.Fprintf(w, "No backtrace named %s\n", label)
		return
	}
	writeTrace(w, t)
}

// Report captures a trace, prints it and discards it unless it went into
// the current context's store.
func Report(label string) {
	report(diag.Output(), label, 2)
}

// ReportTo is Report writing to w.
func ReportTo(w io.Writer, label string) {
	report(w, label, 2)
}

func report(w io.Writer, label string, skip int) {
	if !active.supported() {
		notSupported(w, skip)
		return
	}
	s := getOrCreate(Current())
	captureInto(s, label, skip)
	s.FprintNamed(w, label)
	if !s.shared {
		s.Destroy()
	}
}

// PrintAll writes the newest trace of every attached context other than
// the caller's to w.
func PrintAll(w io.Writer) {
	if !active.supported() {
		return
	}
	self := ThreadSelf()
	for _, c := range attached() {
		if c.ID == self {
			continue
		}
		s := c.Store()
		if s == nil {
			continue
		}
		alias := c.Alias
		if alias == "" {
			alias = "unnamed"
		}
		diag.Fprintf(w, "Context %d (%s):\n", c.ID, alias)
		writeTrace(w, s.trace(1))
	}
}

func writeTrace(w io.Writer, t *Trace) {
	if t == nil {
		diag.Fprintf(w, "No stack trace\n")
		return
	}
	diag.Fprintf(w, "C-stack trace labeled \"%s\":\n", t.Label)
	if t.Frames != nil {
		for i := range t.Frames {
			diag.Fprintf(w, "  [%d] %s\n", i, active.format(&t.Frames[i]))
		}
		return
	}
	for i, pc := range t.PCs {
		diag.Fprintf(w, "  [%d] %s\n", i, resolvePC(pc))
	}
}

// notSupported reports the location skip frames above it.
func notSupported(w io.Writer, skip int) {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		file, line = "???", 0
	}
	diag.Fprintf(w, "%s:%d C-stack dumps are not supported on this platform\n", file, line)
}
