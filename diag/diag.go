// Package diag holds the two output channels of the crash diagnostics:
// the diagnostic stream, which receives the literal trace and crash report
// text, and the structured logger used for everything else.
package diag

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

type writerBox struct{ w io.Writer }

var out atomic.Value // writerBox

// Output returns the current diagnostic stream. Defaults to os.Stderr.
func Output() io.Writer {
	if b, ok := out.Load().(writerBox); ok && b.w != nil {
		return b.w
	}
	return os.Stderr
}

// SetOutput replaces the diagnostic stream and returns the previous one.
// A nil writer restores os.Stderr.
func SetOutput(w io.Writer) io.Writer {
	prev := Output()
	out.Store(writerBox{w})
	return prev
}

// Printf writes formatted text to the diagnostic stream.
func Printf(format string, args ...interface{}) {
	Fprintf(Output(), format, args...)
}

// Fprintf formats into a private buffer and hands the result to w in a
// single Write, so lines from concurrent reporters do not interleave.
// Write errors are dropped: there is nowhere left to report them.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, format, args...)
	_, _ = w.Write(buf.Bytes())
}
