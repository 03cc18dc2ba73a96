package btrace

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombergan/cstack/diag"
)

func skipUnsupported(t *testing.T) {
	if !active.supported() {
		t.Skipf("backend %s cannot capture", active.name())
	}
}

// fakeResolve makes raw-address output independent of the symbol tables.
func fakeResolve(t *testing.T) {
	old := resolvePC
	resolvePC = func(pc uintptr) string { return fmt.Sprintf("pc(0x%x)", pc) }
	t.Cleanup(func() { resolvePC = old })
}

func captureOutput(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	old := diag.SetOutput(&buf)
	t.Cleanup(func() { diag.SetOutput(old) })
	return &buf
}

func TestRingScenario(t *testing.T) {
	skipUnsupported(t)
	fakeResolve(t)
	c := Attach("scenario")
	defer c.Close()

	var second *Trace
	for _, label := range strings.Split("abcdefghijk", "") {
		s := Capture(label)
		require.NotNil(t, s)
		if label == "b" {
			second = s.trace(1)
		}
	}
	s := c.Store()
	require.NotNil(t, s)

	var buf bytes.Buffer
	s.Fprint(&buf, 1)
	assert.True(t, strings.HasPrefix(buf.String(), "C-stack trace labeled \"k\":\n"), buf.String())

	buf.Reset()
	s.FprintNamed(&buf, "a")
	assert.Equal(t, "No backtrace named a\n", buf.String())

	buf.Reset()
	s.FprintNamed(&buf, "b")
	var want bytes.Buffer
	writeTrace(&want, second)
	assert.Equal(t, want.String(), buf.String())
	assert.Same(t, second, s.named("b"))
}

func TestNeverCaptured(t *testing.T) {
	skipUnsupported(t)
	c := Attach("idle")
	defer c.Close()
	out := captureOutput(t)

	Print(1)
	assert.Equal(t, "No backtrace store?\n", out.String())

	out.Reset()
	PrintNamed("gc")
	assert.Equal(t, "No stack trace\n", out.String())
}

func TestPrintRecentEqualsNamed(t *testing.T) {
	skipUnsupported(t)
	fakeResolve(t)
	c := Attach("")
	defer c.Close()
	Capture("once")

	out := captureOutput(t)
	Print(1)
	recent := out.String()
	out.Reset()
	PrintNamed("once")
	assert.Equal(t, recent, out.String())
	assert.True(t, strings.HasPrefix(recent, "C-stack trace labeled \"once\":\n  [0] "), recent)
}

func TestPrintEmptySlot(t *testing.T) {
	skipUnsupported(t)
	c := Attach("")
	defer c.Close()
	Capture("only")

	out := captureOutput(t)
	Print(2)
	assert.Equal(t, "No stack trace\n", out.String())
	out.Reset()
	Print(0)
	assert.Equal(t, "No stack trace\n", out.String())
}

func TestReportDetached(t *testing.T) {
	skipUnsupported(t)
	fakeResolve(t)
	live := liveBuffers.Load()

	var buf bytes.Buffer
	ReportTo(&buf, "oneshot")
	assert.True(t, strings.HasPrefix(buf.String(), "C-stack trace labeled \"oneshot\":\n"), buf.String())
	assert.Equal(t, live, liveBuffers.Load(), "detached store must be destroyed")
}

func TestReportShared(t *testing.T) {
	skipUnsupported(t)
	fakeResolve(t)
	c := Attach("")
	defer c.Close()

	out := captureOutput(t)
	Report("crash")
	assert.True(t, strings.HasPrefix(out.String(), "C-stack trace labeled \"crash\":\n"), out.String())
	assert.Equal(t, []string{"crash"}, c.Store().Labels(), "report keeps the trace in the context store")
}

func TestPrintAll(t *testing.T) {
	skipUnsupported(t)
	fakeResolve(t)

	captured := make(chan *Context)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c := Attach("worker")
		defer c.Close()
		Capture("gc")
		captured <- c
		<-done
	}()
	c := <-captured

	self := Attach("self")
	defer self.Close()
	Capture("mine")

	var buf bytes.Buffer
	PrintAll(&buf)
	close(done)
	wg.Wait()

	assert.Contains(t, buf.String(), fmt.Sprintf("Context %d (worker):\nC-stack trace labeled \"gc\":\n", c.ID))
	assert.NotContains(t, buf.String(), "mine", "caller's own context is skipped")
}

type panicBackend struct{ backend }

func (panicBackend) capture(label string, skip int) *Trace {
	panic("unwind info corrupted")
}

func TestCaptureRecovers(t *testing.T) {
	old := active
	active = panicBackend{old}
	defer func() { active = old }()
	panics := capturePanics.Load()

	s := newStore(false)
	defer s.Destroy()
	assert.Same(t, s, captureInto(s, "broken", 0))
	assert.Equal(t, panics+1, capturePanics.Load())

	tr := s.named("broken")
	require.NotNil(t, tr)
	assert.Zero(t, tr.Depth())

	var buf bytes.Buffer
	s.FprintNamed(&buf, "broken")
	assert.Equal(t, "C-stack trace labeled \"broken\":\n", buf.String())
}

func TestWriteTraceFrames(t *testing.T) {
	var buf bytes.Buffer
	writeTrace(&buf, &Trace{Label: "pre", Frames: []Frame{{PC: 0x1010, Func: "main.f", Offset: 0x10}}})
	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "C-stack trace labeled \"pre\":", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "  [0] "), lines[1])
}

func TestNotSupported(t *testing.T) {
	var buf bytes.Buffer
	notSupported(&buf, 0)
	assert.Contains(t, buf.String(), "print_test.go:")
	assert.True(t, strings.HasSuffix(buf.String(), " C-stack dumps are not supported on this platform\n"))
}
