// Package crash turns fatal signals into a final diagnostic report.
//
// Install arms a Handler for the platform's fatal signal set. On the first
// such signal the handler restores default dispositions, starts a watchdog,
// prints a banner, the native trace of the crash, the newest trace of every
// btrace context and the aggregated goroutine stacks, runs the exit hooks
// with status 128+signal and finally re-raises the signal.
//
// Faults that Go turns into panics (nil dereferences in Go code) never
// reach a signal handler; defer RecoverPanic at the top of a goroutine to
// route them through the same report.
package crash

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	uatomic "go.uber.org/atomic"

	"github.com/tombergan/cstack/btrace"
	"github.com/tombergan/cstack/config"
	"github.com/tombergan/cstack/diag"
	"github.com/tombergan/cstack/exithook"
)

// State is the crash handler's progress. It only moves forward.
type State int32

const (
	Armed State = iota
	Triggered
	Reporting
	Terminated
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Triggered:
		return "triggered"
	case Reporting:
		return "reporting"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Handler runs the one-shot crash sequence.
type Handler struct {
	cfg   *config.Config
	out   io.Writer
	hooks *exithook.Registry

	// Replaced in tests.
	now       func() time.Time
	reset     func(sigs ...os.Signal)
	terminate func(h *Handler, sig syscall.Signal)
	abort     func()
	logical   func(w io.Writer, depth int)

	state    uatomic.Int32
	absorbed uatomic.Int64

	sigs     chan os.Signal
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a Handler.
type Option func(*Handler)

// WithConfig replaces the configuration read from the environment.
func WithConfig(cfg *config.Config) Option {
	return func(h *Handler) { h.cfg = cfg }
}

// WithOutput sends the report to w instead of the diagnostic stream.
func WithOutput(w io.Writer) Option {
	return func(h *Handler) { h.out = w }
}

// WithHooks runs the given registry instead of exithook.Default.
func WithHooks(r *exithook.Registry) Option {
	return func(h *Handler) { h.hooks = r }
}

// New returns an unarmed handler.
func New(opts ...Option) (*Handler, error) {
	h := &Handler{
		hooks:     exithook.Default,
		now:       time.Now,
		reset:     signal.Reset,
		terminate: reraise,
		abort:     abort,
		logical:   logicalStack,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.cfg == nil {
		cfg, err := config.NewConfig()
		if err != nil {
			return nil, errors.Wrap(err, "crash handler config")
		}
		h.cfg = cfg
	}
	return h, nil
}

var (
	installMu sync.Mutex
	installed *Handler
)

// Install arms the process-wide crash handler. Later calls return the
// handler armed by the first one and ignore their options.
func Install(opts ...Option) (*Handler, error) {
	installMu.Lock()
	defer installMu.Unlock()
	if installed != nil {
		return installed, nil
	}
	h, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := diag.SetLevel(h.cfg.LogLevel); err != nil {
		log.WithError(err).Warn("bad log level")
	}
	h.arm()
	installed = h
	return h, nil
}

// arm starts receiving the fatal signals.
func (h *Handler) arm() {
	h.sigs = make(chan os.Signal, 1)
	signal.Notify(h.sigs, fatalSignals...)
	go h.loop()
	log.WithField("signals", fatalSignals).Debug("crash handler armed")
}

func (h *Handler) loop() {
	defer close(h.done)
	for sig := range h.sigs {
		if s, ok := sig.(syscall.Signal); ok {
			h.handle(s)
		}
	}
}

// Stop stops signal delivery to h. A crash in progress is not interrupted.
func (h *Handler) Stop() {
	if h.sigs == nil {
		return
	}
	h.stopOnce.Do(func() {
		signal.Stop(h.sigs)
		close(h.sigs)
	})
	<-h.done
}

// State returns the handler's current state.
func (h *Handler) State() State {
	return State(h.state.Load())
}

func (h *Handler) output() io.Writer {
	if h.out != nil {
		return h.out
	}
	return diag.Output()
}

// trigger moves the handler out of Armed. Only the first caller wins; later
// ones are absorbed.
func (h *Handler) trigger(what string) bool {
	if h.state.CAS(int32(Armed), int32(Triggered)) {
		return true
	}
	h.absorbed.Inc()
	log.WithField("state", h.State()).Warnf("%s while handling a crash; ignored", what)
	return false
}

// handle runs the crash sequence for a fatal signal.
func (h *Handler) handle(sig syscall.Signal) {
	if !h.trigger(signalName(sig)) {
		return
	}
	h.reset(append([]os.Signal{sig}, resetSignals...)...)
	watchdog := h.startWatchdog()

	status := 128 + int(sig)
	h.state.Store(int32(Reporting))
	h.report(sig, status)

	h.state.Store(int32(Terminated))
	watchdog.Stop()
	h.terminate(h, sig)
}

func (h *Handler) startWatchdog() *time.Timer {
	return time.AfterFunc(h.cfg.Watchdog, func() {
		diag.Fprintf(h.output(), "Crash report did not finish within %v; aborting\n", h.cfg.Watchdog)
		h.abort()
	})
}

func (h *Handler) report(sig syscall.Signal, status int) {
	out := h.output()
	h.banner(out, fmt.Sprintf("received fatal signal %d (%s)", int(sig), signalName(sig)))
	h.reportStacks(out)
	h.runHooks(out, status)
}

// banner names the context the report runs on.
func (h *Handler) banner(out io.Writer, what string) {
	tid := btrace.ThreadSelf()
	alias, ok := btrace.ThreadAlias(tid)
	if !ok {
		alias = "unnamed"
	}
	diag.Fprintf(out, "\ncstack [context %d (%s) at %s]: %s\n",
		tid, alias, h.now().Format(time.ANSIC), what)
}

func (h *Handler) reportStacks(out io.Writer) {
	btrace.ReportTo(out, "crash")
	btrace.PrintAll(out)
	diag.Fprintf(out, "Goroutine stacks:\n")
	h.logical(out, h.cfg.LogicalDepth)
}

func (h *Handler) runHooks(out io.Writer, status int) {
	diag.Fprintf(out, "Running exit hooks with status %d\n", status)
	if err := h.hooks.Run(context.Background(), status); err != nil {
		log.WithError(err).Warn("exit hooks failed")
	}
}
