package btrace

// backend walks the stack. Exactly one is compiled in, chosen by build
// constraints (see the backend_*.go files).
type backend interface {
	name() string

	// supported is false for the fallback that cannot capture at all.
	supported() bool

	// capture records the calling stack, omitting itself and skip of its
	// callers. It returns nil when nothing can be captured.
	capture(label string, skip int) *Trace

	// format renders a pre-resolved frame.
	format(f *Frame) string
}

var active = newBackend()

// Backend returns the name of the compiled-in capture backend.
func Backend() string {
	return active.name()
}
