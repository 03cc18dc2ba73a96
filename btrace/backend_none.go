//go:build cstack_none || js || wasip1

package btrace

// noneBackend is used where the stack cannot be walked.
type noneBackend struct{}

func newBackend() backend { return noneBackend{} }

func (noneBackend) name() string                          { return "none" }
func (noneBackend) supported() bool                       { return false }
func (noneBackend) capture(label string, skip int) *Trace { return nil }
func (noneBackend) format(f *Frame) string                { return "" }
