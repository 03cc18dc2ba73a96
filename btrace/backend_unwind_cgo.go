//go:build cstack_unwind && cgo && (linux || darwin)

package btrace

// With cgo, the unwind backend registers libunwind through
// runtime.SetCgoTraceback so that walks continue through C frames and C
// addresses resolve to names. Building needs the libunwind headers and
// library: libunwind-dev or llvm-libunwind-dev on Debian and Alpine,
// libunwind-devel on CentOS. macOS ships it.
import _ "github.com/nsrip-dd/cgotraceback"
