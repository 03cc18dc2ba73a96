//go:build cstack_debug

package btrace

func init() {
	registerAdmin("c_backtrace_clear", clearTraces)
	registerAdmin("c_backtrace_print", printTrace)
}
