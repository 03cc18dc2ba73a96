package btrace

import "github.com/tombergan/cstack/diag"

var log = diag.Logger("btrace")

// logf logs a message about unexpected store or context state.
func logf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}
