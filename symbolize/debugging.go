package symbolize

import "github.com/tombergan/cstack/diag"

var log = diag.Logger("symbolize")

// logf logs a message that is useful when symbolization produces
// unexpected results.
func logf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// verbosef logs per-address detail.
func verbosef(format string, args ...interface{}) {
	log.Tracef(format, args...)
}
