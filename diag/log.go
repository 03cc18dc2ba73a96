package diag

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide structured logger. It writes to stderr at warn
// level unless reconfigured with SetLevel.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	return l
}

// Logger returns an entry tagged with the component name.
func Logger(component string) *logrus.Entry {
	return Log.WithField("component", component)
}

// SetLevel parses and applies a logrus level name ("debug", "trace", ...).
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Log.SetLevel(lvl)
	return nil
}
