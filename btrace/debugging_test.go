package btrace

import (
	"flag"
	"os"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/tombergan/cstack/diag"
)

var debugLevel = flag.Int("debuglevel", 0, "debug verbosity level")

func TestMain(m *testing.M) {
	flag.Parse()
	switch {
	case *debugLevel >= 2:
		diag.Log.SetLevel(logrus.TraceLevel)
	case *debugLevel == 1:
		diag.Log.SetLevel(logrus.DebugLevel)
	}
	os.Exit(m.Run())
}
