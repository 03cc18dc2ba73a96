// Command btracectl exercises the trace store, printer and crash handler
// from the command line.
//
//	btracectl demo gc alloc
//	btracectl named -c a -c b b
//	btracectl crash --signal SIGSEGV
package main

import (
	"os"

	"github.com/tombergan/cstack/diag"
)

func main() {
	command := NewRootCommand()
	if err := command.Execute(); err != nil {
		diag.Log.Error(err)
		os.Exit(1)
	}
}
