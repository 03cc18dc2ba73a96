//go:build unix

package main

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// raise sends the named signal to the process and waits for the crash
// handler to end it.
func raise(name string) error {
	sig := unix.SignalNum(name)
	if sig == 0 {
		return errors.Errorf("unknown signal %s", name)
	}
	if err := unix.Kill(unix.Getpid(), sig); err != nil {
		return errors.Wrapf(err, "sending %s", name)
	}
	time.Sleep(time.Minute)
	return errors.New("still alive after the crash report")
}
