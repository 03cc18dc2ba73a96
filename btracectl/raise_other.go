//go:build !unix

package main

import "github.com/pkg/errors"

func raise(name string) error {
	return errors.Errorf("cannot send %s on this platform; use --panic", name)
}
