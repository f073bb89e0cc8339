//go:build unix

package main

import (
	"golang.org/x/sys/unix"

	"github.com/srediag/plugin-pipe/pkg/pipe"
)

func errnoName(err error) string {
	return unix.ErrnoName(pipe.Errno(err))
}
