//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// flagSignals delivers a tick whenever SIGUSR1 arrives, so an external
// process can flag the current segment:
//
//	kill -USR1 $(pidof flightrec)
func flagSignals() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	return ch
}
