//go:build windows

package main

import (
	"os"
	"path/filepath"
	"time"
)

// flagSignals polls for a marker file dropped next to the executable, since
// Windows has no SIGUSR1. Creating the file flags the current segment; the
// poller removes it after delivery.
func flagSignals() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	marker := flagMarkerPath()

	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for range t.C {
			if _, err := os.Stat(marker); err != nil {
				continue
			}
			os.Remove(marker)
			select {
			case ch <- os.Interrupt: // value unused, channel is a tick
			default:
			}
		}
	}()
	return ch
}

func flagMarkerPath() string {
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join(os.TempDir(), "flightrec.flag")
	}
	return filepath.Join(filepath.Dir(exe), "flightrec.flag")
}
