// Package audio provides PCM capture sources and file sinks for the
// capture engine. Sources deliver packets via an OS-driven callback;
// sinks persist them with per-packet flushing.
package audio

// Source delivers raw PCM packets (S16LE interleaved) from a capture
// device through a callback.
type Source interface {
	// Start begins capture. The callback runs on the device's own thread;
	// it must copy any data it retains, as the backing buffer may be reused
	// by the backend after the callback returns.
	Start(onData func(pkt []byte)) error

	// Stop requests the device to stop and releases its resources. The last
	// callback may still arrive asynchronously shortly after Stop returns;
	// callers are expected to apply a drain delay before closing sinks.
	Stop()
}
