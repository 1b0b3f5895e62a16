package capture

import (
	"sync"
	"time"
)

// Segment is an immutable audio chunk with its capture timestamp. Owned by
// the rolling buffer after Append; never mutated.
type Segment struct {
	Data []byte
	At   time.Time
}

// RollingBuffer is a time-windowed queue of loopback audio segments.
// Segments are inserted at the tail on the audio callback path and evicted
// from the head whenever the oldest entry's age exceeds the window. It has
// its own lock, distinct from the video lock; there is no ordering
// dependency between the two.
type RollingBuffer struct {
	mu     sync.Mutex
	window time.Duration
	segs   []Segment
	bytes  int64

	now func() time.Time // test hook
}

// NewRollingBuffer creates a buffer retaining at most window of audio.
func NewRollingBuffer(window time.Duration) *RollingBuffer {
	return &RollingBuffer{
		window: window,
		now:    time.Now,
	}
}

// Append copies pkt into the buffer, then evicts expired segments. Safe to
// call from the audio callback thread.
func (b *RollingBuffer) Append(pkt []byte) {
	if len(pkt) == 0 {
		return
	}
	data := make([]byte, len(pkt))
	copy(data, pkt)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.segs = append(b.segs, Segment{Data: data, At: b.now()})
	b.bytes += int64(len(data))
	b.evictLocked()
}

// Prune evicts expired segments without appending. Useful as a periodic
// check while the callback path is quiet.
func (b *RollingBuffer) Prune() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictLocked()
}

func (b *RollingBuffer) evictLocked() {
	now := b.now()
	drop := 0
	for drop < len(b.segs) && now.Sub(b.segs[drop].At) > b.window {
		b.bytes -= int64(len(b.segs[drop].Data))
		drop++
	}
	if drop == 0 {
		return
	}
	if drop == len(b.segs) {
		b.segs = nil
		return
	}
	// Compact so the backing array doesn't pin evicted segment data.
	remaining := make([]Segment, len(b.segs)-drop)
	copy(remaining, b.segs[drop:])
	b.segs = remaining
}

// Snapshot returns the retained segments in capture order. Segment data is
// immutable, so the snapshot shares the underlying byte slices.
func (b *RollingBuffer) Snapshot() []Segment {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Segment, len(b.segs))
	copy(out, b.segs)
	return out
}

// Len returns the number of retained segments.
func (b *RollingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.segs)
}

// Bytes returns the total retained payload size.
func (b *RollingBuffer) Bytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bytes
}

// Span returns the age difference between the newest and oldest retained
// segments.
func (b *RollingBuffer) Span() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.segs) < 2 {
		return 0
	}
	return b.segs[len(b.segs)-1].At.Sub(b.segs[0].At)
}
