package capture

import (
	"bytes"
	"testing"
	"time"
)

func TestRollingBufferEvictsByAge(t *testing.T) {
	b := NewRollingBuffer(10 * time.Second)
	now := time.Unix(1000, 0)
	b.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		b.Append([]byte{byte(i)})
		now = now.Add(3 * time.Second)
	}

	// Appends at t=0,3,6,9,12; now=15. Segments older than 10s (t=0, t=3)
	// are gone.
	b.Prune()
	if got := b.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}
	segs := b.Snapshot()
	if segs[0].Data[0] != 2 {
		t.Fatalf("oldest retained segment = %d, want 2", segs[0].Data[0])
	}
	if segs[len(segs)-1].Data[0] != 4 {
		t.Fatalf("newest retained segment = %d, want 4", segs[len(segs)-1].Data[0])
	}
}

func TestRollingBufferPrune(t *testing.T) {
	b := NewRollingBuffer(time.Second)
	now := time.Unix(0, 0)
	b.now = func() time.Time { return now }

	b.Append(make([]byte, 100))
	b.Append(make([]byte, 100))
	if b.Bytes() != 200 {
		t.Fatalf("Bytes = %d, want 200", b.Bytes())
	}

	now = now.Add(5 * time.Second)
	b.Prune()

	if b.Len() != 0 {
		t.Fatalf("Len = %d after prune, want 0", b.Len())
	}
	if b.Bytes() != 0 {
		t.Fatalf("Bytes = %d after prune, want 0", b.Bytes())
	}
}

func TestRollingBufferCopiesPackets(t *testing.T) {
	b := NewRollingBuffer(time.Minute)

	pkt := []byte{1, 2, 3, 4}
	b.Append(pkt)
	pkt[0] = 99

	segs := b.Snapshot()
	if !bytes.Equal(segs[0].Data, []byte{1, 2, 3, 4}) {
		t.Fatalf("segment data = %v, caller mutation leaked in", segs[0].Data)
	}
}

func TestRollingBufferEmptyAppendIgnored(t *testing.T) {
	b := NewRollingBuffer(time.Minute)
	b.Append(nil)
	b.Append([]byte{})
	if b.Len() != 0 {
		t.Fatalf("Len = %d after empty appends, want 0", b.Len())
	}
}

func TestRollingBufferSpan(t *testing.T) {
	b := NewRollingBuffer(time.Minute)
	now := time.Unix(0, 0)
	b.now = func() time.Time { return now }

	if b.Span() != 0 {
		t.Fatal("Span of empty buffer should be 0")
	}
	b.Append([]byte{1})
	now = now.Add(7 * time.Second)
	b.Append([]byte{2})

	if got := b.Span(); got != 7*time.Second {
		t.Fatalf("Span = %v, want 7s", got)
	}
}
