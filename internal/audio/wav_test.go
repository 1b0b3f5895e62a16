package audio

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPCMSinkWritesPatchedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopback.wav")

	sink, err := NewPCMSink(path, 44100, 2)
	if err != nil {
		t.Fatalf("NewPCMSink: %v", err)
	}

	payload := make([]byte, 1764) // 10ms of 44.1kHz stereo S16LE
	for i := 0; i < 5; i++ {
		if _, err := sink.Write(payload); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if got, want := sink.BytesWritten(), uint64(5*len(payload)); got != want {
		t.Fatalf("BytesWritten = %d, want %d", got, want)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if len(raw) != wavHeaderSize+5*len(payload) {
		t.Fatalf("file size = %d, want %d", len(raw), wavHeaderSize+5*len(payload))
	}
	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE magic: %q %q", raw[0:4], raw[8:12])
	}

	riffSize := binary.LittleEndian.Uint32(raw[4:8])
	if riffSize != uint32(len(raw)-8) {
		t.Fatalf("riff size = %d, want %d", riffSize, len(raw)-8)
	}
	dataSize := binary.LittleEndian.Uint32(raw[40:44])
	if dataSize != uint32(5*len(payload)) {
		t.Fatalf("data size = %d, want %d", dataSize, 5*len(payload))
	}

	sampleRate := binary.LittleEndian.Uint32(raw[24:28])
	channels := binary.LittleEndian.Uint16(raw[22:24])
	if sampleRate != 44100 || channels != 2 {
		t.Fatalf("format = %d Hz %d ch, want 44100 Hz 2 ch", sampleRate, channels)
	}
}

func TestPCMSinkWriteAfterCloseIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "late.wav")

	sink, err := NewPCMSink(path, 16000, 1)
	if err != nil {
		t.Fatalf("NewPCMSink: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A late audio callback after teardown must fail cleanly, not corrupt
	// the finalized file.
	if _, err := sink.Write([]byte{1, 2, 3, 4}); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("Write after Close = %v, want os.ErrClosed", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestToneSourceDeliversPackets(t *testing.T) {
	src := NewToneSource(16000, 1, 440)

	packets := make(chan []byte, 64)
	if err := src.Start(func(pkt []byte) {
		cp := make([]byte, len(pkt))
		copy(cp, pkt)
		select {
		case packets <- cp:
		default:
		}
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	pkt := <-packets
	src.Stop()

	// 20ms at 16kHz mono S16LE
	if len(pkt) != 16000/50*2 {
		t.Fatalf("packet size = %d, want %d", len(pkt), 16000/50*2)
	}
	nonZero := false
	for _, b := range pkt {
		if b != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatal("expected non-silent tone packet")
	}
}

func TestToneSourceStopIsIdempotent(t *testing.T) {
	src := NewToneSource(8000, 1, 0)
	if err := src.Start(func([]byte) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.Stop()
	src.Stop()
}
