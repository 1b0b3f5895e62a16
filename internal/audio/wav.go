package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

const wavHeaderSize = 44

// PCMSink streams S16LE PCM packets into a RIFF/WAV file. Every Write is
// flushed through to the file before returning: a crash mid-session loses at
// most the packet in flight, never buffered audio. The header's size fields
// are written as placeholders and patched on Close.
type PCMSink struct {
	mu      sync.Mutex
	f       *os.File
	bw      *bufio.Writer
	path    string
	closed  bool
	written uint64
}

// NewPCMSink creates the file and writes a placeholder WAV header for
// 16-bit PCM at the given sample rate and channel count.
func NewPCMSink(path string, sampleRate, channels int) (*PCMSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("create pcm sink: %w", err)
	}

	s := &PCMSink{
		f:    f,
		bw:   bufio.NewWriter(f),
		path: path,
	}
	if err := writeWAVHeader(s.bw, uint32(sampleRate), uint16(channels), 0); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	if err := s.bw.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("flush wav header: %w", err)
	}
	return s, nil
}

// Write appends a PCM packet and flushes immediately. Returns os.ErrClosed
// after Close; late callbacks arriving during teardown hit this path and are
// dropped by the caller.
func (s *PCMSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, os.ErrClosed
	}
	n, err := s.bw.Write(p)
	if err != nil {
		return n, err
	}
	if err := s.bw.Flush(); err != nil {
		return n, err
	}
	s.written += uint64(n)
	return n, nil
}

// BytesWritten returns the PCM payload size written so far.
func (s *PCMSink) BytesWritten() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Path returns the sink's file path.
func (s *PCMSink) Path() string { return s.path }

// Close flushes, patches the RIFF and data chunk sizes, and closes the file.
// Idempotent.
func (s *PCMSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.bw.Flush(); err != nil {
		s.f.Close()
		return err
	}
	if err := patchWAVSizes(s.f); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

type wavHeader struct {
	RiffID      [4]byte
	RiffSize    uint32
	WaveID      [4]byte
	FmtID       [4]byte
	FmtSize     uint32
	AudioFormat uint16
	NumChannels uint16
	SampleRate  uint32
	ByteRate    uint32
	BlockAlign  uint16
	BitsPerSamp uint16
	DataID      [4]byte
	DataSize    uint32
}

func writeWAVHeader(w *bufio.Writer, sampleRate uint32, channels uint16, dataSize uint32) error {
	const bitsPerSample = 16

	h := wavHeader{
		RiffID:      [4]byte{'R', 'I', 'F', 'F'},
		RiffSize:    36 + dataSize,
		WaveID:      [4]byte{'W', 'A', 'V', 'E'},
		FmtID:       [4]byte{'f', 'm', 't', ' '},
		FmtSize:     16,
		AudioFormat: 1, // PCM
		NumChannels: channels,
		SampleRate:  sampleRate,
		ByteRate:    sampleRate * uint32(channels) * bitsPerSample / 8,
		BlockAlign:  channels * bitsPerSample / 8,
		BitsPerSamp: bitsPerSample,
		DataID:      [4]byte{'d', 'a', 't', 'a'},
		DataSize:    dataSize,
	}
	return binary.Write(w, binary.LittleEndian, &h)
}

// patchWAVSizes rewrites the RIFF chunk size (offset 4) and data sub-chunk
// size (offset 40) from the actual file size.
func patchWAVSizes(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < wavHeaderSize {
		return nil
	}

	riffSize := uint32(info.Size() - 8)
	dataSize := uint32(info.Size() - wavHeaderSize)

	if _, err := f.Seek(4, 0); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, riffSize); err != nil {
		return err
	}
	if _, err := f.Seek(40, 0); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, dataSize)
}
