package audio

import (
	"math"
	"sync"
	"time"
)

// ToneSource synthesizes S16LE PCM packets on a fixed cadence. It stands in
// for an OS capture device in headless environments and deterministic tests.
type ToneSource struct {
	sampleRate int
	channels   int
	freq       float64
	interval   time.Duration

	mu      sync.Mutex
	started bool
	done    chan struct{}
	wg      sync.WaitGroup
	phase   float64
}

// NewToneSource creates a synthetic source emitting a sine tone at freq Hz
// in 20 ms packets. freq 0 produces silence.
func NewToneSource(sampleRate, channels int, freq float64) *ToneSource {
	return &ToneSource{
		sampleRate: sampleRate,
		channels:   channels,
		freq:       freq,
		interval:   20 * time.Millisecond,
	}
}

func (t *ToneSource) Start(onData func(pkt []byte)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil
	}
	t.started = true
	t.done = make(chan struct{})

	samplesPerPacket := int(float64(t.sampleRate) * t.interval.Seconds())

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				onData(t.synthesize(samplesPerPacket))
			}
		}
	}()

	return nil
}

func (t *ToneSource) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}
	t.started = false
	close(t.done)
	t.wg.Wait()
}

func (t *ToneSource) synthesize(samples int) []byte {
	pkt := make([]byte, samples*t.channels*2)
	step := 2 * math.Pi * t.freq / float64(t.sampleRate)
	for i := 0; i < samples; i++ {
		var v int16
		if t.freq > 0 {
			v = int16(math.Sin(t.phase) * 0.25 * 32767)
			t.phase += step
		}
		for ch := 0; ch < t.channels; ch++ {
			idx := (i*t.channels + ch) * 2
			pkt[idx] = byte(uint16(v))
			pkt[idx+1] = byte(uint16(v) >> 8)
		}
	}
	return pkt
}
