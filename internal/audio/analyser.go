package audio

import (
	"encoding/binary"
	"sync"
)

// DefaultFFTSize is the analysis window length in samples.
const DefaultFFTSize = 512

// Analyser keeps the most recent FFTSize samples of a stream so that the
// renderer can read a time-domain window. Writers are audio callbacks;
// readers are frame ticks.
type Analyser struct {
	mu   sync.Mutex
	ring []float32
	pos  int
}

// NewAnalyser creates an analyser with a window of fftSize samples.
func NewAnalyser(fftSize int) *Analyser {
	if fftSize <= 0 {
		fftSize = DefaultFFTSize
	}
	return &Analyser{ring: make([]float32, fftSize)}
}

// FFTSize returns the window length.
func (a *Analyser) FFTSize() int {
	return len(a.ring)
}

// FrequencyBinCount is half the window, the length of the scratch buffer
// readers use.
func (a *Analyser) FrequencyBinCount() int {
	return len(a.ring) / 2
}

// WritePCM16 appends interleaved little-endian PCM16, downmixed to mono.
func (a *Analyser) WritePCM16(pcm []byte, channels int) {
	if channels < 1 {
		channels = 1
	}
	frame := 2 * channels
	frames := len(pcm) / frame

	a.mu.Lock()
	defer a.mu.Unlock()
	for f := 0; f < frames; f++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			s := int16(binary.LittleEndian.Uint16(pcm[f*frame+2*ch:]))
			sum += float32(s) / 32768
		}
		a.ring[a.pos] = sum / float32(channels)
		a.pos = (a.pos + 1) % len(a.ring)
	}
}

// ByteTimeDomainData fills dst with the oldest len(dst) samples of the
// current window, encoded as unsigned bytes centred at 128.
func (a *Analyser) ByteTimeDomainData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(dst)
	if n > len(a.ring) {
		n = len(a.ring)
	}
	for i := 0; i < n; i++ {
		s := a.ring[(a.pos+i)%len(a.ring)]
		v := 128 * (1 + s)
		switch {
		case v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		dst[i] = byte(v)
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 128
	}
}

// Reset fills the window with silence.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.ring {
		a.ring[i] = 0
	}
	a.pos = 0
}
