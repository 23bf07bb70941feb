package audio

import (
	"sync"
	"sync/atomic"

	"github.com/dooshek/vibe/internal/logger"
)

const recordingBuffer = 256

// Recording is a live capture stream. Chunks arrive on Chunks until Stop,
// after which the channel is closed.
type Recording struct {
	SampleRate int
	Channels   int

	device Device
	chunks chan []byte

	mu       sync.Mutex
	stopped  bool
	stopOnce sync.Once
	stopErr  error

	overruns atomic.Int64
}

func newRecording(sampleRate, channels int) *Recording {
	return &Recording{
		SampleRate: sampleRate,
		Channels:   channels,
		chunks:     make(chan []byte, recordingBuffer),
	}
}

// Format returns the stream's sample rate and channel count.
func (r *Recording) Format() (sampleRate, channels int) {
	return r.SampleRate, r.Channels
}

// Chunks returns the PCM16 chunk stream.
func (r *Recording) Chunks() <-chan []byte {
	return r.chunks
}

func (r *Recording) push(in []byte) {
	if len(in) == 0 {
		return
	}
	chunk := make([]byte, len(in))
	copy(chunk, in)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	select {
	case r.chunks <- chunk:
	default:
		r.overruns.Add(1)
	}
}

// Stop releases the device and closes the chunk stream. Safe to call more
// than once.
func (r *Recording) Stop() error {
	r.stopOnce.Do(func() {
		if r.device != nil {
			r.stopErr = r.device.Stop()
		}

		r.mu.Lock()
		r.stopped = true
		close(r.chunks)
		r.mu.Unlock()

		if r.device != nil {
			r.device.Close()
		}
		if n := r.overruns.Load(); n > 0 {
			logger.Warnf("Recording dropped %d chunks", n)
		}
	})
	return r.stopErr
}
