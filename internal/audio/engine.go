// Package audio owns the process's audio devices: the microphone sensing
// stream, clip playback and recording streams, and the analysers that expose
// their energy to the renderer.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dooshek/vibe/internal/energy"
	"github.com/dooshek/vibe/internal/logger"
	"github.com/dooshek/vibe/pkg/wav"
)

var (
	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("audio engine closed")
	// ErrUnsupportedClip is returned for audio the playback path cannot play.
	ErrUnsupportedClip = errors.New("unsupported audio clip")
)

// Engine coordinates sensing, playback and recording over one Backend.
type Engine struct {
	backend    Backend
	sampleRate int
	fftSize    int

	// playMu serialises Play; clips never overlap on the shared output tap.
	playMu sync.Mutex

	mu            sync.Mutex
	closed        bool
	sensingTried  bool
	input         *Analyser
	inputDevice   Device
	output        *Analyser
	outputCreated int
}

// NewEngine creates an engine. Nothing is opened until first use.
func NewEngine(backend Backend, sampleRate, fftSize int) *Engine {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if fftSize <= 0 {
		fftSize = DefaultFFTSize
	}
	return &Engine{backend: backend, sampleRate: sampleRate, fftSize: fftSize}
}

// BinCount is the scratch length renderers should sample taps with.
func (e *Engine) BinCount() int {
	return e.fftSize / 2
}

// StartSensing opens the microphone sensing stream. Only the first call
// does anything; a failure leaves sensing disabled for the process lifetime.
func (e *Engine) StartSensing() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.sensingTried {
		return nil
	}
	e.sensingTried = true

	analyser := NewAnalyser(e.fftSize)
	device, err := e.backend.OpenCapture(DeviceConfig{SampleRate: e.sampleRate, Channels: 1}, func(in []byte) {
		analyser.WritePCM16(in, 1)
	})
	if err != nil {
		logger.Warnf("Mic sensing unavailable: %v", err)
		return fmt.Errorf("mic sensing unavailable: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Close()
		logger.Warnf("Mic sensing unavailable: %v", err)
		return fmt.Errorf("mic sensing unavailable: %w", err)
	}

	e.input = analyser
	e.inputDevice = device
	logger.Debug("Mic sensing started")
	return nil
}

// SensingAttempted reports whether StartSensing has run.
func (e *Engine) SensingAttempted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sensingTried
}

// InputTap returns the microphone analyser, or nil when sensing is off.
func (e *Engine) InputTap() energy.Tap {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.input == nil {
		return nil
	}
	return e.input
}

// OutputTap returns the playback analyser, or nil before the first clip.
func (e *Engine) OutputTap() energy.Tap {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.output == nil {
		return nil
	}
	return e.output
}

func (e *Engine) outputAnalyser() *Analyser {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.output == nil {
		e.output = NewAnalyser(e.fftSize)
		e.outputCreated++
	}
	return e.output
}

// Play decodes a WAV clip and plays it to completion, tapping the shared
// output analyser. A second call waits for the first clip to finish. It
// returns early when ctx is cancelled.
func (e *Engine) Play(ctx context.Context, data []byte) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}

	clip, err := wav.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedClip, err)
	}
	if clip.Channels < 1 || clip.SampleRate <= 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedClip, clip.Channels, clip.SampleRate)
	}

	e.playMu.Lock()
	defer e.playMu.Unlock()

	analyser := e.outputAnalyser()
	pcm := make([]byte, 2*len(clip.Samples))
	for i, s := range clip.Samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}

	done := make(chan struct{})
	var (
		mu       sync.Mutex
		cursor   int
		finished bool
		stopped  bool
	)
	fill := func(out []byte) {
		mu.Lock()
		defer mu.Unlock()

		if stopped {
			for i := range out {
				out[i] = 0
			}
			return
		}
		n := copy(out, pcm[cursor:])
		cursor += n
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		analyser.WritePCM16(out, clip.Channels)
		if cursor >= len(pcm) && !finished {
			finished = true
			close(done)
		}
	}

	device, err := e.backend.OpenPlayback(DeviceConfig{SampleRate: clip.SampleRate, Channels: clip.Channels}, fill)
	if err != nil {
		return fmt.Errorf("failed to open playback device: %w", err)
	}
	defer device.Close()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	logger.Debugf("Playing %d frames at %d Hz", clip.Frames(), clip.SampleRate)

	select {
	case <-done:
	case <-ctx.Done():
	}
	if err := device.Stop(); err != nil {
		logger.Warnf("Error stopping playback device: %v", err)
	}

	// The output tap must read silence between clips.
	mu.Lock()
	stopped = true
	mu.Unlock()
	analyser.Reset()

	return ctx.Err()
}

// OpenRecording opens and starts a capture stream for a clip.
func (e *Engine) OpenRecording() (*Recording, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	rec := newRecording(e.sampleRate, 1)
	device, err := e.backend.OpenCapture(DeviceConfig{SampleRate: e.sampleRate, Channels: 1}, rec.push)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Close()
		return nil, fmt.Errorf("failed to start recording: %w", err)
	}
	rec.device = device
	return rec, nil
}

// Close stops sensing and releases the backend.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	device := e.inputDevice
	e.inputDevice = nil
	e.input = nil
	e.mu.Unlock()

	if device != nil {
		if err := device.Stop(); err != nil {
			logger.Warnf("Error stopping sensing device: %v", err)
		}
		device.Close()
	}
	return e.backend.Close()
}
