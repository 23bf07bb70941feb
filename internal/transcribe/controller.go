// Package transcribe records a clip from the microphone and uploads it for
// transcription.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dooshek/vibe/internal/logger"
)

var (
	// ErrBusy is returned by Start when a recording is already active or
	// still being finalised.
	ErrBusy = errors.New("recording already in progress")
	// ErrNotRecording is returned by Stop when nothing is being recorded.
	ErrNotRecording = errors.New("not recording")
	// ErrMicrophone wraps failures to open the capture stream.
	ErrMicrophone = errors.New("microphone unavailable")
)

// State is the controller's lifecycle position.
type State int

const (
	Idle State = iota
	Recording
	Finalizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Finalizing:
		return "finalizing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stream is a live capture stream. Its chunk channel is closed by Stop.
type Stream interface {
	Chunks() <-chan []byte
	Format() (sampleRate, channels int)
	Stop() error
}

// Opener opens a new capture stream.
type Opener func() (Stream, error)

// Uploader sends an encoded clip for transcription.
type Uploader interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Result is the outcome of one recording.
type Result struct {
	Text     string
	Filename string
	Bytes    int
	Err      error
}

type clip struct {
	pcm        []byte
	sampleRate int
	channels   int
}

type encoded struct {
	data     []byte
	filename string
	err      error
}

// Controller drives Idle -> Recording -> Finalizing -> Idle.
type Controller struct {
	open     Opener
	encoder  Encoder
	uploader Uploader

	mu      sync.Mutex
	state   State
	stream  Stream
	cancel  context.CancelFunc
	results chan Result
}

// NewController creates an idle controller.
func NewController(open Opener, encoder Encoder, uploader Uploader) *Controller {
	return &Controller{open: open, encoder: encoder, uploader: uploader}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens the capture stream and the processing pipeline. The pipeline
// runs until the stream is stopped and uses ctx for the upload.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle {
		return ErrBusy
	}
	stream, err := c.open()
	if err != nil {
		logger.Error("Cannot record", err)
		return fmt.Errorf("%w: %v", ErrMicrophone, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.state = Recording
	c.stream = stream
	c.cancel = cancel
	c.results = make(chan Result, 1)

	go c.upload(ctx, c.encode(c.assemble(stream)), c.results)

	logger.Info("🎙️  Recording started...")
	return nil
}

// Stop ends the capture. The returned channel yields exactly one Result and
// is then closed.
func (c *Controller) Stop() (<-chan Result, error) {
	c.mu.Lock()
	if c.state != Recording {
		c.mu.Unlock()
		return nil, ErrNotRecording
	}
	c.state = Finalizing
	stream := c.stream
	results := c.results
	c.mu.Unlock()

	if err := stream.Stop(); err != nil {
		logger.Warnf("Error stopping capture: %v", err)
	}
	logger.Info("🎙️ Processing audio...")
	return results, nil
}

// Abort stops any active recording and discards it. The pipeline still
// returns the controller to Idle.
func (c *Controller) Abort() {
	c.mu.Lock()
	stream := c.stream
	cancel := c.cancel
	recording := c.state == Recording
	if recording {
		c.state = Finalizing
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if recording && stream != nil {
		if err := stream.Stop(); err != nil {
			logger.Warnf("Error stopping capture: %v", err)
		}
	}
}

func (c *Controller) assemble(stream Stream) <-chan clip {
	out := make(chan clip, 1)
	go func() {
		defer close(out)
		var buf bytes.Buffer
		for chunk := range stream.Chunks() {
			buf.Write(chunk)
		}
		rate, channels := stream.Format()
		out <- clip{pcm: buf.Bytes(), sampleRate: rate, channels: channels}
	}()
	return out
}

func (c *Controller) encode(in <-chan clip) <-chan encoded {
	out := make(chan encoded, 1)
	go func() {
		defer close(out)
		for cl := range in {
			data, filename, err := c.encoder.Encode(cl.pcm, cl.sampleRate, cl.channels)
			if err != nil {
				err = fmt.Errorf("failed to encode clip: %w", err)
			}
			out <- encoded{data: data, filename: filename, err: err}
		}
	}()
	return out
}

func (c *Controller) upload(ctx context.Context, in <-chan encoded, results chan<- Result) {
	var result Result
	enc, ok := <-in
	switch {
	case !ok:
		result.Err = errors.New("recording pipeline closed without a clip")
	case enc.err != nil:
		result.Err = enc.err
	case ctx.Err() != nil:
		result.Err = ctx.Err()
	default:
		result.Filename = enc.filename
		result.Bytes = len(enc.data)
		logger.Infof("🎙️ Transcribing %s (%d bytes)...", enc.filename, len(enc.data))
		text, err := c.uploader.Transcribe(ctx, enc.filename, bytes.NewReader(enc.data))
		if err != nil {
			result.Err = fmt.Errorf("transcription error: %w", err)
		} else {
			result.Text = text
			logger.Infof("📝 Transcription: %s", text)
		}
	}
	if result.Err != nil {
		logger.Error("Transcription failed", result.Err)
	}

	c.mu.Lock()
	c.state = Idle
	c.stream = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	results <- result
	close(results)
}
