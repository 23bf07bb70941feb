package audio

import (
	"fmt"
	"sync"

	"github.com/dooshek/vibe/internal/logger"
	"github.com/gen2brain/malgo"
)

// DeviceConfig describes a PCM16 stream.
type DeviceConfig struct {
	SampleRate int
	Channels   int
}

// Device is an opened capture or playback stream.
type Device interface {
	Start() error
	Stop() error
	Close()
}

// Backend opens audio devices. Capture callbacks receive interleaved PCM16
// input; playback callbacks fill an interleaved PCM16 output buffer.
type Backend interface {
	OpenCapture(cfg DeviceConfig, onData func(in []byte)) (Device, error)
	OpenPlayback(cfg DeviceConfig, fill func(out []byte)) (Device, error)
	Close() error
}

// MalgoBackend is a miniaudio backend. The context is initialised on the
// first device open and shared by every device afterwards.
type MalgoBackend struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

// NewMalgoBackend returns a backend with no context yet.
func NewMalgoBackend() *MalgoBackend {
	return &MalgoBackend{}
}

func (b *MalgoBackend) context() (*malgo.AllocatedContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx != nil {
		return b.ctx, nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debugf("malgo: %s", message)
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing audio context: %w", err)
	}
	b.ctx = ctx
	return ctx, nil
}

// OpenCapture opens the default capture device.
func (b *MalgoBackend) OpenCapture(cfg DeviceConfig, onData func(in []byte)) (Device, error) {
	ctx, err := b.context()
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(_, inputBuffer []byte, _ uint32) {
			onData(inputBuffer)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing capture device: %w", err)
	}
	return &malgoDevice{device: device}, nil
}

// OpenPlayback opens the default playback device.
func (b *MalgoBackend) OpenPlayback(cfg DeviceConfig, fill func(out []byte)) (Device, error) {
	ctx, err := b.context()
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(outputBuffer, _ []byte, _ uint32) {
			fill(outputBuffer)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing playback device: %w", err)
	}
	return &malgoDevice{device: device}, nil
}

// Close releases the shared context.
func (b *MalgoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil
	}
	if err := b.ctx.Uninit(); err != nil {
		logger.Warnf("Error uninitializing audio context: %v", err)
	}
	b.ctx.Free()
	b.ctx = nil
	return nil
}

type malgoDevice struct {
	device *malgo.Device
}

func (d *malgoDevice) Start() error {
	return d.device.Start()
}

func (d *malgoDevice) Stop() error {
	return d.device.Stop()
}

func (d *malgoDevice) Close() {
	d.device.Uninit()
}
