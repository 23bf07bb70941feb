package audio

import (
	"errors"
	"sync"
)

type fakeDevice struct {
	mu      sync.Mutex
	started bool
	stopped bool
	closed  bool
	failOn  string
	onClose func()
}

func (d *fakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOn == "start" {
		return errors.New("start failed")
	}
	d.started = true
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *fakeDevice) Close() {
	d.mu.Lock()
	d.closed = true
	hook := d.onClose
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
}

type fakeBackend struct {
	mu            sync.Mutex
	captureErr    error
	captureOpens  int
	playbackOpens int
	captures      []func([]byte)
	captureDevs   []*fakeDevice
	playbackCfg   DeviceConfig
	fill          func([]byte)
	onPlayback    func(fill func([]byte))
	activePlays   int
	maxActive     int
	closed        bool
}

func (b *fakeBackend) OpenCapture(cfg DeviceConfig, onData func(in []byte)) (Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.captureOpens++
	if b.captureErr != nil {
		return nil, b.captureErr
	}
	d := &fakeDevice{}
	b.captures = append(b.captures, onData)
	b.captureDevs = append(b.captureDevs, d)
	return d, nil
}

func (b *fakeBackend) OpenPlayback(cfg DeviceConfig, fill func(out []byte)) (Device, error) {
	b.mu.Lock()
	b.playbackOpens++
	b.playbackCfg = cfg
	b.fill = fill
	b.activePlays++
	if b.activePlays > b.maxActive {
		b.maxActive = b.activePlays
	}
	hook := b.onPlayback
	b.mu.Unlock()

	d := &fakeDevice{onClose: func() {
		b.mu.Lock()
		b.activePlays--
		b.mu.Unlock()
	}}
	if hook != nil {
		go hook(fill)
	}
	return d, nil
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBackend) capture(i int) func([]byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.captures[i]
}
