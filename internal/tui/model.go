// Package tui is the full-screen terminal client: the animated cloud with
// the chat log on top, a prompt and a control bar.
package tui

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dooshek/vibe/internal/chat"
	"github.com/dooshek/vibe/internal/client"
	"github.com/dooshek/vibe/internal/cloud"
	"github.com/dooshek/vibe/internal/energy"
	"github.com/dooshek/vibe/internal/logger"
	"github.com/dooshek/vibe/internal/transcribe"
)

const (
	RoleYou    = "You"
	RoleVibe   = "Vibe"
	RoleSystem = "System"

	greeting         = "Hey there! I can chat, listen, and speak back. Let the cloud guide you."
	msgBackendDown   = "Could not reach the model backend. Is the server running?"
	msgMicBlocked    = "Microphone access was blocked."
	msgTranscribing  = "Transcribing your clip…"
	msgTranscribed   = "Transcription ready. Edit or hit Send."
	msgTranscribeErr = "Could not transcribe audio. Check server logs."

	statusError = "Error"
)

// Backend is the subset of the HTTP client the UI calls.
type Backend interface {
	Health(ctx context.Context) client.HealthState
	Chat(ctx context.Context, req client.ChatRequest) (*client.ChatResponse, error)
}

// AudioEngine is the subset of audio.Engine the UI drives.
type AudioEngine interface {
	StartSensing() error
	InputTap() energy.Tap
	OutputTap() energy.Tap
	BinCount() int
	Play(ctx context.Context, wav []byte) error
	Close() error
}

// Recorder is the push-to-talk controller.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (<-chan transcribe.Result, error)
	Abort()
}

// Options configures a Model.
type Options struct {
	Backend  Backend
	Audio    AudioEngine
	Recorder Recorder
	Session  *chat.Session

	Speak      bool
	FPS        int
	CellWidth  float64
	CellHeight float64
	Rand       *rand.Rand
}

// Bubble is one chat log entry.
type Bubble struct {
	Role string
	Text string
}

// Model is the bubbletea model.
type Model struct {
	ctx  context.Context
	opts Options

	input   textinput.Model
	bubbles []Bubble

	status    string
	healthy   bool
	speak     bool
	sending   bool
	recording bool
	holding   bool // recording started by a press on the record control
	sensed    bool

	width  int
	height int

	field   *cloud.Field
	cloud   cloud.State
	start   time.Time
	scratch []byte
	frame   time.Duration
}

// New creates the model. ctx bounds every request the UI issues.
func New(ctx context.Context, opts Options) Model {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = 8
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = 16
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	ti := textinput.New()
	ti.Placeholder = "Say something to Vibe"
	ti.Prompt = "› "
	ti.CharLimit = 2000
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.Focus()

	binCount := 256
	if opts.Audio != nil {
		binCount = opts.Audio.BinCount()
	}

	return Model{
		ctx:     ctx,
		opts:    opts,
		input:   ti,
		bubbles: []Bubble{{Role: RoleVibe, Text: greeting}},
		status:  string(client.Offline),
		speak:   opts.Speak,
		start:   time.Now(),
		scratch: make([]byte, binCount),
		frame:   time.Second / time.Duration(opts.FPS),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.checkHealth(), m.tick())
}

// Bubbles returns the chat log.
func (m Model) Bubbles() []Bubble {
	return m.bubbles
}

// Status returns the status line text and whether it is styled healthy.
func (m Model) Status() (string, bool) {
	return m.status, m.healthy
}

// Prompt returns the current prompt text.
func (m Model) Prompt() string {
	return m.input.Value()
}

// Close releases the recorder and the audio engine.
func (m Model) Close() {
	if m.opts.Recorder != nil {
		m.opts.Recorder.Abort()
	}
	if m.opts.Audio != nil {
		if err := m.opts.Audio.Close(); err != nil {
			logger.Warnf("Error closing audio engine: %v", err)
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case frameMsg:
		m.advance(time.Time(msg))
		return m, m.tick()

	case healthMsg:
		m.status = string(msg)
		m.healthy = client.HealthState(msg).Healthy()
		return m, nil

	case chatDoneMsg:
		return m.finishChat(msg)

	case playDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			logger.Warnf("Skipping reply audio: %v", msg.err)
		}
		return m, nil

	case transcribeDoneMsg:
		return m.finishTranscription(msg.result), nil

	case sensingMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sense := m.ensureSensing()

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		var cmd tea.Cmd
		m, cmd = m.send()
		return m, tea.Batch(sense, cmd)
	case "ctrl+r":
		var cmd tea.Cmd
		if m.recording {
			m, cmd = m.stopRecording()
		} else {
			m = m.startRecording()
		}
		return m, tea.Batch(sense, cmd)
	case "ctrl+t":
		m.speak = !m.speak
		return m, sense
	case "f5":
		return m, tea.Batch(sense, m.checkHealth())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, tea.Batch(sense, cmd)
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	var sense tea.Cmd
	if msg.Action == tea.MouseActionPress {
		sense = m.ensureSensing()
	}
	hit := m.controlAt(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, sense
		}
		switch hit {
		case controlSend:
			var cmd tea.Cmd
			m, cmd = m.send()
			return m, tea.Batch(sense, cmd)
		case controlRecord:
			m = m.startRecording()
			m.holding = m.recording
		case controlSpeak:
			m.speak = !m.speak
		case controlHealth:
			return m, tea.Batch(sense, m.checkHealth())
		}
		return m, sense

	case tea.MouseActionRelease:
		if m.holding {
			return m.stopRecording()
		}

	case tea.MouseActionMotion:
		// Dragging off the record control ends the clip.
		if m.holding && hit != controlRecord {
			return m.stopRecording()
		}
	}
	return m, sense
}

// ensureSensing starts microphone sensing on the first interaction.
func (m *Model) ensureSensing() tea.Cmd {
	if m.sensed || m.opts.Audio == nil {
		return nil
	}
	m.sensed = true
	eng := m.opts.Audio
	return func() tea.Msg {
		return sensingMsg{err: eng.StartSensing()}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(1, width-4)

	cols, rows := m.cloudSize()
	w := float64(cols) * m.opts.CellWidth
	h := float64(rows) * m.opts.CellHeight
	if m.field == nil {
		m.field = cloud.NewField(m.opts.Rand, w, h)
		return
	}
	m.field.Resize(w, h)
}

func (m *Model) advance(now time.Time) {
	if m.field == nil {
		return
	}
	var in, out energy.Tap
	if m.opts.Audio != nil {
		in = m.opts.Audio.InputTap()
		out = m.opts.Audio.OutputTap()
	}
	ms := float64(now.Sub(m.start)) / float64(time.Millisecond)
	m.cloud = cloud.Next(m.field, m.cloud, ms, energy.Sample(in, m.scratch), energy.Sample(out, m.scratch))
}

func (m Model) send() (Model, tea.Cmd) {
	p, err := m.opts.Session.Begin(m.input.Value(), m.speak)
	switch {
	case errors.Is(err, chat.ErrEmptyPrompt):
		m.input.Focus()
		return m, nil
	case err != nil:
		return m, nil
	}

	m.bubbles = append(m.bubbles, Bubble{Role: RoleYou, Text: p.Request.Message})
	m.input.SetValue("")
	m.sending = true

	ctx, session, backend := m.ctx, m.opts.Session, m.opts.Backend
	return m, func() tea.Msg {
		resp, err := session.Send(ctx, backend, p)
		return chatDoneMsg{resp: resp, err: err}
	}
}

func (m Model) finishChat(msg chatDoneMsg) (tea.Model, tea.Cmd) {
	m.sending = false
	m.input.Focus()

	if msg.err != nil {
		m.bubbles = append(m.bubbles, Bubble{Role: RoleSystem, Text: msgBackendDown})
		m.status = statusError
		m.healthy = false
		return m, nil
	}

	m.bubbles = append(m.bubbles, Bubble{Role: RoleVibe, Text: msg.resp.Reply})

	audio, err := msg.resp.Audio()
	if err != nil {
		logger.Warnf("Skipping reply audio: %v", err)
		return m, nil
	}
	if audio == nil || m.opts.Audio == nil {
		return m, nil
	}
	ctx, eng := m.ctx, m.opts.Audio
	return m, func() tea.Msg {
		return playDoneMsg{err: eng.Play(ctx, audio)}
	}
}

func (m Model) startRecording() Model {
	if m.recording || m.opts.Recorder == nil {
		return m
	}
	err := m.opts.Recorder.Start(m.ctx)
	switch {
	case errors.Is(err, transcribe.ErrMicrophone):
		m.bubbles = append(m.bubbles, Bubble{Role: RoleSystem, Text: msgMicBlocked})
	case err != nil:
		logger.Debugf("Recording not started: %v", err)
	default:
		m.recording = true
	}
	return m
}

func (m Model) stopRecording() (Model, tea.Cmd) {
	m.recording = false
	m.holding = false
	results, err := m.opts.Recorder.Stop()
	if err != nil {
		logger.Debugf("Recording not stopped: %v", err)
		return m, nil
	}
	m.bubbles = append(m.bubbles, Bubble{Role: RoleSystem, Text: msgTranscribing})
	return m, func() tea.Msg {
		return transcribeDoneMsg{result: <-results}
	}
}

func (m Model) finishTranscription(r transcribe.Result) Model {
	if r.Err != nil {
		m.bubbles = append(m.bubbles, Bubble{Role: RoleSystem, Text: msgTranscribeErr})
		return m
	}
	m.input.SetValue(strings.TrimSpace(r.Text))
	m.input.CursorEnd()
	m.input.Focus()
	m.bubbles = append(m.bubbles, Bubble{Role: RoleSystem, Text: msgTranscribed})
	return m
}

func (m Model) checkHealth() tea.Cmd {
	if m.opts.Backend == nil {
		return nil
	}
	ctx, backend := m.ctx, m.opts.Backend
	return func() tea.Msg {
		return healthMsg(backend.Health(ctx))
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

type (
	frameMsg          time.Time
	healthMsg         client.HealthState
	sensingMsg        struct{ err error }
	playDoneMsg       struct{ err error }
	transcribeDoneMsg struct{ result transcribe.Result }
	chatDoneMsg       struct {
		resp *client.ChatResponse
		err  error
	}
)
