// Package chat keeps the in-memory conversation and serialises sends.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dooshek/vibe/internal/client"
	"github.com/dooshek/vibe/internal/logger"
)

var (
	// ErrEmptyPrompt is returned for blank input; nothing is sent.
	ErrEmptyPrompt = errors.New("empty prompt")
	// ErrBusy is returned while a send is in flight.
	ErrBusy = errors.New("chat request already in flight")
)

// Sender is the backend call a session uses.
type Sender interface {
	Chat(ctx context.Context, req client.ChatRequest) (*client.ChatResponse, error)
}

// Pending is a send that has been accepted and not yet finished.
type Pending struct {
	Request client.ChatRequest
}

// Session holds the conversation history. At most one send is in flight.
type Session struct {
	mu           sync.Mutex
	history      []client.Turn
	historyLimit int
	sending      bool
}

// NewSession creates a session. A historyLimit of 0 replays every turn.
func NewSession(historyLimit int) *Session {
	return &Session{history: []client.Turn{}, historyLimit: historyLimit}
}

// Begin validates the prompt, marks the session busy and returns the request
// to send. The history in the request is a snapshot.
func (s *Session) Begin(text string, speak bool) (*Pending, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyPrompt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending {
		return nil, ErrBusy
	}
	s.sending = true

	history := make([]client.Turn, len(s.history))
	copy(history, s.history)
	return &Pending{Request: client.ChatRequest{Message: text, History: history, Speak: speak}}, nil
}

// Finish ends the in-flight send. On success the turn is appended.
func (s *Session) Finish(p *Pending, reply string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sending = false
	if err != nil || p == nil {
		return
	}
	s.history = append(s.history, client.Turn{User: p.Request.Message, Assistant: reply})
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		s.history = append([]client.Turn{}, s.history[len(s.history)-s.historyLimit:]...)
	}
}

// Send runs one full exchange through sender.
func (s *Session) Send(ctx context.Context, sender Sender, p *Pending) (*client.ChatResponse, error) {
	resp, err := sender.Chat(ctx, p.Request)
	if err != nil {
		s.Finish(p, "", err)
		logger.Error("Chat request failed", err)
		return nil, fmt.Errorf("chat failed: %w", err)
	}
	s.Finish(p, resp.Reply, nil)
	return resp, nil
}

// Busy reports whether a send is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// History returns a copy of the completed turns in order.
func (s *Session) History() []client.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]client.Turn, len(s.history))
	copy(out, s.history)
	return out
}
