package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/dooshek/vibe/internal/client"
)

type stubSender struct {
	requests []client.ChatRequest
	reply    string
	err      error
}

func (s *stubSender) Chat(_ context.Context, req client.ChatRequest) (*client.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &client.ChatResponse{Reply: s.reply}, nil
}

func TestBeginRejectsEmptyPrompt(t *testing.T) {
	s := NewSession(0)
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := s.Begin(text, false); !errors.Is(err, ErrEmptyPrompt) {
			t.Errorf("Begin(%q): expected ErrEmptyPrompt, got %v", text, err)
		}
	}
	if s.Busy() {
		t.Error("empty prompt must not mark the session busy")
	}
}

func TestBeginWhileBusy(t *testing.T) {
	s := NewSession(0)
	p, err := s.Begin("first", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Begin("second", false); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	s.Finish(p, "ok", nil)
	if len(s.History()) != 1 {
		t.Errorf("second send must not be recorded, history=%v", s.History())
	}
	if _, err := s.Begin("third", false); err != nil {
		t.Errorf("expected send to be allowed after finish, got %v", err)
	}
}

func TestSendHelloScenario(t *testing.T) {
	s := NewSession(0)
	sender := &stubSender{reply: "Hi! How can I help?"}

	p, err := s.Begin("  Hello ", false)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := s.Send(context.Background(), sender, p)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp.Reply != "Hi! How can I help?" {
		t.Errorf("unexpected reply %q", resp.Reply)
	}

	req := sender.requests[0]
	if req.Message != "Hello" || req.History == nil || len(req.History) != 0 || req.Speak {
		t.Errorf("unexpected request %+v", req)
	}
	want := []client.Turn{{User: "Hello", Assistant: "Hi! How can I help?"}}
	if got := s.History(); len(got) != 1 || got[0] != want[0] {
		t.Errorf("expected history %v, got %v", want, got)
	}
	if s.Busy() {
		t.Error("session should be idle after send")
	}
}

func TestSendFailureKeepsHistory(t *testing.T) {
	s := NewSession(0)
	sender := &stubSender{err: &client.StatusError{Endpoint: "/api/chat", Code: 500}}

	p, _ := s.Begin("Hello", true)
	if _, err := s.Send(context.Background(), sender, p); err == nil {
		t.Fatal("expected error")
	}
	if len(s.History()) != 0 {
		t.Error("failed send must not append a turn")
	}
	if s.Busy() {
		t.Error("session must accept new sends after a failure")
	}
	if !sender.requests[0].Speak {
		t.Error("speak flag not forwarded")
	}
}

func TestHistoryReplayedInOrder(t *testing.T) {
	s := NewSession(0)
	sender := &stubSender{reply: "r"}
	for _, msg := range []string{"a", "b", "c"} {
		p, err := s.Begin(msg, false)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Send(context.Background(), sender, p); err != nil {
			t.Fatal(err)
		}
	}
	last := sender.requests[2].History
	if len(last) != 2 || last[0].User != "a" || last[1].User != "b" {
		t.Errorf("unexpected replayed history %v", last)
	}
}

func TestHistoryLimit(t *testing.T) {
	s := NewSession(2)
	for _, msg := range []string{"a", "b", "c"} {
		p, _ := s.Begin(msg, false)
		s.Finish(p, "r", nil)
	}
	h := s.History()
	if len(h) != 2 || h[0].User != "b" || h[1].User != "c" {
		t.Errorf("expected last two turns, got %v", h)
	}
}
