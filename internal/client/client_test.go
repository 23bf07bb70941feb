package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   HealthState
	}{
		{name: "ok", status: 200, body: `{"status":"ok"}`, want: Ready},
		{name: "other status", status: 200, body: `{"status":"warming"}`, want: Degraded},
		{name: "server error", status: 503, body: `{"status":"ok"}`, want: Offline},
		{name: "bad json", status: 200, body: `nope`, want: Offline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			if got := New(srv.URL, 0).Health(context.Background()); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestHealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if got := New(url, 0).Health(context.Background()); got != Offline {
		t.Errorf("expected Offline, got %s", got)
	}
	if Offline.Healthy() || !Ready.Healthy() {
		t.Error("unexpected Healthy mapping")
	}
}

func TestChatSendsHistoryArray(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("bad body: %v", err)
		}
		io.WriteString(w, `{"reply":"Hi!"}`)
	}))
	defer srv.Close()

	resp, err := New(srv.URL+"/", 0).Chat(context.Background(), ChatRequest{Message: "Hello"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Reply != "Hi!" {
		t.Errorf("expected reply Hi!, got %q", resp.Reply)
	}
	if string(raw["message"]) != `"Hello"` || string(raw["history"]) != `[]` || string(raw["speak"]) != `false` {
		t.Errorf("unexpected body %v", raw)
	}
	audio, err := resp.Audio()
	if err != nil || audio != nil {
		t.Errorf("expected no audio, got %v, %v", audio, err)
	}
}

func TestChatStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).Chat(context.Background(), ChatRequest{Message: "Hello"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != 500 || !strings.Contains(se.Error(), "boom") {
		t.Errorf("unexpected status error %v", se)
	}
}

func TestChatResponseAudio(t *testing.T) {
	r := &ChatResponse{AudioBase64: "UklGRg=="}
	data, err := r.Audio()
	if err != nil || string(data) != "RIFF" {
		t.Errorf("expected RIFF, got %q, %v", data, err)
	}

	r = &ChatResponse{AudioBase64: "%%%"}
	if _, err := r.Audio(); err == nil {
		t.Error("expected decode error")
	}
}

func TestTranscribeMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			http.Error(w, "bad", 400)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "clip.wav" || string(data) != "RIFFDATA" {
			t.Errorf("unexpected upload %s %q", header.Filename, data)
		}
		io.WriteString(w, `{"text":"turn on the lights"}`)
	}))
	defer srv.Close()

	text, err := New(srv.URL, 0).Transcribe(context.Background(), "clip.wav", strings.NewReader("RIFFDATA"))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "turn on the lights" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestTranscribeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"No audio file uploaded"}`)
	}))
	defer srv.Close()

	if _, err := New(srv.URL, 0).Transcribe(context.Background(), "clip.wav", strings.NewReader("")); err == nil {
		t.Fatal("expected error")
	}
}
