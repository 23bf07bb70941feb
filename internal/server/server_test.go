package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dooshek/vibe/internal/llm"
	"github.com/dooshek/vibe/internal/types"
	"github.com/dooshek/vibe/internal/usage"
	"github.com/dooshek/vibe/pkg/wav"
)

type fakeChat struct {
	reply string
	err   error
	got   llm.CompletionRequest
	calls int
}

func (f *fakeChat) Completion(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.calls++
	f.got = req
	return f.reply, f.err
}

type fakeTranscriber struct {
	text     string
	err      error
	filename string
	data     []byte
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, filename string, audio llm.AudioReader) (string, error) {
	f.filename = filename
	f.data, _ = io.ReadAll(audio)
	return f.text, f.err
}

type fakeSpeech struct {
	audio []byte
	err   error
	text  string
}

func (f *fakeSpeech) GetAudio(ctx context.Context, text string) ([]byte, error) {
	f.text = text
	return f.audio, f.err
}

type harness struct {
	chat   *fakeChat
	stt    *fakeTranscriber
	speech *fakeSpeech
	usage  *usage.Tracker
	srv    *httptest.Server
}

func newHarness(t *testing.T, withSpeech bool) *harness {
	t.Helper()
	h := &harness{
		chat:   &fakeChat{reply: " Hi! \n"},
		stt:    &fakeTranscriber{text: "hello world"},
		speech: &fakeSpeech{audio: []byte("RIFF")},
		usage:  usage.NewTracker(filepath.Join(t.TempDir(), "usage.json")),
	}
	deps := Deps{Chat: h.chat, Transcriber: h.stt, Usage: h.usage, Registry: prometheus.NewRegistry()}
	if withSpeech {
		deps.Speech = h.speech
	}
	s := New(types.DefaultServerConfig(), deps)
	h.srv = httptest.NewServer(s.Handler())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) postJSON(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(h.srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestHealth(t *testing.T) {
	h := newHarness(t, false)

	resp, err := http.Get(h.srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", resp.StatusCode, body)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected permissive CORS header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHarness(t, false)

	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+"/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected echoed request id, got %q", got)
	}
}

func TestPreflight(t *testing.T) {
	h := newHarness(t, false)

	req, _ := http.NewRequest(http.MethodOptions, h.srv.URL+"/api/chat", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if h.chat.calls != 0 {
		t.Error("preflight must not reach the model")
	}
}

func TestChatBuildsPrompt(t *testing.T) {
	h := newHarness(t, false)

	resp, data := h.postJSON(t, "/api/chat",
		`{"message":" Hello ","history":[{"user":"hi","assistant":"hey"}],"speak":false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}

	var body ChatResponse
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatal(err)
	}
	if body.Reply != "Hi!" || body.AudioBase64 != "" {
		t.Errorf("unexpected body %+v", body)
	}
	if strings.Contains(string(data), "audio_base64") {
		t.Errorf("audio field should be omitted, got %s", data)
	}

	cfg := types.DefaultServerConfig()
	got := h.chat.got
	if got.Model != cfg.LLM.Chat.Model || got.TopP != cfg.LLM.Chat.TopP || got.Temperature != cfg.LLM.Chat.Temperature {
		t.Errorf("sampling config not applied: %+v", got)
	}
	if got.ContextWindow != cfg.LLM.Chat.ContextWindow || len(got.Stop) != len(types.DefaultStop) {
		t.Errorf("token budget or stop sequences not applied: %+v", got)
	}
	want := []llm.ChatCompletionMessage{
		{Role: llm.RoleSystem, Content: types.DefaultSystemPrompt},
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hey"},
		{Role: llm.RoleUser, Content: "Hello"},
	}
	if len(got.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got.Messages))
	}
	for i := range want {
		if got.Messages[i] != want[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, want[i], got.Messages[i])
		}
	}
}

func TestChatSystemOverride(t *testing.T) {
	h := newHarness(t, false)

	h.postJSON(t, "/api/chat", `{"message":"Hello","system":"Answer in French."}`)
	if len(h.chat.got.Messages) != 2 || h.chat.got.Messages[0].Content != "Answer in French." {
		t.Errorf("system prompt not overridden: %+v", h.chat.got.Messages)
	}
}

func TestChatRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty message", body: `{"message":"","history":[]}`},
		{name: "whitespace message", body: `{"message":"   "}`},
		{name: "invalid json", body: `{"message":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			resp, data := h.postJSON(t, "/api/chat", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
			if !strings.Contains(string(data), `"detail"`) {
				t.Errorf("expected detail field, got %s", data)
			}
			if h.chat.calls != 0 {
				t.Error("model should not be called")
			}
		})
	}
}

func TestChatModelFailure(t *testing.T) {
	h := newHarness(t, false)
	h.chat.err = errors.New("upstream down")

	resp, _ := h.postJSON(t, "/api/chat", `{"message":"Hello"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}

func TestChatSpeaks(t *testing.T) {
	h := newHarness(t, true)

	_, data := h.postJSON(t, "/api/chat", `{"message":"Hello","speak":true}`)
	var body ChatResponse
	json.Unmarshal(data, &body)

	audio, err := base64.StdEncoding.DecodeString(body.AudioBase64)
	if err != nil || string(audio) != "RIFF" {
		t.Errorf("expected base64 WAV, got %q (%v)", body.AudioBase64, err)
	}
	if h.speech.text != "Hi!" {
		t.Errorf("expected trimmed reply to be spoken, got %q", h.speech.text)
	}
}

func TestChatSpeechFailureKeepsReply(t *testing.T) {
	tests := []struct {
		name       string
		withSpeech bool
		speechErr  error
	}{
		{name: "tts disabled", withSpeech: false},
		{name: "tts error", withSpeech: true, speechErr: errors.New("quota")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.withSpeech)
			h.speech.err = tt.speechErr

			resp, data := h.postJSON(t, "/api/chat", `{"message":"Hello","speak":true}`)
			var body ChatResponse
			json.Unmarshal(data, &body)
			if resp.StatusCode != http.StatusOK || body.Reply != "Hi!" || body.AudioBase64 != "" {
				t.Errorf("unexpected response %d %+v", resp.StatusCode, body)
			}
		})
	}
}

func TestChatMethodNotAllowed(t *testing.T) {
	h := newHarness(t, false)
	resp, err := http.Get(h.srv.URL + "/api/chat")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func upload(t *testing.T, url, field, filename string, data []byte) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	}
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func TestTranscribe(t *testing.T) {
	h := newHarness(t, false)

	resp, data := upload(t, h.srv.URL+"/api/transcribe", "file", "clip.wav", []byte("RIFFDATA"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}
	var body TranscribeResponse
	json.Unmarshal(data, &body)
	if body.Text != "hello world" {
		t.Errorf("expected text, got %+v", body)
	}
	if h.stt.filename != "clip.wav" || string(h.stt.data) != "RIFFDATA" {
		t.Errorf("unexpected upload %s %q", h.stt.filename, h.stt.data)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
	}{
		{name: "no file part", field: ""},
		{name: "wrong field", field: "audio", filename: "clip.wav"},
		{name: "empty filename", field: "file", filename: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			resp, data := upload(t, h.srv.URL+"/api/transcribe", tt.field, tt.filename, []byte("RIFF"))
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
			if strings.TrimSpace(string(data)) != `{"detail":"No audio file uploaded"}` {
				t.Errorf("unexpected body %s", data)
			}
		})
	}
}

func TestTranscribeFailure(t *testing.T) {
	h := newHarness(t, false)
	h.stt.err = errors.New("whisper down")

	resp, _ := upload(t, h.srv.URL+"/api/transcribe", "file", "clip.wav", []byte("RIFF"))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}

func TestUsageTracking(t *testing.T) {
	h := newHarness(t, false)
	cfg := types.DefaultServerConfig()

	// One second of 16 kHz mono silence.
	clip, err := wav.ConvertPCMToWAV(make([]byte, 2*16000), 1, 16000)
	if err != nil {
		t.Fatal(err)
	}
	upload(t, h.srv.URL+"/api/transcribe", "file", "clip.wav", clip)
	upload(t, h.srv.URL+"/api/transcribe", "file", "clip.ogg", []byte("OggS"))
	h.postJSON(t, "/api/chat", `{"message":"Hello"}`)

	resp, err := http.Get(h.srv.URL + "/api/usage")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got usage.Usage
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}

	stt := got.Models[cfg.LLM.Transcription.Model]
	if stt == nil || stt.Requests != 2 || stt.AudioSeconds != 1 {
		t.Errorf("unexpected transcription usage %+v", stt)
	}
	if c := got.Models[cfg.LLM.Chat.Model]; c == nil || c.Requests != 1 {
		t.Errorf("unexpected chat usage %+v", c)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, false)
	h.postJSON(t, "/api/chat", `{"message":"Hello"}`)

	resp, err := http.Get(h.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	for _, want := range []string{"vibe_chat_requests_total 1", "vibe_http_requests_total"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
