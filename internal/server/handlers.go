package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dooshek/vibe/internal/llm"
	"github.com/dooshek/vibe/internal/usage"
	"github.com/dooshek/vibe/pkg/wav"
)

const (
	maxChatBody   = 1 << 20
	maxUploadBody = 32 << 20
)

// ChatTurn is one earlier exchange sent as history.
type ChatTurn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// ChatRequest is the body of POST /api/chat. A non-empty System overrides
// the configured system prompt for this request only.
type ChatRequest struct {
	Message string     `json:"message"`
	History []ChatTurn `json:"history"`
	Speak   bool       `json:"speak"`
	System  string     `json:"system,omitempty"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Reply       string `json:"reply"`
	AudioBase64 string `json:"audio_base64,omitempty"`
}

// TranscribeResponse is the body returned by POST /api/transcribe.
type TranscribeResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	log := requestLogger(r.Context())

	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "Message must not be empty")
		return
	}
	s.metrics.RecordChat(len(req.History))

	history := make([]llm.Exchange, len(req.History))
	for i, turn := range req.History {
		history[i] = llm.Exchange{User: turn.User, Assistant: turn.Assistant}
	}

	system := s.config.Prompt.System
	if override := strings.TrimSpace(req.System); override != "" {
		system = override
	}

	chat := s.config.LLM.Chat
	started := time.Now()
	reply, err := s.deps.Chat.Completion(r.Context(), llm.CompletionRequest{
		Model:         chat.Model,
		Messages:      llm.BuildMessages(system, history, message),
		MaxTokens:     chat.MaxTokens,
		ContextWindow: chat.ContextWindow,
		Temperature:   chat.Temperature,
		TopP:          chat.TopP,
		Stop:          chat.Stop,
	})
	s.metrics.RecordCompletion(time.Since(started).Seconds(), err)
	if err != nil {
		log.Error().Err(err).Msg("chat completion failed")
		writeError(w, http.StatusInternalServerError, "Chat completion failed")
		return
	}

	s.track(chat.Model, 0)

	resp := ChatResponse{Reply: strings.TrimSpace(reply)}
	if req.Speak {
		resp.AudioBase64 = s.speak(r, resp.Reply)
	}

	log.Info().Int("history", len(req.History)).Bool("spoken", resp.AudioBase64 != "").Msg("chat answered")
	writeJSON(w, http.StatusOK, resp)
}

// speak synthesizes reply and returns it base64-encoded. Failures are
// logged and yield "" so the text reply still reaches the caller.
func (s *Server) speak(r *http.Request, reply string) string {
	log := requestLogger(r.Context())
	if s.deps.Speech == nil {
		log.Warn().Msg("speech requested but tts is disabled")
		return ""
	}
	if reply == "" {
		return ""
	}

	started := time.Now()
	audio, err := s.deps.Speech.GetAudio(r.Context(), reply)
	s.metrics.RecordSpeech(time.Since(started).Seconds(), len(audio), err)
	if err != nil {
		log.Error().Err(err).Msg("speech synthesis failed")
		return ""
	}
	return base64.StdEncoding.EncodeToString(audio)
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	log := requestLogger(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Audio file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No audio file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read audio file")
		return
	}
	s.metrics.RecordTranscriptionRequest(int64(len(data)))

	started := time.Now()
	text, err := s.deps.Transcriber.Transcribe(r.Context(), header.Filename, bytes.NewReader(data))
	took := time.Since(started).Seconds()
	if err != nil {
		s.metrics.RecordTranscriptionFailure(took)
		log.Error().Err(err).Str("filename", header.Filename).Msg("transcription failed")
		writeError(w, http.StatusInternalServerError, "Transcription failed")
		return
	}
	s.metrics.RecordTranscriptionSuccess(took)
	s.track(s.config.LLM.Transcription.Model, clipSeconds(data))

	log.Info().Str("filename", header.Filename).Int64("bytes", header.Size).Msg("clip transcribed")
	writeJSON(w, http.StatusOK, TranscribeResponse{Text: text})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.deps.Usage == nil {
		writeJSON(w, http.StatusOK, usage.Usage{Models: map[string]*usage.ModelUsage{}})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Usage.Snapshot())
}

func (s *Server) track(model string, audioSeconds float64) {
	if s.deps.Usage != nil {
		s.deps.Usage.Add(model, audioSeconds)
	}
}

// clipSeconds is the duration of a WAV upload, 0 for anything else.
func clipSeconds(data []byte) float64 {
	clip, err := wav.Decode(data)
	if err != nil || clip.SampleRate == 0 {
		return 0
	}
	return float64(clip.Frames()) / float64(clip.SampleRate)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
