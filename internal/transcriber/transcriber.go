package transcriber

import (
	"context"
	"fmt"
	"strings"

	"github.com/dooshek/vibe/internal/llm"
	"github.com/dooshek/vibe/internal/logger"
)

type Transcriber struct {
	provider llm.Provider
}

func NewTranscriber(provider llm.Provider) *Transcriber {
	logger.Debug("Initializing transcriber")
	return &Transcriber{provider: provider}
}

// Transcribe converts an uploaded audio stream to text. The filename is
// passed through so the provider can infer the container format.
func (t *Transcriber) Transcribe(ctx context.Context, filename string, audio llm.AudioReader) (string, error) {
	logger.Debugf("Starting transcription of upload: %s", filename)

	text, err := t.provider.TranscribeAudio(ctx, filename, audio)
	if err != nil {
		logger.Error("Error during transcription", err)
		return "", fmt.Errorf("error transcribing audio: %w", err)
	}

	logger.Debug("Transcription completed successfully")
	return strings.TrimSpace(text), nil
}
