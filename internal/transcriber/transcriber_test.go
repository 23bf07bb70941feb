package transcriber

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dooshek/vibe/internal/llm"
)

type fakeProvider struct {
	filename string
	data     string
	text     string
	err      error
}

func (f *fakeProvider) TranscribeAudio(ctx context.Context, filename string, reader llm.AudioReader) (string, error) {
	b, _ := io.ReadAll(reader)
	f.filename, f.data = filename, string(b)
	return f.text, f.err
}

func (f *fakeProvider) Completion(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return "", errors.New("not used")
}

func TestTranscribeTrimsText(t *testing.T) {
	fake := &fakeProvider{text: "  hello world\n"}
	tr := NewTranscriber(fake)

	text, err := tr.Transcribe(context.Background(), "clip.wav", strings.NewReader("RIFF"))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("expected trimmed text, got %q", text)
	}
	if fake.filename != "clip.wav" || fake.data != "RIFF" {
		t.Errorf("unexpected upload %s %q", fake.filename, fake.data)
	}
}

func TestTranscribeWrapsProviderError(t *testing.T) {
	boom := errors.New("boom")
	tr := NewTranscriber(&fakeProvider{err: boom})

	if _, err := tr.Transcribe(context.Background(), "clip.wav", strings.NewReader("RIFF")); !errors.Is(err, boom) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}
