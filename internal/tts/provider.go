package tts

import (
	"context"
)

// TTSProvider defines the interface for text-to-speech providers
type TTSProvider interface {
	// GetAudio converts text to speech and returns a complete WAV file
	GetAudio(ctx context.Context, text string, voice string) ([]byte, error)

	// GetAvailableVoices returns list of available voices
	GetAvailableVoices() []string

	// GetProviderName returns the name of the provider
	GetProviderName() string
}

// ProviderNone disables speech synthesis.
const ProviderNone = "none"
