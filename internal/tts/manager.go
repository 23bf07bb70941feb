package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dooshek/vibe/internal/logger"
	"github.com/dooshek/vibe/internal/types"
)

// ErrDisabled is returned by NewManager when the provider is "none".
var ErrDisabled = errors.New("tts disabled")

// Manager manages TTS providers and handles text-to-speech operations
type Manager struct {
	provider TTSProvider
	config   types.TTSConfig
}

// NewManager creates a new TTS Manager with the specified configuration and API key
func NewManager(config types.TTSConfig, apiKey string) (*Manager, error) {
	provider, err := createProvider(config, apiKey)
	if err != nil {
		return nil, err
	}

	logger.Infof("Initialized TTS Manager with provider: %s", provider.GetProviderName())
	return NewManagerWithProvider(config, provider), nil
}

// NewManagerWithProvider wraps an already built provider.
func NewManagerWithProvider(config types.TTSConfig, provider TTSProvider) *Manager {
	return &Manager{
		provider: provider,
		config:   config,
	}
}

// GetAudio converts text to speech with the configured voice
func (m *Manager) GetAudio(ctx context.Context, text string) ([]byte, error) {
	return m.GetAudioWithVoice(ctx, text, m.config.Voice)
}

// GetAudioWithVoice converts text to speech using a specific voice
func (m *Manager) GetAudioWithVoice(ctx context.Context, text string, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	if voice == "" {
		voice = m.config.Voice
	}

	return m.provider.GetAudio(ctx, text, voice)
}

// GetAvailableVoices returns list of available voices
func (m *Manager) GetAvailableVoices() []string {
	return m.provider.GetAvailableVoices()
}

// GetProviderName returns the name of the current provider
func (m *Manager) GetProviderName() string {
	return m.provider.GetProviderName()
}

func createProvider(config types.TTSConfig, apiKey string) (TTSProvider, error) {
	switch config.Provider {
	case ProviderNone:
		return nil, ErrDisabled

	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required for OpenAI TTS provider")
		}
		return NewOpenAITTSProvider(apiKey, OpenAIConfig{
			Model: config.Model,
			Speed: config.Speed,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported TTS provider: %s (supported: openai, none)", config.Provider)
	}
}
