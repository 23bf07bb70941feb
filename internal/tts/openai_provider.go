package tts

import (
	"context"
	"fmt"
	"io"

	"github.com/dooshek/vibe/internal/logger"
	"github.com/sashabaranov/go-openai"
)

// OpenAITTSProvider implements TTSProvider for OpenAI TTS API
type OpenAITTSProvider struct {
	client *openai.Client
	config OpenAIConfig
}

// OpenAIConfig holds OpenAI TTS configuration
type OpenAIConfig struct {
	Model string  // "tts-1" or "tts-1-hd"
	Speed float64 // 0.25-4.0, default 1.0
}

// NewOpenAITTSProvider creates a new OpenAI TTS provider
func NewOpenAITTSProvider(apiKey string, config OpenAIConfig) *OpenAITTSProvider {
	return NewOpenAITTSProviderWithClient(openai.DefaultConfig(apiKey), config)
}

// NewOpenAITTSProviderWithClient creates a provider from a client config
func NewOpenAITTSProviderWithClient(clientConfig openai.ClientConfig, config OpenAIConfig) *OpenAITTSProvider {
	if config.Model == "" {
		config.Model = string(openai.TTSModel1)
	}
	if config.Speed == 0 {
		config.Speed = 1.0
	}

	return &OpenAITTSProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// GetAudio converts text to speech and returns WAV audio
func (p *OpenAITTSProvider) GetAudio(ctx context.Context, text string, voice string) ([]byte, error) {
	if voice == "" {
		voice = string(openai.VoiceNova)
	}

	logger.Infof("Generating TTS for text (length: %d chars) with voice: %s", len(text), voice)

	response, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.config.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		Speed:          p.config.Speed,
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		logger.Error("OpenAI TTS API error", err)
		return nil, fmt.Errorf("TTS request failed: %w", err)
	}
	defer response.Close()

	audioData, err := io.ReadAll(response)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	logger.Infof("Generated %s of wav audio", estimateFileSize(len(audioData)))

	return audioData, nil
}

// GetAvailableVoices returns OpenAI TTS voices
func (p *OpenAITTSProvider) GetAvailableVoices() []string {
	return []string{
		"alloy",   // Neutral, balanced
		"echo",    // Male, clear
		"fable",   // British accent
		"onyx",    // Deep male
		"nova",    // Young female (recommended)
		"shimmer", // Warm female
	}
}

// GetProviderName returns provider name
func (p *OpenAITTSProvider) GetProviderName() string {
	return "OpenAI TTS"
}

// estimateFileSize provides human-readable size estimate
func estimateFileSize(bytes int) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	} else if bytes < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}
