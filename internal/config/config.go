package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/dooshek/vibe/internal/fileops"
	"github.com/dooshek/vibe/internal/logger"
	"github.com/dooshek/vibe/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	configFilename       = "vibe.yaml"
	serverConfigFilename = "server.yaml"
)

// LoadConfig reads the client config from the vibe config directory.
// A missing file yields defaults, not an error.
func LoadConfig(fileOps fileops.FileOps) (*types.Config, error) {
	if err := fileOps.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	cfg := &types.Config{}
	data, err := fileOps.LoadConfig(configFilename)
	switch {
	case errors.Is(err, fileops.ErrConfigNotFound):
		logger.Debug("No client config found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyClientEnv(cfg, os.Getenv)
	cfg.ApplyDefaults()

	if err := ValidateClient(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the client config, keeping values already on disk that
// cfg leaves empty.
func SaveConfig(fileOps fileops.FileOps, cfg *types.Config) error {
	existing := &types.Config{}
	data, err := fileOps.LoadConfig(configFilename)
	if err == nil {
		if err := yaml.Unmarshal(data, existing); err != nil {
			logger.Warnf("Failed to parse existing config: %v", err)
			existing = &types.Config{}
		}
	}
	mergeConfigs(existing, cfg)

	out, err := yaml.Marshal(existing)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := fileOps.SaveConfig(configFilename, out); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// mergeConfigs copies the explicitly set fields of source into target.
func mergeConfigs(target, source *types.Config) {
	if source.Backend.URL != "" {
		target.Backend.URL = source.Backend.URL
	}
	if source.Backend.Timeout != 0 {
		target.Backend.Timeout = source.Backend.Timeout
	}
	target.Chat.Speak = source.Chat.Speak
	if source.Chat.HistoryLimit != 0 {
		target.Chat.HistoryLimit = source.Chat.HistoryLimit
	}
	if source.Audio.SampleRate != 0 {
		target.Audio.SampleRate = source.Audio.SampleRate
	}
	if source.Audio.FFTSize != 0 {
		target.Audio.FFTSize = source.Audio.FFTSize
	}
	if source.Recording.Format != "" {
		target.Recording.Format = source.Recording.Format
	}
	if source.Cloud.FPS != 0 {
		target.Cloud.FPS = source.Cloud.FPS
	}
}

// LoadServerConfig reads the backend config from path. An empty path means
// server.yaml in the vibe config directory; a missing default file yields
// defaults.
func LoadServerConfig(fileOps fileops.FileOps, path string) (*types.ServerConfig, error) {
	cfg := &types.ServerConfig{}

	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = fileOps.LoadConfig(serverConfigFilename)
		if errors.Is(err, fileops.ErrConfigNotFound) {
			err = nil
		}
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse server config: %w", err)
		}
	}

	applyServerEnv(cfg, os.Getenv)
	cfg.ApplyDefaults()

	if err := ValidateServer(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func applyClientEnv(cfg *types.Config, getenv func(string) string) {
	if v := getenv("VIBE_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
}

func applyServerEnv(cfg *types.ServerConfig, getenv func(string) string) {
	if v := getenv("OPENAI_API_KEY"); v != "" && cfg.LLM.Keys.OpenAIKey == "" {
		cfg.LLM.Keys.OpenAIKey = v
	}
	if v := getenv("GROQ_API_KEY"); v != "" && cfg.LLM.Keys.GroqKey == "" {
		cfg.LLM.Keys.GroqKey = v
	}
	if v := getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Chat.Model = v
	}
	if v, ok := floatFromEnv(getenv, "LLM_TEMP"); ok {
		cfg.LLM.Chat.Temperature = v
	}
	if v, ok := floatFromEnv(getenv, "LLM_TOP_P"); ok {
		cfg.LLM.Chat.TopP = v
	}
	if v, ok := intFromEnv(getenv, "LLM_MAX_TOKENS"); ok {
		cfg.LLM.Chat.MaxTokens = v
	}
	if v, ok := intFromEnv(getenv, "LLM_CTX"); ok {
		cfg.LLM.Chat.ContextWindow = v
	}
	if v := getenv("STT_MODEL"); v != "" {
		cfg.LLM.Transcription.Model = v
	}
	if v := getenv("TTS_MODEL"); v != "" {
		cfg.TTS.Model = v
	}
	if v := getenv("TTS_VOICE"); v != "" {
		cfg.TTS.Voice = v
	}
}

// Malformed numbers are ignored and leave the configured value in place.
func floatFromEnv(getenv func(string) string, name string) (float32, bool) {
	raw := getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		logger.Warnf("Ignoring %s=%q: %v", name, raw, err)
		return 0, false
	}
	return float32(v), true
}

func intFromEnv(getenv func(string) string, name string) (int, bool) {
	raw := getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warnf("Ignoring %s=%q: %v", name, raw, err)
		return 0, false
	}
	return v, true
}

// ValidateClient checks a client config after defaults are applied.
func ValidateClient(c *types.Config) error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.url must be an absolute http(s) URL, got %q", c.Backend.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url scheme must be http or https, got %q", u.Scheme)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout cannot be negative, got %s", c.Backend.Timeout)
	}
	if c.Chat.HistoryLimit < 0 {
		return fmt.Errorf("chat.history_limit cannot be negative, got %d", c.Chat.HistoryLimit)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 48000 {
		return fmt.Errorf("audio.sample_rate must be between 8000 and 48000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.FFTSize < 32 || c.Audio.FFTSize&(c.Audio.FFTSize-1) != 0 {
		return fmt.Errorf("audio.fft_size must be a power of two >= 32, got %d", c.Audio.FFTSize)
	}
	switch strings.ToLower(c.Recording.Format) {
	case "wav", "ogg":
	default:
		return fmt.Errorf("recording.format must be 'wav' or 'ogg', got '%s'", c.Recording.Format)
	}
	if c.Cloud.FPS < 1 || c.Cloud.FPS > 120 {
		return fmt.Errorf("cloud.fps must be between 1 and 120, got %d", c.Cloud.FPS)
	}
	if c.Cloud.CellWidth < 1 || c.Cloud.CellHeight < 2 {
		return fmt.Errorf("cloud cell size must be at least 1x2, got %dx%d", c.Cloud.CellWidth, c.Cloud.CellHeight)
	}
	return nil
}

// ValidateServer checks a server config after defaults are applied.
func ValidateServer(c *types.ServerConfig) error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := validateProvider("llm.chat", c.LLM.Chat.Provider, c.LLM.Keys); err != nil {
		return err
	}
	if err := validateProvider("llm.transcription", c.LLM.Transcription.Provider, c.LLM.Keys); err != nil {
		return err
	}
	if c.LLM.Chat.Temperature < 0 || c.LLM.Chat.Temperature > 2 {
		return fmt.Errorf("llm.chat.temperature must be between 0 and 2, got %f", c.LLM.Chat.Temperature)
	}
	if c.LLM.Chat.TopP <= 0 || c.LLM.Chat.TopP > 1 {
		return fmt.Errorf("llm.chat.top_p must be in (0, 1], got %f", c.LLM.Chat.TopP)
	}
	if c.LLM.Chat.ContextWindow < 1 {
		return fmt.Errorf("llm.chat.context_window must be positive, got %d", c.LLM.Chat.ContextWindow)
	}
	if c.LLM.Chat.MaxTokens < 0 || c.LLM.Chat.MaxTokens > c.LLM.Chat.ContextWindow {
		return fmt.Errorf("llm.chat.max_tokens must be between 0 and context_window (%d), got %d",
			c.LLM.Chat.ContextWindow, c.LLM.Chat.MaxTokens)
	}
	if len(c.LLM.Chat.Stop) > 4 {
		return fmt.Errorf("llm.chat.stop takes at most 4 sequences, got %d", len(c.LLM.Chat.Stop))
	}
	switch c.TTS.Provider {
	case "none":
	case "openai":
		if c.LLM.Keys.OpenAIKey == "" {
			return fmt.Errorf("tts provider openai requires llm.keys.openai_api_key")
		}
		if c.TTS.Speed < 0.25 || c.TTS.Speed > 4 {
			return fmt.Errorf("tts.speed must be between 0.25 and 4.0, got %f", c.TTS.Speed)
		}
	default:
		return fmt.Errorf("unsupported tts provider: %s (supported: openai, none)", c.TTS.Provider)
	}
	return nil
}

func validateProvider(section, provider string, keys types.LLMKeys) error {
	switch types.LLMProvider(provider) {
	case types.ProviderOpenAI:
		if keys.OpenAIKey == "" {
			return fmt.Errorf("%s provider openai requires llm.keys.openai_api_key", section)
		}
	case types.ProviderGroq:
		if keys.GroqKey == "" {
			return fmt.Errorf("%s provider groq requires llm.keys.groq_api_key", section)
		}
	default:
		return fmt.Errorf("%s: unsupported provider type: %s", section, provider)
	}
	return nil
}
