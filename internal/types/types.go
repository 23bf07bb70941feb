package types

import (
	"time"

	"github.com/sashabaranov/go-openai"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGroq   LLMProvider = "groq"
)

// Config is the client configuration stored in vibe.yaml.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Chat      ChatConfig      `yaml:"chat"`
	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`
	Cloud     CloudConfig     `yaml:"cloud"`
}

type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"` // 0 disables the client timeout
}

type ChatConfig struct {
	Speak        bool `yaml:"speak"`         // initial state of the speak toggle
	HistoryLimit int  `yaml:"history_limit"` // 0 keeps every turn
}

type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	FFTSize    int `yaml:"fft_size"`
}

type RecordingConfig struct {
	Format string `yaml:"format"` // "wav" or "ogg"
}

type CloudConfig struct {
	FPS        int `yaml:"fps"`
	CellWidth  int `yaml:"cell_width"`  // virtual units per terminal column
	CellHeight int `yaml:"cell_height"` // virtual units per terminal row
}

// DefaultConfig returns a client config with every default filled in.
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Backend.URL == "" {
		c.Backend.URL = "http://127.0.0.1:8000"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.FFTSize == 0 {
		c.Audio.FFTSize = 512
	}
	if c.Recording.Format == "" {
		c.Recording.Format = "wav"
	}
	if c.Cloud.FPS == 0 {
		c.Cloud.FPS = 30
	}
	if c.Cloud.CellWidth == 0 {
		c.Cloud.CellWidth = 8
	}
	if c.Cloud.CellHeight == 0 {
		c.Cloud.CellHeight = 16
	}
}

// ServerConfig is the backend configuration stored in server.yaml.
type ServerConfig struct {
	HTTP   HTTPConfig `yaml:"http"`
	LLM    LLMConfig  `yaml:"llm"`
	Prompt Prompt     `yaml:"prompt"`
	TTS    TTSConfig  `yaml:"tts"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

type LLMConfig struct {
	Keys          LLMKeys          `yaml:"keys"`
	Chat          LLMChat          `yaml:"chat"`
	Transcription LLMTranscription `yaml:"transcription"`
}

type LLMKeys struct {
	OpenAIKey string `yaml:"openai_api_key"`
	GroqKey   string `yaml:"groq_api_key"`
}

// LLMChat configures replies. MaxTokens 0 spends half of ContextWindow.
type LLMChat struct {
	Provider      string   `yaml:"provider"`
	Model         string   `yaml:"model"`
	Temperature   float32  `yaml:"temperature"`
	TopP          float32  `yaml:"top_p"`
	MaxTokens     int      `yaml:"max_tokens"`
	ContextWindow int      `yaml:"context_window"`
	Stop          []string `yaml:"stop"`
}

// DefaultStop ends a reply before the model starts another instruction turn.
var DefaultStop = []string{"</s>", "[INST]"}

type LLMTranscription struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

type Prompt struct {
	System string `yaml:"system"`
}

// TTSConfig holds configuration for Text-to-Speech
type TTSConfig struct {
	Provider string  `yaml:"provider"` // "openai" or "none"
	Model    string  `yaml:"model"`    // "tts-1" or "tts-1-hd"
	Voice    string  `yaml:"voice"`
	Speed    float64 `yaml:"speed"` // 0.25-4.0
}

const DefaultSystemPrompt = "You are Vibe, a patient AI guide who can teach, explain, and plan with a calm voice. " +
	"Be concise, cite steps clearly, and avoid hallucinations by admitting uncertainty. " +
	"When summarizing, produce short bullet points."

// DefaultServerConfig returns a server config with every default filled in.
func DefaultServerConfig() *ServerConfig {
	c := &ServerConfig{}
	c.ApplyDefaults()
	return c
}

func (c *ServerConfig) ApplyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = "0.0.0.0"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.LLM.Chat.Provider == "" {
		c.LLM.Chat.Provider = string(ProviderOpenAI)
	}
	if c.LLM.Chat.Model == "" {
		c.LLM.Chat.Model = OpenAIModelGPT4oMini
	}
	if c.LLM.Chat.Temperature == 0 {
		c.LLM.Chat.Temperature = 0.7
	}
	if c.LLM.Chat.TopP == 0 {
		c.LLM.Chat.TopP = 0.95
	}
	if c.LLM.Chat.ContextWindow == 0 {
		c.LLM.Chat.ContextWindow = 4096
	}
	if c.LLM.Chat.Stop == nil {
		c.LLM.Chat.Stop = append([]string(nil), DefaultStop...)
	}
	if c.LLM.Transcription.Provider == "" {
		c.LLM.Transcription.Provider = c.LLM.Chat.Provider
	}
	if c.LLM.Transcription.Model == "" {
		if LLMProvider(c.LLM.Transcription.Provider) == ProviderGroq {
			c.LLM.Transcription.Model = GroqModelWhisperLargeV3Turbo
		} else {
			c.LLM.Transcription.Model = OpenAIModelWhisper1
		}
	}
	if c.LLM.Transcription.Language == "" {
		c.LLM.Transcription.Language = "en"
	}
	if c.Prompt.System == "" {
		c.Prompt.System = DefaultSystemPrompt
	}
	if c.TTS.Provider == "" {
		c.TTS.Provider = "openai"
	}
	if c.TTS.Model == "" {
		c.TTS.Model = string(openai.TTSModel1)
	}
	if c.TTS.Voice == "" {
		c.TTS.Voice = string(openai.VoiceNova)
	}
	if c.TTS.Speed == 0 {
		c.TTS.Speed = 1.0
	}
}

const (
	OpenAIModelGPT4oMini string = openai.GPT4oMini
	OpenAIModelGPT4o     string = openai.GPT4o
)

const (
	OpenAIModelWhisper1 string = openai.Whisper1
)

// Groq Whisper Models
const (
	GroqModelWhisperLargeV3      string = "whisper-large-v3"
	GroqModelWhisperLargeV3Turbo string = "whisper-large-v3-turbo"
)

// Groq chat models
const (
	GroqModelLLama3_1_8B  string = "llama-3.1-8b-instant"
	GroqModelLLama3_3_70B string = "llama-3.3-70b-versatile"
)
