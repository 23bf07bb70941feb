package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/dooshek/vibe/internal/types"
)

// AudioReader represents an interface for reading audio data
type AudioReader interface {
	io.Reader
}

// ChatCompletionMessage represents a message in a chat completion request
type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest represents the parameters for a completion request.
// A zero MaxTokens leaves half of ContextWindow for the reply.
type CompletionRequest struct {
	Model         string                  `json:"model"`
	Messages      []ChatCompletionMessage `json:"messages"`
	MaxTokens     int                     `json:"max_tokens,omitempty"`
	ContextWindow int                     `json:"-"`
	Temperature   float32                 `json:"temperature,omitempty"`
	TopP          float32                 `json:"top_p,omitempty"`
	Stop          []string                `json:"stop,omitempty"`
}

const (
	defaultMaxTokens   = 2000
	defaultTemperature = 0.5
)

// withDefaults fills the token budget and temperature the way every
// provider expects them.
func (r CompletionRequest) withDefaults() CompletionRequest {
	switch {
	case r.MaxTokens > 0:
	case r.ContextWindow > 0:
		r.MaxTokens = r.ContextWindow / 2
	default:
		r.MaxTokens = defaultMaxTokens
	}
	if r.Temperature == 0 {
		r.Temperature = defaultTemperature
	}
	return r
}

// Exchange is one earlier user message and the assistant's reply.
type Exchange struct {
	User      string
	Assistant string
}

// BuildMessages lays out a conversation as chat messages: the system
// prompt, every earlier exchange in order, then the new user message.
func BuildMessages(system string, history []Exchange, message string) []ChatCompletionMessage {
	messages := make([]ChatCompletionMessage, 0, 2+2*len(history))
	if system != "" {
		messages = append(messages, ChatCompletionMessage{Role: RoleSystem, Content: system})
	}
	for _, ex := range history {
		messages = append(messages,
			ChatCompletionMessage{Role: RoleUser, Content: ex.User},
			ChatCompletionMessage{Role: RoleAssistant, Content: ex.Assistant},
		)
	}
	return append(messages, ChatCompletionMessage{Role: RoleUser, Content: message})
}

// Provider defines the interface for LLM providers
type Provider interface {
	TranscribeAudio(ctx context.Context, filename string, reader AudioReader) (string, error)
	Completion(ctx context.Context, req CompletionRequest) (string, error)
}

// NewProvider creates a new LLM provider based on the provider type
func NewProvider(providerType types.LLMProvider, keys types.LLMKeys, transcription types.LLMTranscription) (Provider, error) {
	switch providerType {
	case types.ProviderOpenAI:
		if keys.OpenAIKey != "" {
			return NewOpenAIProvider(keys.OpenAIKey, transcription), nil
		}
	case types.ProviderGroq:
		if keys.GroqKey != "" {
			return NewGroqProvider(keys.GroqKey, transcription), nil
		}
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}

	return nil, fmt.Errorf("no API key provided for provider type: %s", providerType)
}
