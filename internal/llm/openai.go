package llm

import (
	"context"
	"fmt"

	"github.com/dooshek/vibe/internal/logger"
	"github.com/dooshek/vibe/internal/types"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider interface using OpenAI
type OpenAIProvider struct {
	client        *openai.Client
	transcription types.LLMTranscription
}

// NewOpenAIProvider creates new OpenAI provider instance
func NewOpenAIProvider(apiKey string, transcription types.LLMTranscription) *OpenAIProvider {
	return NewOpenAIProviderWithConfig(openai.DefaultConfig(apiKey), transcription)
}

// NewOpenAIProviderWithConfig creates an OpenAI provider from a client config,
// e.g. one pointing at a compatible server
func NewOpenAIProviderWithConfig(config openai.ClientConfig, transcription types.LLMTranscription) *OpenAIProvider {
	logger.Debugf("Creating OpenAI provider")

	return &OpenAIProvider{
		client:        openai.NewClientWithConfig(config),
		transcription: transcription,
	}
}

// TranscribeAudio implements audio transcription using OpenAI's Whisper model
func (p *OpenAIProvider) TranscribeAudio(ctx context.Context, filename string, reader AudioReader) (string, error) {
	logger.Debugf("Transcription model: %s", p.transcription.Model)
	req := openai.AudioRequest{
		Reader:   reader,
		FilePath: filename,
		Format:   openai.AudioResponseFormatText,
		Model:    p.transcription.Model,
		Language: p.transcription.Language,
	}
	resp, err := p.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error transcribing audio with OpenAI: %w", err)
	}

	return resp.Text, nil
}

// Completion sends a completion request to OpenAI API
func (p *OpenAIProvider) Completion(ctx context.Context, req CompletionRequest) (string, error) {
	logger.Debugf("Sending completion request with model: %s", req.Model)

	req = req.withDefaults()

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       req.Model,
			Messages:    messages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			TopP:        req.TopP,
			Stop:        req.Stop,
		},
	)
	if err != nil {
		return "", fmt.Errorf("error creating completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
