package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dooshek/vibe/internal/logger"
	"github.com/dooshek/vibe/internal/types"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible API root. Any server
// speaking the same dialect (a local llama.cpp server, for one) can be
// reached with NewGroqProviderWithBaseURL.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// APIError is a failure reported by a Groq-compatible endpoint, either as
// a non-200 status or as an error object in a 200 body.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("groq %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// GroqProvider talks to Groq over plain HTTP.
type GroqProvider struct {
	apiKey        string
	baseURL       string
	transcription types.LLMTranscription
	httpClient    *http.Client
}

type chatCompletionBody struct {
	Model       string                  `json:"model"`
	Messages    []ChatCompletionMessage `json:"messages"`
	MaxTokens   int                     `json:"max_completion_tokens"`
	Temperature float32                 `json:"temperature,omitempty"`
	TopP        float32                 `json:"top_p,omitempty"`
	Stop        []string                `json:"stop,omitempty"`
}

type apiErrorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type chatCompletionReply struct {
	apiErrorBody
	Choices []struct {
		Message      ChatCompletionMessage `json:"message"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
}

type transcriptionReply struct {
	apiErrorBody
	Text string `json:"text"`
}

func NewGroqProvider(apiKey string, transcription types.LLMTranscription) *GroqProvider {
	return NewGroqProviderWithBaseURL(apiKey, DefaultGroqBaseURL, transcription)
}

func NewGroqProviderWithBaseURL(apiKey, baseURL string, transcription types.LLMTranscription) *GroqProvider {
	logger.Debugf("Creating Groq provider for %s", baseURL)
	return &GroqProvider{
		apiKey:        apiKey,
		baseURL:       strings.TrimRight(baseURL, "/"),
		transcription: transcription,
		httpClient:    &http.Client{},
	}
}

// TranscribeAudio uploads a clip to /audio/transcriptions.
func (p *GroqProvider) TranscribeAudio(ctx context.Context, filename string, reader AudioReader) (string, error) {
	logger.Debugf("Transcribing %s with %s", filename, p.transcription.Model)

	fields := map[string]string{"model": p.transcription.Model}
	if lang := p.transcription.Language; lang != "" {
		fields["language"] = lang
	}
	body, contentType, err := multipartUpload(filename, reader, fields)
	if err != nil {
		return "", err
	}

	var reply transcriptionReply
	if err := p.post(ctx, "/audio/transcriptions", contentType, body, &reply, &reply.apiErrorBody); err != nil {
		return "", err
	}
	return reply.Text, nil
}

// Completion asks /chat/completions for one reply.
func (p *GroqProvider) Completion(ctx context.Context, req CompletionRequest) (string, error) {
	req = req.withDefaults()
	logger.Debugf("Completion with %s: %d messages, up to %d tokens", req.Model, len(req.Messages), req.MaxTokens)

	payload, err := json.Marshal(chatCompletionBody{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	var reply chatCompletionReply
	if err := p.post(ctx, "/chat/completions", "application/json", bytes.NewReader(payload), &reply, &reply.apiErrorBody); err != nil {
		return "", err
	}
	if len(reply.Choices) == 0 {
		return "", errors.New("no completion choices returned from Groq")
	}
	if reply.Choices[0].FinishReason == "length" {
		logger.Warnf("Reply cut off at %d tokens", req.MaxTokens)
	}
	return reply.Choices[0].Message.Content, nil
}

// post sends an authorised request and decodes the JSON reply into out.
// apiErr must point into out so an error object in a 200 body is seen.
func (p *GroqProvider) post(ctx context.Context, endpoint, contentType string, body io.Reader, out any, apiErr *apiErrorBody) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		var decoded apiErrorBody
		if json.Unmarshal(data, &decoded) == nil && decoded.Error != nil {
			msg = decoded.Error.Message
		}
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}
	if apiErr.Error != nil {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
	}
	return nil
}

func multipartUpload(filename string, file io.Reader, fields map[string]string) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("error creating form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("error copying file data: %w", err)
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("error writing %s field: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("error closing multipart writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
