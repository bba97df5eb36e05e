package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"
)

// ErrUnsupported signals a permanent capability gap (spec.md section 7): the
// endpoint rejected the model or request shape, and the caller should
// self-disable for the process lifetime rather than retry.
var ErrUnsupported = errors.New("adapters: embedding endpoint does not support this request")

// OpenAIEmbeddings wraps an OpenAI-compatible embeddings endpoint. Once an
// "unsupported"/"bad request"-class error is seen, disabled is latched and
// every subsequent call returns (nil, nil) instead of hitting the network
// again, per spec.md section 4.A.
type OpenAIEmbeddings struct {
	client   *openai.Client
	disabled atomic.Bool
}

func NewOpenAIEmbeddings(apiBase, apiKey string) *OpenAIEmbeddings {
	cfg := openai.DefaultConfig(apiKey)
	if apiBase != "" {
		cfg.BaseURL = apiBase
	}
	return &OpenAIEmbeddings{client: openai.NewClientWithConfig(cfg)}
}

var _ EmbeddingProvider = (*OpenAIEmbeddings)(nil)

func (o *OpenAIEmbeddings) Embed(ctx context.Context, model string, chunks []string) ([][]float32, error) {
	if o.disabled.Load() {
		return nil, nil
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: chunks,
	})
	if err != nil {
		if isUnsupportedModelErr(err) {
			o.disabled.Store(true)
			return nil, nil
		}
		return nil, fmt.Errorf("adapters: embeddings request: %w", err)
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// isUnsupportedModelErr classifies the "unsupported"/"bad request"-class
// errors spec.md section 4.A names as grounds for permanent self-disable.
func isUnsupportedModelErr(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 400 || apiErr.HTTPStatusCode == 404 {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unsupported") || strings.Contains(msg, "does not exist") || strings.Contains(msg, "invalid model")
}

// OpenAIChat wraps an OpenAI-compatible chat completions endpoint, with a
// single JSON-mode-then-fallback retry as spec.md section 4.G requires.
type OpenAIChat struct {
	client *openai.Client
}

func NewOpenAIChat(apiBase, apiKey string) *OpenAIChat {
	cfg := openai.DefaultConfig(apiKey)
	if apiBase != "" {
		cfg.BaseURL = apiBase
	}
	return &OpenAIChat{client: openai.NewClientWithConfig(cfg)}
}

var _ ChatProvider = (*OpenAIChat)(nil)

func (o *OpenAIChat) Complete(ctx context.Context, model, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil && jsonMode {
		// Some OpenAI-compatible backends reject response_format entirely;
		// retry once without it (spec.md section 4.G step 3).
		req.ResponseFormat = nil
		resp, err = o.client.CreateChatCompletion(ctx, req)
	}
	if err != nil {
		return "", fmt.Errorf("adapters: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("adapters: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
