package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultGeminiBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// ErrNoAPIKey is returned by OpenAIClient when no credential is configured.
var ErrNoAPIKey = errors.New("API key not configured")

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
// The default base URL is Gemini's compatibility layer.
type OpenAIClient struct {
	client openai.Client
	apiKey string
}

// NewOpenAIClient creates a client for baseURL, defaulting to Gemini when
// baseURL is empty. A zero timeout leaves calls bounded only by the caller's
// context. SDK retries are disabled; each candidate gets exactly one call.
func NewOpenAIClient(baseURL, apiKey string, timeout time.Duration) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		apiKey: apiKey,
	}
}

// Generate sends prompt as a single user message and returns the first
// choice's content.
func (c *OpenAIClient) Generate(ctx context.Context, model, prompt string, schema *Schema) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schema.Name,
					Schema: schema.Definition,
				},
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the model ids the endpoint advertises.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}
