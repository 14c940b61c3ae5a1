// Package azopenai implements the embedding and completion services on top of
// the OpenAI API, including Azure OpenAI deployments.
package azopenai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel          = "gpt-4o"
	defaultEmbeddingModel = string(openai.AdaEmbeddingV2)
)

// api is the slice of the OpenAI client surface the provider uses.
type api interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Client provides completions and embeddings backed by OpenAI or an Azure
// OpenAI deployment.
type Client struct {
	api            api
	model          string
	embeddingModel string
}

// Config configures a Client. When Endpoint is set the client talks to an
// Azure OpenAI resource, otherwise to the public OpenAI API.
type Config struct {
	APIKey         string
	Endpoint       string
	Model          string
	EmbeddingModel string
}

// NewClient creates a new OpenAI-backed client.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	var inner *openai.Client
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		inner = openai.NewClientWithConfig(openai.DefaultAzureConfig(apiKey, endpoint))
	} else {
		inner = openai.NewClient(apiKey)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	embeddingModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	return &Client{api: inner, model: model, embeddingModel: embeddingModel}, nil
}

// Model returns the completion model identifier.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete issues one chat completion request and returns the message text.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	if c == nil || c.api == nil {
		return "", errors.New("openai client is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	// go-openai drops a zero temperature during encoding, so the smallest
	// positive value stands in for an explicit zero.
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai api returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", errors.New("openai api returned empty response")
	}

	return output, nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("openai client is not initialized")
	}

	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text to embed must not be empty")
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("openai api returned empty embedding")
	}

	return resp.Data[0].Embedding, nil
}
