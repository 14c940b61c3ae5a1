// Package gemini implements the embedding and completion services on top of
// the Google GenAI API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/bidwise/rfp-analyzer/internal/util"
)

const (
	defaultModel          = "gemini-2.5-pro"
	defaultEmbeddingModel = "gemini-embedding-001"
	defaultMaxRetries     = 3
)

// models is the slice of the GenAI client surface the generator uses.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Generator wraps the Google GenAI client to provide completions and
// embeddings for the analysis pipeline.
type Generator struct {
	models         models
	model          string
	embeddingModel string
	maxRetries     int
	logger         *zap.Logger
}

// Config configures a Generator.
type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	MaxRetries     int
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, cfg Config, logger *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	embeddingModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:         client.Models,
		model:          model,
		embeddingModel: embeddingModel,
		maxRetries:     maxRetries,
		logger:         logger,
	}, nil
}

// Model returns the completion model identifier.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Complete sends the prompt to Gemini and returns the concatenated textual
// response.
func (g *Generator) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](temperature),
	}

	var resp *genai.GenerateContentResponse
	err := g.withRetries(ctx, "generate content", func() error {
		var callErr error
		resp, callErr = g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// Embed returns the embedding vector for the given text.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	if g == nil || g.models == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text to embed must not be empty")
	}

	var resp *genai.EmbedContentResponse
	err := g.withRetries(ctx, "embed content", func() error {
		var callErr error
		resp, callErr = g.models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini api returned empty embedding")
	}

	return resp.Embeddings[0].Values, nil
}

// withRetries runs call, retrying temporary API errors with exponential
// backoff up to maxRetries attempts.
func (g *Generator) withRetries(ctx context.Context, op string, call func() error) error {
	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		lastErr = call()
		if lastErr == nil {
			return nil
		}

		if !isTemporary(lastErr) || attempt == g.maxRetries {
			return lastErr
		}

		delay := backoff(attempt)
		g.logger.Debug("retrying gemini call",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		if err := util.WaitFor(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func isTemporary(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}

func backoff(attempt int) time.Duration {
	d := 250 * time.Millisecond << (attempt - 1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
