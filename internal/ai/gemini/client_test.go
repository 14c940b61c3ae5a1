package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu          sync.Mutex
	generations []fakeResponse
	embeddings  []fakeEmbedding
	prompts     []string
	embedded    []string
	configs     []*genai.GenerateContentConfig
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeEmbedding struct {
	resp *genai.EmbedContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, content := range contents {
		for _, part := range content.Parts {
			f.prompts = append(f.prompts, part.Text)
		}
	}
	f.configs = append(f.configs, config)
	if len(f.generations) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := f.generations[0]
	f.generations = f.generations[1:]
	return next.resp, next.err
}

func (f *fakeModels) EmbedContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, content := range contents {
		for _, part := range content.Parts {
			f.embedded = append(f.embedded, part.Text)
		}
	}
	if len(f.embeddings) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := f.embeddings[0]
	f.embeddings = f.embeddings[1:]
	return next.resp, next.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGenerator(models *fakeModels) *Generator {
	return &Generator{
		models:         models,
		model:          "gemini-pro",
		embeddingModel: "gemini-embedding-001",
		maxRetries:     3,
		logger:         zap.NewNop(),
	}
}

func TestCompleteReturnsText(t *testing.T) {
	models := &fakeModels{generations: []fakeResponse{{resp: textResponse("criteria list")}}}
	g := newTestGenerator(models)

	out, err := g.Complete(context.Background(), "find the criteria", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "criteria list" {
		t.Fatalf("unexpected output: %q", out)
	}

	if len(models.configs) != 1 || models.configs[0].Temperature == nil {
		t.Fatal("expected temperature to be set")
	}

	if *models.configs[0].Temperature != 0 {
		t.Fatalf("expected temperature 0, got %v", *models.configs[0].Temperature)
	}
}

func TestCompleteRejectsEmptyPrompt(t *testing.T) {
	g := newTestGenerator(&fakeModels{})

	if _, err := g.Complete(context.Background(), "   ", 0); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestCompleteRetriesOnTemporaryError(t *testing.T) {
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models := &fakeModels{generations: []fakeResponse{
		{err: tempErr},
		{resp: textResponse("retry ok")},
	}}
	g := newTestGenerator(models)

	out, err := g.Complete(context.Background(), "prompt", 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if out != "retry ok" {
		t.Fatalf("unexpected output: %q", out)
	}

	if len(models.prompts) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.prompts))
	}
}

func TestCompleteDoesNotRetryPermanentError(t *testing.T) {
	permErr := genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}
	models := &fakeModels{generations: []fakeResponse{
		{err: permErr},
		{resp: textResponse("should not be reached")},
	}}
	g := newTestGenerator(models)

	if _, err := g.Complete(context.Background(), "prompt", 0); err == nil {
		t.Fatal("expected error")
	}

	if len(models.prompts) != 1 {
		t.Fatalf("expected single call, got %d", len(models.prompts))
	}
}

func TestCompleteStopsAfterRetriesExhausted(t *testing.T) {
	tempErr := genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}
	models := &fakeModels{generations: []fakeResponse{
		{err: tempErr},
		{err: tempErr},
		{err: tempErr},
	}}
	g := newTestGenerator(models)

	if _, err := g.Complete(context.Background(), "prompt", 0); err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if len(models.prompts) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(models.prompts))
	}
}

func TestCompleteEmptyResponse(t *testing.T) {
	models := &fakeModels{generations: []fakeResponse{{resp: &genai.GenerateContentResponse{}}}}
	g := newTestGenerator(models)

	if _, err := g.Complete(context.Background(), "prompt", 0); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestEmbedReturnsVector(t *testing.T) {
	models := &fakeModels{embeddings: []fakeEmbedding{{
		resp: &genai.EmbedContentResponse{
			Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
		},
	}}}
	g := newTestGenerator(models)

	vec, err := g.Embed(context.Background(), "eligibility criteria")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vec) != 3 {
		t.Fatalf("unexpected vector length: %d", len(vec))
	}

	if len(models.embedded) != 1 || models.embedded[0] != "eligibility criteria" {
		t.Fatalf("unexpected embedded texts: %v", models.embedded)
	}
}

func TestEmbedEmptyVector(t *testing.T) {
	models := &fakeModels{embeddings: []fakeEmbedding{{resp: &genai.EmbedContentResponse{}}}}
	g := newTestGenerator(models)

	if _, err := g.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}
