package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/bidwise/rfp-analyzer/internal/ai"
	"github.com/bidwise/rfp-analyzer/internal/apperr"
	"github.com/bidwise/rfp-analyzer/internal/compare"
	"github.com/bidwise/rfp-analyzer/internal/extract"
)

// countEmbedder produces a deterministic vector from rune statistics, enough
// to exercise retrieval without a remote service.
type countEmbedder struct {
	err error
}

func (e *countEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	var length, vowels, spaces float32
	for _, r := range text {
		length++
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			vowels++
		case ' ':
			spaces++
		}
	}
	return []float32{length, vowels, spaces}, nil
}

// scriptedCompleter answers the extraction and comparison prompts in turn.
type scriptedCompleter struct {
	criteriaResponse   string
	comparisonResponse string
	comparisonErr      error
	prompts            []string
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string, _ float32) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if strings.Contains(prompt, "Proposal Content:") {
		if s.comparisonErr != nil {
			return "", s.comparisonErr
		}
		return s.comparisonResponse, nil
	}
	return s.criteriaResponse, nil
}

const rfpText = "Bidder must have 5 years of experience. Bidder must hold ISO 27001 certification."

const proposalText = "Our company has operated for 7 years. We deliver infrastructure projects across the region."

func newTestPipeline(t *testing.T, completer ai.Completer, embedder ai.Embedder) *Pipeline {
	t.Helper()

	extractor := extract.New(completer, zap.NewNop(), 0)
	comparator := compare.New(completer, zap.NewNop(), 0)

	return New(embedder, extractor, comparator, Config{StorageRoot: t.TempDir()}, zap.NewNop())
}

func TestRunEndToEnd(t *testing.T) {
	completer := &scriptedCompleter{
		criteriaResponse: "1. Bidder must have 5 years of experience\n2. Bidder must hold ISO 27001 certification",
		comparisonResponse: `{
			"eligibility_criteria": [
				{
					"criterion": "Bidder must have 5 years of experience",
					"eligibility_met": "Yes",
					"reason": "The proposal states the company has operated for 7 years."
				},
				{
					"criterion": "Bidder must hold ISO 27001 certification",
					"eligibility_met": "No",
					"reason": "No supporting evidence was found in the proposal."
				}
			]
		}`,
	}

	p := newTestPipeline(t, completer, &countEmbedder{})

	result, err := p.Run(context.Background(),
		Input{Name: "rfp.txt", Raw: []byte(rfpText)},
		Input{Name: "proposal.txt", Raw: []byte(proposalText)},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Verdicts) != 2 {
		t.Fatalf("expected 2 verdicts, got %d", len(result.Verdicts))
	}

	experience := result.Verdicts[0]
	if !strings.Contains(experience.Criterion, "5 years of experience") {
		t.Fatalf("expected experience criterion, got %q", experience.Criterion)
	}
	if experience.Met != ai.MetYes {
		t.Fatalf("expected experience criterion met, got %q", experience.Met)
	}
	if !strings.Contains(experience.Reason, "7 years") {
		t.Fatalf("expected reason citing the 7-years statement, got %q", experience.Reason)
	}

	certification := result.Verdicts[1]
	if certification.Met != ai.MetNo {
		t.Fatalf("expected certification criterion not met, got %q", certification.Met)
	}
	if !strings.Contains(certification.Reason, "No supporting evidence") {
		t.Fatalf("expected absence reason, got %q", certification.Reason)
	}

	if len(completer.prompts) != 2 {
		t.Fatalf("expected exactly two completion calls, got %d", len(completer.prompts))
	}

	// The extraction prompt sees retrieved RFP text, the comparison prompt
	// sees the extracted criteria plus retrieved proposal text.
	if !strings.Contains(completer.prompts[0], "5 years of experience") {
		t.Fatal("extraction prompt is missing retrieved rfp text")
	}
	if !strings.Contains(completer.prompts[1], "operated for 7 years") {
		t.Fatal("comparison prompt is missing retrieved proposal text")
	}
	if !strings.Contains(completer.prompts[1], "ISO 27001") {
		t.Fatal("comparison prompt is missing the extracted criteria")
	}
}

func TestRunEmptyDocumentFailsWholeRequest(t *testing.T) {
	p := newTestPipeline(t, &scriptedCompleter{}, &countEmbedder{})

	result, err := p.Run(context.Background(),
		Input{Name: "rfp.txt", Raw: nil},
		Input{Name: "proposal.txt", Raw: []byte(proposalText)},
	)
	if result != nil {
		t.Fatal("expected no partial result")
	}
	if !apperr.IsKind(err, apperr.KindInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestRunEmbeddingFailure(t *testing.T) {
	p := newTestPipeline(t, &scriptedCompleter{}, &countEmbedder{err: errors.New("embedding service down")})

	result, err := p.Run(context.Background(),
		Input{Name: "rfp.txt", Raw: []byte(rfpText)},
		Input{Name: "proposal.txt", Raw: []byte(proposalText)},
	)
	if result != nil {
		t.Fatal("expected no partial result")
	}
	if !apperr.IsKind(err, apperr.KindDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestRunSchemaFailure(t *testing.T) {
	completer := &scriptedCompleter{
		criteriaResponse:   "1. Some criterion",
		comparisonResponse: "I could not produce JSON.",
	}

	p := newTestPipeline(t, completer, &countEmbedder{})

	result, err := p.Run(context.Background(),
		Input{Name: "rfp.txt", Raw: []byte(rfpText)},
		Input{Name: "proposal.txt", Raw: []byte(proposalText)},
	)
	if result != nil {
		t.Fatal("expected no partial result")
	}
	if !apperr.IsKind(err, apperr.KindSchema) {
		t.Fatalf("expected schema validation error, got %v", err)
	}
}

func TestLocationIsDeterministic(t *testing.T) {
	p := newTestPipeline(t, &scriptedCompleter{}, &countEmbedder{})

	first := p.Location("rfp", "tender-2024.pdf")
	second := p.Location("rfp", "tender-2024.pdf")
	if first != second {
		t.Fatalf("locations differ for same name: %q vs %q", first, second)
	}

	other := p.Location("rfp", "tender-2025.pdf")
	if other == first {
		t.Fatal("different names must map to different locations")
	}

	proposals := p.Location("proposals", "tender-2024.pdf")
	if proposals == first {
		t.Fatal("kinds must not share locations")
	}
}
