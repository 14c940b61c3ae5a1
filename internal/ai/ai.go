// Package ai declares the remote model services the pipeline consumes and the
// structured verdicts the comparison stage produces.
package ai

import "context"

// Embedder converts text into a numeric vector for similarity comparison.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer issues one completion request against a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Verdict values allowed for the met field. Any other token fails schema
// validation.
const (
	MetYes = "Yes"
	MetNo  = "No"
)

// Verdict is the judgement for a single eligibility criterion.
type Verdict struct {
	Criterion string `json:"criterion"`
	Met       string `json:"eligibility_met"`
	Reason    string `json:"reason"`
}

// ComparisonResult is the ordered list of per-criterion verdicts for one
// RFP/proposal pair.
type ComparisonResult struct {
	Verdicts []Verdict `json:"eligibility_criteria"`
}
