// Package compare implements the eligibility-comparison stage: one completion
// call whose response must conform to the verdict schema exactly.
package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/bidwise/rfp-analyzer/internal/ai"
	"github.com/bidwise/rfp-analyzer/internal/apperr"
	"github.com/bidwise/rfp-analyzer/internal/util"
)

//go:embed prompt.md
var promptTemplate string

// SchemaVersion identifies the verdict schema embedded in the prompt. Bump it
// when the wire shape in prompt.md changes.
const SchemaVersion = 1

const defaultMaxLogLength = 200

// Comparator judges extracted criteria against retrieved proposal text.
type Comparator struct {
	completer ai.Completer
	logger    *zap.Logger
	maxLogLen int
}

func New(completer ai.Completer, logger *zap.Logger, maxLogLength int) *Comparator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Comparator{
		completer: completer,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Compare issues one completion request at temperature 0 and parses the
// response strictly against the verdict schema. A response that cannot be
// decomposed into conforming verdicts is a terminal failure; nothing is
// coerced or repaired.
func (c *Comparator) Compare(ctx context.Context, criteriaText, proposalText string) (*ai.ComparisonResult, error) {
	if strings.TrimSpace(criteriaText) == "" {
		return nil, apperr.Inputf("no extracted criteria to compare")
	}
	if strings.TrimSpace(proposalText) == "" {
		return nil, apperr.Inputf("no retrieved proposal text to compare against")
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{CRITERIA_TEXT}}", criteriaText)
	prompt = strings.ReplaceAll(prompt, "{{PROPOSAL_TEXT}}", proposalText)

	c.logger.Debug("eligibility comparison request",
		zap.Int("schema_version", SchemaVersion),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.completer.Complete(ctx, prompt, 0)
	if err != nil {
		return nil, apperr.Dependency(err, "comparing eligibility criteria")
	}

	c.logger.Debug("eligibility comparison response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, c.maxLogLen)),
	)

	result, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// rawVerdict mirrors ai.Verdict with pointer fields so that a missing field
// can be told apart from an empty one.
type rawVerdict struct {
	Criterion *string `json:"criterion"`
	Met       *string `json:"eligibility_met"`
	Reason    *string `json:"reason"`
}

type rawResult struct {
	Criteria *[]rawVerdict `json:"eligibility_criteria"`
}

// parseResponse validates raw against the verdict schema. Every deviation
// produces a schema validation error carrying the raw response.
func parseResponse(raw string) (*ai.ComparisonResult, error) {
	payload := isolateJSON(raw)
	if payload == "" {
		return nil, apperr.Schema(raw, "response contains no JSON payload")
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(payload)))
	decoder.DisallowUnknownFields()

	var decoded rawResult
	if err := decoder.Decode(&decoded); err != nil {
		return nil, apperr.SchemaWrap(err, raw, "decoding comparison response")
	}

	// A second decode must hit EOF, otherwise the payload carries trailing
	// content that is not part of the schema.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, apperr.Schema(raw, "response carries trailing content after the verdict object")
	}

	if decoded.Criteria == nil {
		return nil, apperr.Schema(raw, `response is missing the "eligibility_criteria" list`)
	}

	verdicts := make([]ai.Verdict, 0, len(*decoded.Criteria))
	for i, v := range *decoded.Criteria {
		if v.Criterion == nil {
			return nil, apperr.Schema(raw, fmt.Sprintf(`verdict %d is missing the "criterion" field`, i))
		}
		if v.Met == nil {
			return nil, apperr.Schema(raw, fmt.Sprintf(`verdict %d is missing the "eligibility_met" field`, i))
		}
		if v.Reason == nil {
			return nil, apperr.Schema(raw, fmt.Sprintf(`verdict %d is missing the "reason" field`, i))
		}
		if *v.Met != ai.MetYes && *v.Met != ai.MetNo {
			return nil, apperr.Schema(raw, fmt.Sprintf("verdict %d has invalid eligibility_met value %q", i, *v.Met))
		}

		verdicts = append(verdicts, ai.Verdict{
			Criterion: *v.Criterion,
			Met:       *v.Met,
			Reason:    *v.Reason,
		})
	}

	return &ai.ComparisonResult{Verdicts: verdicts}, nil
}

// isolateJSON strips a surrounding markdown code fence, which is the only
// wrapping that can be separated from the structured payload.
func isolateJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}
