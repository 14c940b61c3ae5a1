// Package extract implements the criteria-extraction stage: one completion
// call that turns retrieved RFP text into a free-text enumeration of
// eligibility criteria.
package extract

import (
	"context"
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

const defaultMaxLogLength = 200

// Extractor produces the eligibility criteria enumeration for an RFP.
type Extractor struct {
	completer ai.Completer
	logger    *zap.Logger
	maxLogLen int
}

func New(completer ai.Completer, logger *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		completer: completer,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Extract issues one completion request at temperature 0 over the retrieved
// RFP text and returns the raw response unmodified. The output is natural
// language for the comparison stage, so no structural validation happens here.
func (e *Extractor) Extract(ctx context.Context, retrievedText string) (string, error) {
	if strings.TrimSpace(retrievedText) == "" {
		return "", apperr.Inputf("no retrieved rfp text to extract criteria from")
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{RFP_TEXT}}", retrievedText)

	e.logger.Debug("criteria extraction request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.completer.Complete(ctx, prompt, 0)
	if err != nil {
		return "", apperr.Dependency(err, "extracting eligibility criteria")
	}

	e.logger.Debug("criteria extraction response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, e.maxLogLen)),
	)

	return raw, nil
}
