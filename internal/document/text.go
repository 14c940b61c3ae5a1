package document

import (
	"unicode/utf8"

	"github.com/bidwise/rfp-analyzer/internal/apperr"
)

// TextLoader accepts UTF-8 plain text documents as-is.
type TextLoader struct{}

func (TextLoader) Parse(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", apperr.Inputf("document is not valid utf-8 text")
	}
	return string(raw), nil
}
