// Package document turns uploaded bytes into plain text for chunking.
package document

import (
	"path/filepath"
	"strings"

	"github.com/bidwise/rfp-analyzer/internal/apperr"
)

// Document is one parsed input. The raw bytes and extracted body are not
// modified after New returns.
type Document struct {
	Name string
	Raw  []byte
	Text string
}

// Loader extracts plain text from raw document bytes.
type Loader interface {
	Parse(raw []byte) (string, error)
}

// New parses raw bytes with the loader matching the document name and returns
// the immutable parsed document.
func New(name string, raw []byte) (*Document, error) {
	if len(raw) == 0 {
		return nil, apperr.Inputf("document %q is empty", name)
	}

	text, err := LoaderFor(name).Parse(raw)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, apperr.Inputf("document %q contains no extractable text", name)
	}

	return &Document{Name: name, Raw: raw, Text: text}, nil
}

// LoaderFor selects a loader by the document name's extension. Anything that
// is not a PDF is treated as plain text.
func LoaderFor(name string) Loader {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return PDFLoader{}
	default:
		return TextLoader{}
	}
}
