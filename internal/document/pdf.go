package document

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/bidwise/rfp-analyzer/internal/apperr"
)

// PDFLoader extracts the plain text of every page of a PDF document.
type PDFLoader struct{}

func (PDFLoader) Parse(raw []byte) (text string, err error) {
	// The pdf library panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = apperr.Inputf("parsing pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", apperr.Input(err, "parsing pdf")
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", apperr.Input(err, "extracting pdf text")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", apperr.Input(fmt.Errorf("reading pdf text: %w", err), "extracting pdf text")
	}

	return buf.String(), nil
}
