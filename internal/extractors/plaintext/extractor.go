// Package plaintext decodes text files whose encoding is unknown.
// Korean corpora commonly mix UTF-8 with EUC-KR, so decoding is tried in
// that order before falling back to a lossy latin-1 read.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"

	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor decodes plain text with encoding fallback.
type Extractor struct{}

// New creates the plain-text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".txt", ".csv"}
}

// Extract decodes the content. UTF-8 is accepted as-is; otherwise an
// EUC-KR decode is attempted and accepted when it produces no
// replacement characters. The x/text EUC-KR tables implement the
// extended mapping, so CP949 input decodes on the same path. As a last
// resort the bytes are read as latin-1, which never fails.
func (e *Extractor) Extract(_ context.Context, content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}

	if decoded, err := korean.EUCKR.NewDecoder().Bytes(content); err == nil {
		text := string(decoded)
		if !strings.ContainsRune(text, utf8.RuneError) {
			return text, nil
		}
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		// ISO 8859-1 maps every byte; unreachable in practice.
		return string(content), nil
	}
	return string(decoded), nil
}
