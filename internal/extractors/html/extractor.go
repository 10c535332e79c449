// Package html extracts readable text from HTML documents and mail
// bodies, stripping chrome, signatures and boilerplate disclaimers.
package html

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Non-content elements removed wholesale before text extraction.
var strippedSelectors = []string{
	"script", "style", "noscript", "head", "header", "footer", "nav",
}

// Class/id fragments that mark mail signature blocks.
var signaturePatterns = []string{
	"signature", "gmail_signature", "email-signature", "mail_signature",
}

// A short block containing one of these markers is a legal disclaimer or
// auto-appended footer, not content.
var disclaimerMarkers = []string{
	"면책", "disclaimer", "confidential", "본 메일은",
}

// disclaimerMaxRunes bounds how large a block may be and still be
// dropped as boilerplate. Longer blocks are kept even when a marker
// appears, since real content can mention confidentiality.
const disclaimerMaxRunes = 500

var blankLines = regexp.MustCompile(`\n{3,}`)

// Extractor converts HTML to cleaned plain text.
type Extractor struct{}

// New creates the HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".html", ".htm"}
}

// Extract parses the document, removes non-content blocks and returns
// the remaining text with block boundaries preserved as newlines.
func (e *Extractor) Extract(_ context.Context, content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", domain.ErrCorruptDocument, err)
	}

	doc.Find(strings.Join(strippedSelectors, ", ")).Remove()

	doc.Find("div, table, p, span").Each(func(_ int, s *goquery.Selection) {
		if isSignature(s) || isDisclaimer(s) {
			s.Remove()
		}
	})

	// Block elements become line breaks so adjacent cells and paragraphs
	// do not run together in the extracted text.
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("td, th").AppendHtml("\t")
	doc.Find("p, div, tr, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	text := doc.Text()
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

func isSignature(s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	marker := strings.ToLower(class + " " + id)
	for _, p := range signaturePatterns {
		if strings.Contains(marker, p) {
			return true
		}
	}
	return false
}

func isDisclaimer(s *goquery.Selection) bool {
	text := strings.TrimSpace(s.Text())
	if len([]rune(text)) > disclaimerMaxRunes {
		return false
	}
	lowered := strings.ToLower(text)
	for _, m := range disclaimerMarkers {
		if strings.Contains(lowered, m) {
			return true
		}
	}
	return false
}
