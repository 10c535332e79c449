// Package legacy extracts text from pre-OOXML binary office formats.
//
// These formats have no reliable pure-Go parser, so each extractor holds
// an ordered chain of strategies tried in sequence: an external
// conversion tool first, then a best-effort binary text sniff, then give
// up. The chain is data, not nested branching, so adding or reordering
// strategies never touches the dispatch.
package legacy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
	"github.com/custodia-labs/docpipe/internal/logger"
)

// Ensure the extractors implement the interface.
var (
	_ driven.Extractor = (*Extractor)(nil)
)

// strategy is one attempt at converting legacy bytes to text.
type strategy struct {
	name    string
	extract func(ctx context.Context, content []byte) (string, error)
}

// Extractor tries an ordered chain of strategies until one yields text.
type Extractor struct {
	extensions []string
	chain      []strategy
}

// NewDoc creates the extractor for legacy Word (.doc) and Excel (.xls)
// binaries: antiword CLI, then binary text sniff.
func NewDoc(runner driven.CommandRunner) *Extractor {
	return &Extractor{
		extensions: []string{".doc", ".xls"},
		chain: []strategy{
			{name: "antiword", extract: toolStrategy(runner, "antiword")},
			{name: "binary-sniff", extract: sniffStrategy},
		},
	}
}

// NewHWP creates the extractor for Hangul Word Processor files:
// hwp5txt CLI for .hwp; .hwpx is dispatched to the zip/xml parser first.
func NewHWP(runner driven.CommandRunner) *Extractor {
	return &Extractor{
		extensions: []string{".hwp", ".hwpx"},
		chain: []strategy{
			{name: "hwpx-xml", extract: hwpxStrategy},
			{name: "hwp5txt", extract: toolStrategy(runner, "hwp5txt")},
			{name: "binary-sniff", extract: sniffStrategy},
		},
	}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return e.extensions
}

// Extract runs the strategy chain in order until one produces non-empty
// text. When every strategy fails the document is reported corrupt.
func (e *Extractor) Extract(ctx context.Context, content []byte) (string, error) {
	var lastErr error
	for _, s := range e.chain {
		text, err := s.extract(ctx, content)
		if err != nil {
			logger.Debug("legacy: strategy %s failed: %v", s.name, err)
			lastErr = err
			continue
		}
		if strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), nil
		}
	}
	return "", fmt.Errorf("%w: all strategies failed: %v", domain.ErrCorruptDocument, lastErr)
}

// toolStrategy writes content to a scratch file and runs an external
// converter over it.
func toolStrategy(runner driven.CommandRunner, tool string) func(context.Context, []byte) (string, error) {
	return func(ctx context.Context, content []byte) (string, error) {
		if runner == nil {
			return "", fmt.Errorf("no command runner configured")
		}

		tmp, err := os.CreateTemp("", "docpipe-legacy-*")
		if err != nil {
			return "", err
		}
		path := tmp.Name()
		defer os.Remove(path)

		if _, err := tmp.Write(content); err != nil {
			tmp.Close()
			return "", err
		}
		if err := tmp.Close(); err != nil {
			return "", err
		}

		out, err := runner.Run(ctx, tool, filepath.Clean(path))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// sniffStrategy salvages readable runs from a binary blob: lines of at
// least four characters containing Hangul or ASCII letters.
func sniffStrategy(_ context.Context, content []byte) (string, error) {
	text := strings.ToValidUTF8(string(content), "")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		cleaned := strings.TrimSpace(stripUnprintable(line))
		if len([]rune(cleaned)) < 4 {
			continue
		}
		if hasReadableRune(cleaned) {
			lines = append(lines, cleaned)
		}
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("no readable text found")
	}
	return strings.Join(lines, "\n"), nil
}

func stripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' {
			return r
		}
		return -1
	}, s)
}

func hasReadableRune(s string) bool {
	for _, r := range s {
		if r >= 0xAC00 && r <= 0xD7A3 {
			return true
		}
		if r < 128 && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
