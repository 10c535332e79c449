package driven

import (
	"context"

	"github.com/custodia-labs/docpipe/internal/core/domain"
)

// Extractor converts one file format to plain text.
// Each format (pdf, docx, xlsx, ...) registers its own implementation.
type Extractor interface {
	// Extensions returns the lower-case file extensions this extractor
	// handles, including the leading dot.
	Extensions() []string

	// Extract converts raw bytes to plain text. It fails with
	// domain.ErrCorruptDocument when the bytes cannot be parsed as the
	// declared format.
	Extract(ctx context.Context, content []byte) (string, error)
}

// ExtractionEngine dispatches raw file content to format extractors and
// handles container (archive) files. Container handling is bounded: a
// cumulative decompressed-size ceiling and a fixed nesting depth.
type ExtractionEngine interface {
	// Extract converts a blob with the given extension to either plain
	// text or, for containers, a list of internal entries that each
	// re-entered this same contract.
	Extract(ctx context.Context, content []byte, ext string) (*domain.ExtractionResult, error)

	// Supported reports whether the extension has a registered extractor
	// or is a recognised container format.
	Supported(ext string) bool
}

// CommandRunner executes an external command and returns its stdout.
// It exists so extractors that shell out to conversion tools can be
// tested with a double.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
