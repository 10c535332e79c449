package extractors

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
	"github.com/custodia-labs/docpipe/internal/extractors/docx"
	"github.com/custodia-labs/docpipe/internal/extractors/html"
	"github.com/custodia-labs/docpipe/internal/extractors/legacy"
	"github.com/custodia-labs/docpipe/internal/extractors/pdf"
	"github.com/custodia-labs/docpipe/internal/extractors/plaintext"
	"github.com/custodia-labs/docpipe/internal/extractors/pptx"
	"github.com/custodia-labs/docpipe/internal/extractors/xlsx"
	"github.com/custodia-labs/docpipe/internal/logger"
)

// Ensure Engine implements the interface.
var _ driven.ExtractionEngine = (*Engine)(nil)

// Default container limits.
const (
	// DefaultMaxArchiveBytes caps cumulative decompressed size per archive.
	DefaultMaxArchiveBytes = 50 << 20 // 50 MB

	// DefaultMaxArchiveDepth is how many container levels are entered.
	// A container found at this depth is skipped, not processed.
	DefaultMaxArchiveDepth = 2
)

// archiveExt is the container extension the engine handles itself.
const archiveExt = ".zip"

// Engine dispatches file content to format extractors by extension.
type Engine struct {
	extractors map[string]driven.Extractor

	maxArchiveBytes int64
	maxArchiveDepth int
}

// Option configures the engine.
type Option func(*Engine)

// WithMaxArchiveBytes sets the cumulative decompressed-size ceiling.
func WithMaxArchiveBytes(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxArchiveBytes = n
		}
	}
}

// WithMaxArchiveDepth sets the container nesting limit.
func WithMaxArchiveDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxArchiveDepth = n
		}
	}
}

// NewEngine creates an engine with all built-in format extractors
// registered. The runner is used by extractors that fall back to external
// conversion tools for legacy binary formats.
func NewEngine(runner driven.CommandRunner, opts ...Option) *Engine {
	e := &Engine{
		extractors:      make(map[string]driven.Extractor),
		maxArchiveBytes: DefaultMaxArchiveBytes,
		maxArchiveDepth: DefaultMaxArchiveDepth,
	}

	e.Register(pdf.New())
	e.Register(docx.New())
	e.Register(xlsx.New())
	e.Register(pptx.New())
	e.Register(legacy.NewDoc(runner))
	e.Register(legacy.NewHWP(runner))
	e.Register(html.New())
	e.Register(plaintext.New())

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a format extractor. Later registrations win on conflict.
func (e *Engine) Register(x driven.Extractor) {
	for _, ext := range x.Extensions() {
		e.extractors[strings.ToLower(ext)] = x
	}
}

// Supported reports whether the extension has a registered extractor or
// is the container format.
func (e *Engine) Supported(ext string) bool {
	ext = strings.ToLower(ext)
	if ext == archiveExt {
		return true
	}
	_, ok := e.extractors[ext]
	return ok
}

// Extract converts content with the given extension to plain text, or to
// a list of internal entries when the file is a container.
func (e *Engine) Extract(ctx context.Context, content []byte, ext string) (*domain.ExtractionResult, error) {
	ext = strings.ToLower(ext)

	if ext == archiveExt {
		budget := e.maxArchiveBytes
		entries, err := e.extractArchive(ctx, content, 0, &budget)
		if err != nil {
			return nil, err
		}
		return &domain.ExtractionResult{Entries: entries}, nil
	}

	x, ok := e.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}

	text, err := x.Extract(ctx, content)
	if err != nil {
		return nil, err
	}
	return &domain.ExtractionResult{Text: text}, nil
}

// extractArchive expands a zip archive into its supported entries.
// depth counts the container levels already entered; budget is the shared
// remaining decompressed-byte allowance across the whole recursion.
func (e *Engine) extractArchive(ctx context.Context, content []byte, depth int, budget *int64) ([]domain.ArchiveEntry, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}

	// Entries in filename order so composite source ids are stable
	// across runs of the same archive.
	files := make([]*zip.File, len(reader.File))
	copy(files, reader.File)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var entries []domain.ArchiveEntry
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Flags&0x1 != 0 {
			// Encrypted entry: never prompted for or brute-forced.
			logger.Warn("archive: skipping encrypted entry %q", f.Name)
			continue
		}

		entryExt := strings.ToLower(path.Ext(f.Name))
		isNested := entryExt == archiveExt
		if isNested && depth+1 >= e.maxArchiveDepth {
			// Skipped before decompression so a deep bomb costs nothing.
			logger.Warn("archive: nesting depth %d reached, skipping %q", e.maxArchiveDepth, f.Name)
			continue
		}
		if !isNested {
			if _, ok := e.extractors[entryExt]; !ok {
				logger.Debug("archive: skipping unsupported entry %q", f.Name)
				continue
			}
		}

		data, err := e.readEntry(f, budget)
		if err != nil {
			return nil, err
		}

		if isNested {
			nested, err := e.extractArchive(ctx, data, depth+1, budget)
			if err != nil {
				return nil, err
			}
			for _, n := range nested {
				entries = append(entries, domain.ArchiveEntry{
					Path: f.Name + "/" + n.Path,
					Ext:  n.Ext,
					Data: n.Data,
				})
			}
			continue
		}

		entries = append(entries, domain.ArchiveEntry{
			Path: f.Name,
			Ext:  entryExt,
			Data: data,
		})
	}

	return entries, nil
}

// readEntry decompresses one archive entry against the shared budget.
// The limit is enforced while reading, not after: a decompression bomb is
// aborted as soon as the ceiling is crossed.
func (e *Engine) readEntry(f *zip.File, budget *int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", domain.ErrCorruptDocument, f.Name, err)
	}
	defer rc.Close()

	// Allow one byte over budget so overflow is observable.
	limited := io.LimitReader(rc, *budget+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", domain.ErrCorruptDocument, f.Name, err)
	}
	if int64(len(data)) > *budget {
		return nil, fmt.Errorf("%w: archive exceeds %d decompressed bytes", domain.ErrResourceLimit, e.maxArchiveBytes)
	}
	*budget -= int64(len(data))
	return data, nil
}
