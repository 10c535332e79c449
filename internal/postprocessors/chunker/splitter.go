// Package chunker splits extracted text into overlapping passages sized
// for embedding.
package chunker

import (
	"strings"

	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
)

// Ensure Splitter implements the interface.
var _ driven.TextSplitter = (*Splitter)(nil)

// DefaultChunkSize is the default maximum chunk length in runes.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default overlap between adjacent chunks in runes.
const DefaultChunkOverlap = 50

// defaultSeparators is the boundary preference order: paragraph breaks
// first, then lines, sentences, words, and finally a hard character
// split when nothing else fits.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter recursively splits text on the strongest boundary that keeps
// pieces within the chunk size. Lengths are counted in runes so
// multi-byte scripts chunk the same as ASCII.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk length in runes.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between adjacent chunks in runes.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparators replaces the boundary preference order.
func WithSeparators(seps []string) Option {
	return func(s *Splitter) {
		if len(seps) > 0 {
			s.separators = seps
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: defaultSeparators,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split divides text into chunks of at most chunkSize runes, with
// adjacent chunks sharing up to overlap runes. The output is a pure
// function of the input: the same text always yields the same chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.splitRecursive(text, s.separators)
}

// splitRecursive splits text on the first workable separator and merges
// the pieces back into chunks. Pieces still over the limit are split
// again with the remaining, weaker separators.
func (s *Splitter) splitRecursive(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	rest := separators
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	pieces := splitKeep(text, sep)

	var chunks []string
	var good []string
	for _, piece := range pieces {
		if runeLen(piece) <= s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			// No weaker boundary left; hard-split by runes.
			chunks = append(chunks, s.hardSplit(piece)...)
		} else {
			chunks = append(chunks, s.splitRecursive(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge packs pieces into chunks up to chunkSize. Each new chunk starts
// with the last overlap runes of the previous one, copied verbatim as a
// character-level suffix so the shared region survives even when every
// piece is larger than the overlap.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() string {
		chunk := strings.TrimSpace(strings.Join(window, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		return chunk
	}

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.chunkSize && len(window) > 0 {
			chunk := flush()
			window = window[:0]
			total = 0

			// Carry the emitted chunk's tail, shrunk when the next
			// piece leaves less than overlap runes of room.
			keep := s.overlap
			if room := s.chunkSize - n; keep > room {
				keep = room
			}
			if keep > 0 && chunk != "" {
				tail := tailRunes(chunk, keep)
				window = append(window, tail)
				total = runeLen(tail)
			}
		}
		window = append(window, piece)
		total += n
	}
	flush()
	return chunks
}

// tailRunes returns the last n runes of text.
func tailRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}

// hardSplit cuts text into fixed rune windows advancing by
// chunkSize-overlap, used when no separator can produce small pieces.
func (s *Splitter) hardSplit(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// splitKeep splits text by sep, keeping the separator attached to the
// preceding piece so joins reconstruct the original text exactly.
func splitKeep(text, sep string) []string {
	if sep == "" {
		var runes []string
		for _, r := range text {
			runes = append(runes, string(r))
		}
		return runes
	}

	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	for i, part := range parts {
		if i < len(parts)-1 {
			part += sep
		}
		if part != "" {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

func runeLen(s string) int {
	return len([]rune(s))
}
