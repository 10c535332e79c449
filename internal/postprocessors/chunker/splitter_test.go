package chunker

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		s := New()
		if s.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, s.chunkSize)
		}
		if s.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, s.overlap)
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		s := New(WithChunkSize(200))
		if s.chunkSize != 200 {
			t.Errorf("expected chunkSize 200, got %d", s.chunkSize)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		s := New(WithChunkSize(100), WithOverlap(150))
		if s.overlap >= s.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		s := New(WithChunkSize(0), WithOverlap(-1))
		if s.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", s.chunkSize)
		}
		if s.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", s.overlap)
		}
	})
}

func TestSplitter_Split_Empty(t *testing.T) {
	s := New()
	if chunks := s.Split(""); len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty text, got %d", len(chunks))
	}
	if chunks := s.Split("   \n\n  "); len(chunks) != 0 {
		t.Errorf("expected 0 chunks for whitespace text, got %d", len(chunks))
	}
}

func TestSplitter_Split_SmallText(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(20))

	chunks := s.Split("This is a small piece of content.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for small text, got %d", len(chunks))
	}
	if chunks[0] != "This is a small piece of content." {
		t.Errorf("expected chunk to match input, got %q", chunks[0])
	}
}

func TestSplitter_Split_PreferredBoundaries(t *testing.T) {
	s := New(WithChunkSize(40), WithOverlap(0))

	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	chunks := s.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Paragraph breaks are the strongest boundary, so no chunk should
	// tear a paragraph in half.
	for _, c := range chunks {
		if !strings.Contains(text, c) {
			t.Errorf("chunk %q is not verbatim text", c)
		}
		if len([]rune(c)) > 40 {
			t.Errorf("chunk exceeds size limit: %d runes", len([]rune(c)))
		}
	}
}

func TestSplitter_Split_SizeLimit(t *testing.T) {
	s := New(WithChunkSize(50), WithOverlap(10))

	words := strings.Repeat("word ", 100)
	chunks := s.Split(words)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 50 {
			t.Errorf("chunk %d exceeds 50 runes: %d", i, len([]rune(c)))
		}
	}
}

func TestSplitter_Split_Overlap(t *testing.T) {
	s := New(WithChunkSize(20), WithOverlap(8))

	chunks := s.Split(strings.Repeat("abcd ", 20))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Adjacent chunks share verbatim trailing/leading text.
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		shared := false
		for n := len(cur); n > 0; n-- {
			if strings.HasSuffix(prev, cur[:n]) {
				shared = n > 0
				break
			}
		}
		if !shared {
			t.Errorf("chunks %d and %d share no overlap: %q / %q", i-1, i, prev, cur)
		}
	}
}

func TestSplitter_Split_OverlapWithSentenceSizedPieces(t *testing.T) {
	// Realistic prose: every sentence is far larger than the overlap
	// window, so the shared region must come from a rune-level suffix of
	// the previous chunk, not from carrying whole sentences.
	s := New()

	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString(strings.Repeat(string(rune('a'+i)), 90))
		b.WriteString(". ")
	}

	chunks := s.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := strings.TrimLeft(string(prev[len(prev)-DefaultChunkOverlap:]), " \n")
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not start with the previous chunk's tail %q", i, tail)
		}
		if got := len([]rune(tail)); got < DefaultChunkOverlap-1 {
			t.Errorf("chunks %d/%d share only %d runes, want ~%d", i-1, i, got, DefaultChunkOverlap)
		}
		if got := len([]rune(chunks[i])); got > DefaultChunkSize {
			t.Errorf("chunk %d exceeds %d runes: %d", i, DefaultChunkSize, got)
		}
	}
}

func TestSplitter_Split_NoSeparators(t *testing.T) {
	s := New(WithChunkSize(10), WithOverlap(3))

	// One unbroken run forces the hard rune split.
	chunks := s.Split(strings.Repeat("x", 25))
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 10 {
		t.Errorf("expected first chunk length 10, got %d", len(chunks[0]))
	}
}

func TestSplitter_Split_MultiByteRunes(t *testing.T) {
	s := New(WithChunkSize(10), WithOverlap(0))

	// 25 Hangul syllables, 3 bytes each. Counting bytes would split far
	// too early; counting runes gives 10-syllable chunks.
	chunks := s.Split(strings.Repeat("가", 25))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if got := len([]rune(chunks[0])); got != 10 {
		t.Errorf("expected 10 runes in first chunk, got %d", got)
	}
}

func TestSplitter_Split_Deterministic(t *testing.T) {
	s := New(WithChunkSize(30), WithOverlap(10))

	text := "Alpha beta gamma.\nDelta epsilon zeta.\n\nEta theta iota kappa lambda mu."
	first := s.Split(text)
	for i := 0; i < 5; i++ {
		again := s.Split(text)
		if len(again) != len(first) {
			t.Fatalf("run %d: chunk count changed: %d vs %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Errorf("run %d: chunk %d differs: %q vs %q", i, j, again[j], first[j])
			}
		}
	}
}
