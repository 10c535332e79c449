package plaintext

import (
	"context"
	"testing"
)

func TestExtractor_Extensions(t *testing.T) {
	e := New()
	exts := e.Extensions()
	if len(exts) != 2 || exts[0] != ".txt" || exts[1] != ".csv" {
		t.Errorf("unexpected extensions: %v", exts)
	}
}

func TestExtractor_Extract_UTF8(t *testing.T) {
	e := New()

	text, err := e.Extract(context.Background(), []byte("plain ascii and 한글 mixed"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "plain ascii and 한글 mixed" {
		t.Errorf("expected passthrough, got %q", text)
	}
}

func TestExtractor_Extract_EUCKR(t *testing.T) {
	e := New()

	// "한글" in EUC-KR.
	content := []byte{0xC7, 0xD1, 0xB1, 0xDB}
	text, err := e.Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "한글" {
		t.Errorf("expected 한글, got %q", text)
	}
}

func TestExtractor_Extract_CP949Extended(t *testing.T) {
	e := New()

	// "똠" occupies the CP949 extension area outside strict KS X 1001;
	// the extended EUC-KR tables must still decode it.
	content := []byte{0x8C, 0x63}
	text, err := e.Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "똠" {
		t.Errorf("expected 똠, got %q", text)
	}
}

func TestExtractor_Extract_LastResortNeverFails(t *testing.T) {
	e := New()

	// Bytes that are valid neither as UTF-8 nor as EUC-KR.
	content := []byte{0xFF, 0xFE, 0xFF, 0x41}
	text, err := e.Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("expected lossy fallback, got error: %v", err)
	}
	if text == "" {
		t.Error("expected non-empty fallback text")
	}
}
