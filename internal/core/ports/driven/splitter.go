package driven

// TextSplitter divides extracted text into embedding-sized pieces.
// Splitting is deterministic: the same text always yields the same
// pieces, so re-indexing an unchanged document is a no-op in content.
type TextSplitter interface {
	Split(text string) []string
}
