package domain

import "time"

// SearchFilter restricts a similarity search.
type SearchFilter struct {
	// SourceType limits results to one source type. Empty means all.
	SourceType SourceType

	// AfterDate excludes chunks whose CreatedDate is before it.
	// The zero value disables the filter.
	AfterDate time.Time
}

// SearchHit is one row returned by the index store's similarity search,
// ranked by descending similarity with ties broken by ascending chunk ID.
type SearchHit struct {
	Chunk Chunk

	// Similarity is 1 - cosine distance, in [-1, 1];
	// practically [0, 1] for normalised embeddings.
	Similarity float64
}

// Passage is an attributed retrieval result assembled by the retriever
// for the downstream answer-generation consumer.
type Passage struct {
	Content     string
	Similarity  float64
	SourceType  SourceType
	SourceID    string
	Attribution string
	CreatedDate time.Time
}
