package domain

import "time"

// SourceType identifies the kind of artefact a chunk came from.
type SourceType string

const (
	// SourceFile is a document from the cloud file store, including
	// entries extracted from archives.
	SourceFile SourceType = "file"

	// SourceMailBody is the body text of a mailbox message.
	SourceMailBody SourceType = "mail_body"

	// SourceMailAttachment is a file attached to a mailbox message.
	SourceMailAttachment SourceType = "mail_attachment"
)

// Valid reports whether the source type is one of the known values.
func (t SourceType) Valid() bool {
	switch t {
	case SourceFile, SourceMailBody, SourceMailAttachment:
		return true
	}
	return false
}

// Chunk is one retrievable unit of text with its vector embedding.
// (SourceID, Index) is the uniqueness key: re-indexing a document replaces
// the full chunk set for its SourceID, so indices are always contiguous
// from zero and never mix old and new versions.
type Chunk struct {
	// ID is the store-assigned insertion id. Zero until persisted.
	// Used only for deterministic tie-breaking in search results.
	ID int64

	// SourceType classifies the originating artefact.
	SourceType SourceType

	// SourceID is the stable identity of the originating logical document.
	// For entries inside an archive it is composed as
	// "{containerID}:{internalPath}" so every chunk can be traced and
	// bulk-deleted per artefact.
	SourceID string

	// Index is the zero-based position of this chunk within its document.
	Index int

	// Content is the chunk text.
	Content string

	// Embedding is the vector representation. Nil until embedding succeeds.
	Embedding []float32

	// CreatedDate is the provenance timestamp from the source system.
	CreatedDate time.Time

	// UpdatedDate is the time of the last local mutation.
	UpdatedDate time.Time

	// Meta carries source-specific attribution fields.
	Meta ChunkMeta
}

// ChunkMeta holds optional, source-type-dependent metadata shared by all
// chunks of one document. File fields are set for SourceFile and
// SourceMailAttachment; mail fields for the two mailbox types.
type ChunkMeta struct {
	Filename   string
	FolderPath string
	FileType   string

	MailFrom    string
	MailTo      string
	MailSubject string
	MailDate    time.Time
}

// Attribution returns the human-readable origin label for a chunk,
// used by the retriever when assembling results.
func (c *Chunk) Attribution() string {
	switch c.SourceType {
	case SourceMailBody:
		return c.Meta.MailSubject
	case SourceMailAttachment:
		if c.Meta.Filename != "" {
			return c.Meta.Filename
		}
		return c.Meta.MailSubject
	default:
		return c.Meta.Filename
	}
}
