package driven

import (
	"context"
	"time"
)

// FileChange is one added or modified item reported by the file store.
type FileChange struct {
	// ID is the provider-assigned stable file identity.
	ID string

	// Name is the file name including extension.
	Name string

	// Path is the full display path of the file.
	Path string

	// Size is the file size in bytes as reported by the provider.
	Size int64

	// Modified is the server-side modification time.
	Modified time.Time
}

// FileChangePage is one page of the change feed.
type FileChangePage struct {
	// Changes are added or modified files.
	Changes []FileChange

	// Deletions are display paths of removed files. The provider does not
	// report the file ID for deletions, only the path.
	Deletions []string

	// Cursor resumes enumeration after this page.
	Cursor string

	// HasMore indicates another page should be fetched with Cursor.
	HasMore bool
}

// FileStoreClient is the boundary to the cloud file store. An empty
// cursor requests the full initial listing; a non-empty cursor requests
// only the delta since that cursor.
type FileStoreClient interface {
	// ListChanges enumerates one page of changes since the cursor.
	ListChanges(ctx context.Context, cursor string) (*FileChangePage, error)

	// Download fetches the raw content of a file by its ID.
	Download(ctx context.Context, id string) ([]byte, error)
}
