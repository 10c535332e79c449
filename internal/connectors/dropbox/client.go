// Package dropbox adapts the Dropbox HTTP API to the file store port.
package dropbox

import (
	"context"
	"fmt"
	"io"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
	"github.com/custodia-labs/docpipe/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.FileStoreClient = (*Client)(nil)

// Client talks to the Dropbox content and metadata endpoints.
type Client struct {
	files    files.Client
	rootPath string
}

// Option configures the client.
type Option func(*Client)

// WithRootPath restricts enumeration to one folder subtree.
// Empty means the account root.
func WithRootPath(path string) Option {
	return func(c *Client) {
		c.rootPath = path
	}
}

// New creates a client authenticated with the given access token.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: dropbox access token is required", domain.ErrInvalidInput)
	}

	cfg := dropbox.Config{Token: token}
	c := &Client{
		files: files.New(cfg),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListChanges enumerates one page of the change feed. An empty cursor
// starts a fresh recursive listing; a non-empty cursor resumes the feed
// and yields only the delta, including deletions.
func (c *Client) ListChanges(_ context.Context, cursor string) (*driven.FileChangePage, error) {
	var (
		res *files.ListFolderResult
		err error
	)
	if cursor == "" {
		res, err = c.files.ListFolder(&files.ListFolderArg{
			Path:      c.rootPath,
			Recursive: true,
		})
	} else {
		res, err = c.files.ListFolderContinue(&files.ListFolderContinueArg{
			Cursor: cursor,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: listing dropbox changes: %v", domain.ErrSourceUnavailable, err)
	}

	page := &driven.FileChangePage{
		Cursor:  res.Cursor,
		HasMore: res.HasMore,
	}
	for _, entry := range res.Entries {
		switch md := entry.(type) {
		case *files.FileMetadata:
			page.Changes = append(page.Changes, driven.FileChange{
				ID:       md.Id,
				Name:     md.Name,
				Path:     md.PathDisplay,
				Size:     int64(md.Size),
				Modified: md.ServerModified,
			})
		case *files.DeletedMetadata:
			// Dropbox reports deletions by path only; the id is gone.
			page.Deletions = append(page.Deletions, md.PathDisplay)
		case *files.FolderMetadata:
			// Folders carry no content of their own.
		default:
			logger.Debug("dropbox: ignoring unknown entry type %T", entry)
		}
	}
	return page, nil
}

// Download fetches the raw content of a file by its Dropbox id.
func (c *Client) Download(_ context.Context, id string) ([]byte, error) {
	_, rc, err := c.files.Download(&files.DownloadArg{Path: id})
	if err != nil {
		return nil, fmt.Errorf("%w: downloading %s: %v", domain.ErrSourceUnavailable, id, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrSourceUnavailable, id, err)
	}
	return content, nil
}
