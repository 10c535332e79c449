package filestore

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docpipe/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
	"github.com/custodia-labs/docpipe/internal/core/services"
	"github.com/custodia-labs/docpipe/internal/extractors"
	"github.com/custodia-labs/docpipe/internal/postprocessors/chunker"
)

// fakeFileStore serves a scripted change feed and file contents.
type fakeFileStore struct {
	mu        sync.Mutex
	pages     []driven.FileChangePage
	contents  map[string][]byte
	downloads []string
	listErr   error
}

func (f *fakeFileStore) ListChanges(_ context.Context, cursor string) (*driven.FileChangePage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	idx := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "page-%d", &idx)
	}
	if idx >= len(f.pages) {
		return &driven.FileChangePage{Cursor: cursor}, nil
	}
	page := f.pages[idx]
	page.Cursor = fmt.Sprintf("page-%d", idx+1)
	page.HasMore = idx+1 < len(f.pages)
	return &page, nil
}

func (f *fakeFileStore) Download(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, id)
	f.mu.Unlock()
	content, ok := f.contents[id]
	if !ok {
		return nil, fmt.Errorf("%w: no such file %s", domain.ErrSourceUnavailable, id)
	}
	return content, nil
}

// fakeEmbedder returns deterministic unit vectors without a network.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fakeEmbedder) Dimensions() int { return 3 }
func (fakeEmbedder) Close() error    { return nil }

func newTestDriver(t *testing.T, client driven.FileStoreClient) (*Driver, *memory.IndexStore, *memory.CheckpointStore) {
	t.Helper()

	index := memory.NewIndexStore()
	checkpoints := memory.NewCheckpointStore()
	indexer := services.NewIndexer(chunker.New(), fakeEmbedder{}, index)
	engine := extractors.NewEngine(nil)

	return New(client, engine, indexer, checkpoints, WithWorkers(2)), index, checkpoints
}

func change(id, p string, size int64) driven.FileChange {
	name := p
	if i := lastSlash(p); i >= 0 {
		name = p[i+1:]
	}
	return driven.FileChange{
		ID:       id,
		Name:     name,
		Path:     p,
		Size:     size,
		Modified: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func TestDriver_Type(t *testing.T) {
	d, _, _ := newTestDriver(t, &fakeFileStore{})
	assert.Equal(t, "filestore", d.Type())
}

func TestDriver_Sync_IndexesSupportedFiles(t *testing.T) {
	client := &fakeFileStore{
		pages: []driven.FileChangePage{{
			Changes: []driven.FileChange{
				change("id-1", "/Docs/notes.txt", 100),
				change("id-2", "/Docs/photo.png", 100),
			},
		}},
		contents: map[string][]byte{
			"id-1": []byte("some meeting notes about the quarterly plan"),
		},
	}
	d, index, checkpoints := newTestDriver(t, client)

	stats, err := d.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Skipped, "unsupported extension is skipped, not downloaded")
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, []string{"id-1"}, client.downloads)

	chunks := index.Chunks("/docs/notes.txt")
	require.NotEmpty(t, chunks)
	assert.Equal(t, domain.SourceFile, chunks[0].SourceType)
	assert.Equal(t, "notes.txt", chunks[0].Meta.Filename)
	assert.Equal(t, "/Docs", chunks[0].Meta.FolderPath)
	assert.Equal(t, "txt", chunks[0].Meta.FileType)

	cp, err := checkpoints.Get(context.Background(), SyncType)
	require.NoError(t, err)
	assert.Equal(t, "page-1", cp.Cursor)
	assert.False(t, cp.LastSync.IsZero())
}

func TestDriver_Sync_SkipsOversizedFiles(t *testing.T) {
	client := &fakeFileStore{
		pages: []driven.FileChangePage{{
			Changes: []driven.FileChange{change("id-big", "/big.txt", DefaultMaxFileBytes+1)},
		}},
		contents: map[string][]byte{},
	}
	d, _, _ := newTestDriver(t, client)

	stats, err := d.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, client.downloads, "oversized files are never downloaded")
}

func TestDriver_Sync_DeletionsRemoveIndexedChunks(t *testing.T) {
	client := &fakeFileStore{
		pages: []driven.FileChangePage{{
			Deletions: []string{"/Docs/old.txt"},
		}},
	}
	d, index, _ := newTestDriver(t, client)

	// Pre-index the document that the feed will report deleted.
	require.NoError(t, index.Replace(context.Background(), "/docs/old.txt", []domain.Chunk{{
		SourceType: domain.SourceFile, SourceID: "/docs/old.txt", Content: "old"},
	}))

	stats, err := d.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deleted)

	has, err := index.HasSource(context.Background(), "/docs/old.txt")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDriver_Sync_DeletionCoversArchiveEntries(t *testing.T) {
	client := &fakeFileStore{
		pages: []driven.FileChangePage{{Deletions: []string{"/bundle.zip"}}},
	}
	d, index, _ := newTestDriver(t, client)

	ctx := context.Background()
	require.NoError(t, index.Replace(ctx, "/bundle.zip:a.txt", []domain.Chunk{{SourceID: "/bundle.zip:a.txt", Content: "a"}}))
	require.NoError(t, index.Replace(ctx, "/bundle.zip:b.txt", []domain.Chunk{{SourceID: "/bundle.zip:b.txt", Content: "b"}}))

	_, err := d.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, index.SourceIDs())
}

func TestDriver_Sync_ArchiveIndexedPerEntry(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, text := range map[string]string{"inner/a.txt": "alpha text", "b.txt": "beta text"} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(text))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	client := &fakeFileStore{
		pages: []driven.FileChangePage{{
			Changes: []driven.FileChange{change("id-zip", "/bundle.zip", int64(buf.Len()))},
		}},
		contents: map[string][]byte{"id-zip": buf.Bytes()},
	}
	d, index, _ := newTestDriver(t, client)

	stats, err := d.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Added)

	ids := index.SourceIDs()
	assert.Contains(t, ids, "/bundle.zip:b.txt")
	assert.Contains(t, ids, "/bundle.zip:inner/a.txt")

	chunks := index.Chunks("/bundle.zip:inner/a.txt")
	require.NotEmpty(t, chunks)
	assert.Equal(t, "a.txt", chunks[0].Meta.Filename)
	assert.Equal(t, "/bundle.zip", chunks[0].Meta.FolderPath)
}

func TestDriver_Sync_ItemErrorsDoNotBlockCheckpoint(t *testing.T) {
	client := &fakeFileStore{
		pages: []driven.FileChangePage{{
			Changes: []driven.FileChange{
				change("id-missing", "/gone.txt", 10),
				change("id-ok", "/ok.txt", 10),
			},
		}},
		contents: map[string][]byte{"id-ok": []byte("fine content")},
	}
	d, _, checkpoints := newTestDriver(t, client)

	stats, err := d.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Errors)

	// The failed download is counted, the pass still commits.
	_, err = checkpoints.Get(context.Background(), SyncType)
	assert.NoError(t, err)
}

func TestDriver_Sync_EnumerationFailureLeavesCheckpointUntouched(t *testing.T) {
	client := &fakeFileStore{listErr: fmt.Errorf("%w: feed down", domain.ErrSourceUnavailable)}
	d, _, checkpoints := newTestDriver(t, client)

	_, err := d.Sync(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))

	_, err = checkpoints.Get(context.Background(), SyncType)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDriver_Sync_ResumesFromStoredCursor(t *testing.T) {
	client := &fakeFileStore{
		pages: []driven.FileChangePage{
			{Changes: []driven.FileChange{change("id-1", "/first.txt", 10)}},
			{Changes: []driven.FileChange{change("id-2", "/second.txt", 10)}},
		},
		contents: map[string][]byte{
			"id-1": []byte("first"),
			"id-2": []byte("second"),
		},
	}
	d, _, checkpoints := newTestDriver(t, client)

	ctx := context.Background()
	require.NoError(t, checkpoints.Save(ctx, domain.Checkpoint{
		SyncType: SyncType,
		Cursor:   "page-1",
	}))

	stats, err := d.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added, "only the delta after the cursor is processed")
	assert.Equal(t, []string{"id-2"}, client.downloads)
}
