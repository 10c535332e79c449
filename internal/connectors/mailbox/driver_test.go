package mailbox

import (
	"context"
	"fmt"
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

// fakeMailbox serves scripted messages per folder.
type fakeMailbox struct {
	messages    map[string][]driven.MailMessage
	searches    []searchCall
	err         error
	folderFails map[string]error
}

type searchCall struct {
	folder string
	since  time.Time
}

func (f *fakeMailbox) SearchSince(_ context.Context, folder string, since time.Time) ([]driven.MailMessage, error) {
	f.searches = append(f.searches, searchCall{folder: folder, since: since})
	if f.err != nil {
		return nil, f.err
	}
	if err := f.folderFails[folder]; err != nil {
		return nil, err
	}
	return f.messages[folder], nil
}

func (f *fakeMailbox) Close() error { return nil }

// fakeEmbedder returns deterministic vectors without a network.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (fakeEmbedder) Dimensions() int { return 2 }
func (fakeEmbedder) Close() error    { return nil }

func newTestDriver(t *testing.T, client driven.MailboxClient, opts ...Option) (*Driver, *memory.IndexStore, *memory.CheckpointStore) {
	t.Helper()

	index := memory.NewIndexStore()
	checkpoints := memory.NewCheckpointStore()
	indexer := services.NewIndexer(chunker.New(), fakeEmbedder{}, index)
	engine := extractors.NewEngine(nil)

	return New(client, engine, indexer, checkpoints, opts...), index, checkpoints
}

func plainMessage(uid, subject, body string) driven.MailMessage {
	return driven.MailMessage{
		UID:      uid,
		Folder:   "INBOX",
		From:     "alice@example.com",
		To:       "bob@example.com",
		Subject:  subject,
		Date:     time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		BodyText: body,
	}
}

func TestDriver_Type(t *testing.T) {
	d, _, _ := newTestDriver(t, &fakeMailbox{})
	assert.Equal(t, "mailbox", d.Type())
}

func TestDriver_Sync_IndexesBodies(t *testing.T) {
	client := &fakeMailbox{
		messages: map[string][]driven.MailMessage{
			"INBOX": {plainMessage("101", "Budget question", "what is our Q3 budget allocation")},
		},
	}
	d, index, checkpoints := newTestDriver(t, client)

	stats, err := d.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)

	chunks := index.Chunks("mail:101:body")
	require.NotEmpty(t, chunks)
	assert.Equal(t, domain.SourceMailBody, chunks[0].SourceType)
	assert.Equal(t, "Budget question", chunks[0].Meta.MailSubject)
	assert.Equal(t, "alice@example.com", chunks[0].Meta.MailFrom)

	cp, err := checkpoints.Get(context.Background(), SyncType)
	require.NoError(t, err)
	assert.False(t, cp.LastSync.IsZero())
}

func TestDriver_Sync_PrefersHTMLBody(t *testing.T) {
	msg := plainMessage("102", "Report", "plain fallback")
	msg.BodyHTML = `<html><body><p>html body content</p><div class="signature">Sig</div></body></html>`
	client := &fakeMailbox{messages: map[string][]driven.MailMessage{"INBOX": {msg}}}
	d, index, _ := newTestDriver(t, client)

	_, err := d.Sync(context.Background())
	require.NoError(t, err)

	chunks := index.Chunks("mail:102:body")
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Content, "html body content")
	assert.NotContains(t, chunks[0].Content, "Sig", "signature stripped from html body")
	assert.NotContains(t, chunks[0].Content, "plain fallback")
}

func TestDriver_Sync_IndexesAttachments(t *testing.T) {
	msg := plainMessage("103", "With attachment", "see attached")
	msg.Attachments = []driven.MailAttachment{
		{Filename: "report.txt", Data: []byte("attachment body text")},
		{Filename: "photo.jpg", Data: []byte{0xFF, 0xD8}},
	}
	client := &fakeMailbox{messages: map[string][]driven.MailMessage{"INBOX": {msg}}}
	d, index, _ := newTestDriver(t, client)

	stats, err := d.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Added, "body plus one supported attachment")
	assert.Equal(t, 1, stats.Skipped, "unsupported attachment type")

	chunks := index.Chunks("mail:103:att:report.txt")
	require.NotEmpty(t, chunks)
	assert.Equal(t, domain.SourceMailAttachment, chunks[0].SourceType)
	assert.Equal(t, "report.txt", chunks[0].Meta.Filename)
	assert.Equal(t, "With attachment", chunks[0].Meta.MailSubject)
}

func TestDriver_Sync_SkipsOversizedAttachments(t *testing.T) {
	msg := plainMessage("104", "Huge", "body")
	msg.Attachments = []driven.MailAttachment{
		{Filename: "big.txt", Data: make([]byte, 100)},
	}
	client := &fakeMailbox{messages: map[string][]driven.MailMessage{"INBOX": {msg}}}
	d, index, _ := newTestDriver(t, client, WithMaxAttachmentBytes(10))

	stats, err := d.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)

	has, err := index.HasSource(context.Background(), "mail:104:att:big.txt")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDriver_Sync_SkipsAlreadyIndexedMessages(t *testing.T) {
	client := &fakeMailbox{
		messages: map[string][]driven.MailMessage{
			"INBOX": {plainMessage("105", "Old news", "already seen body")},
		},
	}
	d, _, _ := newTestDriver(t, client)

	ctx := context.Background()
	_, err := d.Sync(ctx)
	require.NoError(t, err)

	// Second pass sees the same message again but never re-embeds it.
	stats, err := d.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Added)
	assert.Equal(t, 1, stats.Skipped)
}

func TestDriver_Sync_UsesCheckpointWindow(t *testing.T) {
	client := &fakeMailbox{messages: map[string][]driven.MailMessage{}}
	d, _, checkpoints := newTestDriver(t, client, WithFolders([]string{"INBOX"}))

	ctx := context.Background()
	last := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, checkpoints.Save(ctx, domain.Checkpoint{SyncType: SyncType, LastSync: last}))

	_, err := d.Sync(ctx)
	require.NoError(t, err)

	require.Len(t, client.searches, 1)
	assert.True(t, client.searches[0].since.Equal(last))
}

func TestDriver_Sync_ScansAllFolders(t *testing.T) {
	client := &fakeMailbox{messages: map[string][]driven.MailMessage{}}
	d, _, _ := newTestDriver(t, client, WithFolders([]string{"INBOX", "Sent"}))

	_, err := d.Sync(context.Background())
	require.NoError(t, err)

	require.Len(t, client.searches, 2)
	assert.Equal(t, "INBOX", client.searches[0].folder)
	assert.Equal(t, "Sent", client.searches[1].folder)
}

func TestDriver_Sync_FolderFailureLeavesCheckpointUntouched(t *testing.T) {
	client := &fakeMailbox{err: fmt.Errorf("%w: imap down", domain.ErrSourceUnavailable)}
	d, _, checkpoints := newTestDriver(t, client)

	_, err := d.Sync(context.Background())
	require.Error(t, err)

	_, err = checkpoints.Get(context.Background(), SyncType)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDriver_Sync_FailedFolderDoesNotStopOthers(t *testing.T) {
	client := &fakeMailbox{
		messages: map[string][]driven.MailMessage{
			"Sent": {plainMessage("301", "Outgoing", "reply to the vendor about pricing")},
		},
		folderFails: map[string]error{
			"INBOX": fmt.Errorf("%w: folder not selectable", domain.ErrSourceUnavailable),
		},
	}
	d, index, checkpoints := newTestDriver(t, client)

	stats, err := d.Sync(context.Background())
	require.Error(t, err)

	// Both folders were attempted and the healthy one was indexed.
	require.Len(t, client.searches, 2)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Errors)

	has, err := index.HasSource(context.Background(), "mail:301:body")
	require.NoError(t, err)
	assert.True(t, has)

	// The window was not fully covered, so the checkpoint stays put.
	_, err = checkpoints.Get(context.Background(), SyncType)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDriver_Sync_EmptyBodyNotIndexed(t *testing.T) {
	msg := plainMessage("106", "Empty", "")
	client := &fakeMailbox{messages: map[string][]driven.MailMessage{"INBOX": {msg}}}
	d, index, _ := newTestDriver(t, client)

	stats, err := d.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Added)

	has, err := index.HasSource(context.Background(), "mail:106:body")
	require.NoError(t, err)
	assert.False(t, has)
}
