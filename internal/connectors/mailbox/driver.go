// Package mailbox implements the sync driver that reconciles IMAP
// folders against the index.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
	"github.com/custodia-labs/docpipe/internal/core/ports/driving"
	"github.com/custodia-labs/docpipe/internal/core/services"
	"github.com/custodia-labs/docpipe/internal/logger"
)

// SyncType is the checkpoint identity of this driver.
const SyncType = "mailbox"

// DefaultMaxAttachmentBytes is the per-attachment size ceiling.
const DefaultMaxAttachmentBytes = 10 << 20 // 10 MB

// DefaultFolders are the folders scanned when none are configured.
var DefaultFolders = []string{"INBOX", "Sent"}

// Ensure Driver implements the interface.
var _ driving.SyncDriver = (*Driver)(nil)

// Driver runs incremental passes over the mailbox. Messages are
// immutable once delivered, so a message that is already indexed is
// never re-embedded; the date checkpoint plus an index existence check
// make repeated passes cheap.
type Driver struct {
	client      driven.MailboxClient
	engine      driven.ExtractionEngine
	indexer     *services.Indexer
	checkpoints driven.CheckpointStore

	folders            []string
	maxAttachmentBytes int64
}

// Option configures the driver.
type Option func(*Driver)

// WithFolders sets the folders scanned per pass.
func WithFolders(folders []string) Option {
	return func(d *Driver) {
		if len(folders) > 0 {
			d.folders = folders
		}
	}
}

// WithMaxAttachmentBytes sets the per-attachment size ceiling.
func WithMaxAttachmentBytes(n int64) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxAttachmentBytes = n
		}
	}
}

// New creates a mailbox sync driver.
func New(
	client driven.MailboxClient,
	engine driven.ExtractionEngine,
	indexer *services.Indexer,
	checkpoints driven.CheckpointStore,
	opts ...Option,
) *Driver {
	d := &Driver{
		client:             client,
		engine:             engine,
		indexer:            indexer,
		checkpoints:        checkpoints,
		folders:            DefaultFolders,
		maxAttachmentBytes: DefaultMaxAttachmentBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Type returns the sync type identifier.
func (d *Driver) Type() string {
	return SyncType
}

// Sync fetches every message received since the last successful pass and
// indexes bodies and attachments. The checkpoint timestamp is taken at
// pass start and committed only after every folder succeeded, so a
// failed folder re-enters the same window next pass.
func (d *Driver) Sync(ctx context.Context) (domain.SyncStats, error) {
	var stats domain.SyncStats

	var since time.Time
	cp, err := d.checkpoints.Get(ctx, SyncType)
	switch {
	case err == nil:
		since = cp.LastSync
	case errors.Is(err, domain.ErrNotFound):
		// First run: full mailbox.
	default:
		return stats, fmt.Errorf("loading checkpoint: %w", err)
	}

	passStart := time.Now().UTC()

	var folderErrs []error
	for _, folder := range d.folders {
		messages, err := d.client.SearchSince(ctx, folder, since)
		if err != nil {
			// Folders reconcile independently: one unreachable folder
			// must not stop the others from being indexed.
			logger.Error("mailbox: folder %s: %v", folder, err)
			stats.Errors++
			folderErrs = append(folderErrs, fmt.Errorf("folder %s: %w", folder, err))
			continue
		}
		logger.Info("mailbox: %s has %d messages since %s", folder, len(messages), since.Format(time.RFC3339))

		for i := range messages {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			stats.Merge(d.processMessage(ctx, &messages[i]))
		}
	}

	if len(folderErrs) > 0 {
		// The window was not fully covered; keep the old checkpoint so
		// every failed folder re-enters it next pass.
		return stats, errors.Join(folderErrs...)
	}

	if err := d.checkpoints.Save(ctx, domain.Checkpoint{
		SyncType: SyncType,
		LastSync: passStart,
	}); err != nil {
		return stats, fmt.Errorf("saving checkpoint: %w", err)
	}
	return stats, nil
}

// processMessage indexes the body and every supported attachment of one
// message.
func (d *Driver) processMessage(ctx context.Context, msg *driven.MailMessage) domain.SyncStats {
	var stats domain.SyncStats

	bodyID := bodySourceID(msg.UID)
	meta := domain.ChunkMeta{
		MailFrom:    msg.From,
		MailTo:      msg.To,
		MailSubject: msg.Subject,
		MailDate:    msg.Date,
	}

	// Delivered mail never changes; an indexed body means the whole
	// message was already processed.
	indexed, err := d.indexer.HasDocument(ctx, bodyID)
	if err != nil {
		logger.Warn("mailbox: checking %s: %v", bodyID, err)
		stats.Errors++
		return stats
	}
	if indexed {
		stats.Skipped++
		return stats
	}

	text, err := d.extractBody(ctx, msg)
	if err != nil {
		logger.Warn("mailbox: extracting body of uid=%s: %v", msg.UID, err)
		stats.Errors++
	} else if text != "" {
		if _, err := d.indexer.IndexDocument(ctx, domain.SourceMailBody, bodyID, text, msg.Date, meta); err != nil {
			logger.Warn("mailbox: indexing body of uid=%s: %v", msg.UID, err)
			stats.Errors++
		} else {
			stats.Added++
		}
	}

	for _, att := range msg.Attachments {
		stats.Merge(d.processAttachment(ctx, msg, att, meta))
	}
	return stats
}

// extractBody prefers the HTML part because signature and disclaimer
// stripping need markup structure; the plain part is the fallback.
func (d *Driver) extractBody(ctx context.Context, msg *driven.MailMessage) (string, error) {
	if msg.BodyHTML != "" {
		result, err := d.engine.Extract(ctx, []byte(msg.BodyHTML), ".html")
		if err != nil {
			return "", err
		}
		return result.Text, nil
	}
	if msg.BodyText != "" {
		result, err := d.engine.Extract(ctx, []byte(msg.BodyText), ".txt")
		if err != nil {
			return "", err
		}
		return result.Text, nil
	}
	return "", nil
}

// processAttachment indexes one attachment under its composite identity.
func (d *Driver) processAttachment(ctx context.Context, msg *driven.MailMessage, att driven.MailAttachment, mailMeta domain.ChunkMeta) domain.SyncStats {
	var stats domain.SyncStats

	ext := strings.ToLower(path.Ext(att.Filename))
	if !d.engine.Supported(ext) {
		stats.Skipped++
		return stats
	}
	if int64(len(att.Data)) > d.maxAttachmentBytes {
		logger.Info("mailbox: skipping attachment %q of uid=%s (%d bytes over limit)",
			att.Filename, msg.UID, len(att.Data))
		stats.Skipped++
		return stats
	}

	result, err := d.engine.Extract(ctx, att.Data, ext)
	if err != nil {
		logger.Warn("mailbox: extracting attachment %q of uid=%s: %v", att.Filename, msg.UID, err)
		stats.Errors++
		return stats
	}

	meta := mailMeta
	meta.Filename = att.Filename
	meta.FileType = strings.TrimPrefix(ext, ".")

	attID := attachmentSourceID(msg.UID, att.Filename)
	if result.IsContainer() {
		for _, entry := range result.Entries {
			entryResult, err := d.engine.Extract(ctx, entry.Data, entry.Ext)
			if err != nil {
				stats.Errors++
				continue
			}
			entryMeta := meta
			entryMeta.Filename = path.Base(entry.Path)
			if _, err := d.indexer.IndexDocument(ctx, domain.SourceMailAttachment,
				attID+":"+entry.Path, entryResult.Text, msg.Date, entryMeta); err != nil {
				stats.Errors++
				continue
			}
			stats.Added++
		}
		return stats
	}

	if _, err := d.indexer.IndexDocument(ctx, domain.SourceMailAttachment, attID, result.Text, msg.Date, meta); err != nil {
		logger.Warn("mailbox: indexing attachment %q of uid=%s: %v", att.Filename, msg.UID, err)
		stats.Errors++
		return stats
	}
	stats.Added++
	return stats
}

// bodySourceID is the index identity of a message body.
func bodySourceID(uid string) string {
	return "mail:" + uid + ":body"
}

// attachmentSourceID is the index identity of one attachment.
func attachmentSourceID(uid, filename string) string {
	return "mail:" + uid + ":att:" + filename
}
