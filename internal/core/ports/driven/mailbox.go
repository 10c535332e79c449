package driven

import (
	"context"
	"time"
)

// MailAttachment is one file attached to a mailbox message.
type MailAttachment struct {
	Filename string
	Data     []byte
}

// MailMessage is one message fetched from the mailbox.
type MailMessage struct {
	// UID is the provider-assigned message identity, stable within a folder.
	UID string

	// Folder is the mailbox folder the message was fetched from.
	Folder string

	From    string
	To      string
	Subject string
	Date    time.Time

	// BodyHTML is the HTML body part, if present. Preferred for
	// extraction because signature and disclaimer stripping operate on
	// markup structure.
	BodyHTML string

	// BodyText is the plain-text body part, if present.
	BodyText string

	Attachments []MailAttachment
}

// MailboxClient is the boundary to the IMAP mailbox.
type MailboxClient interface {
	// SearchSince returns all messages in the folder received on or after
	// since. A zero since requests the full folder.
	SearchSince(ctx context.Context, folder string, since time.Time) ([]MailMessage, error)

	// Close terminates the mailbox session.
	Close() error
}
