// Package imap adapts an IMAP mailbox to the mailbox port, fetching
// messages and decomposing them into body parts and attachments.
package imap

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/ports/driven"
	"github.com/custodia-labs/docpipe/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.MailboxClient = (*Client)(nil)

// fetchWindow is how many messages are in flight from one fetch.
const fetchWindow = 10

// Client is an authenticated IMAP session.
type Client struct {
	conn *client.Client
}

// Dial connects to the IMAP server over TLS and authenticates.
func Dial(addr, username, password string) (*Client, error) {
	if addr == "" || username == "" {
		return nil, fmt.Errorf("%w: imap address and username are required", domain.ErrInvalidInput)
	}

	conn, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to %s: %v", domain.ErrSourceUnavailable, addr, err)
	}
	if err := conn.Login(username, password); err != nil {
		conn.Logout() //nolint:errcheck
		return nil, fmt.Errorf("%w: authenticating %s: %v", domain.ErrSourceUnavailable, username, err)
	}
	return &Client{conn: conn}, nil
}

// Close logs out and terminates the session.
func (c *Client) Close() error {
	return c.conn.Logout()
}

// SearchSince returns every message in the folder received on or after
// since. Messages that cannot be parsed are logged and skipped rather
// than failing the whole folder.
func (c *Client) SearchSince(ctx context.Context, folder string, since time.Time) ([]driven.MailMessage, error) {
	if _, err := c.conn.Select(folder, true); err != nil {
		return nil, fmt.Errorf("%w: selecting folder %s: %v", domain.ErrSourceUnavailable, folder, err)
	}

	criteria := goimap.NewSearchCriteria()
	if !since.IsZero() {
		criteria.Since = since
	} else {
		// An empty criteria set is rejected by some servers.
		criteria.WithoutFlags = []string{goimap.DeletedFlag}
	}

	uids, err := c.conn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: searching folder %s: %v", domain.ErrSourceUnavailable, folder, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(goimap.SeqSet)
	seqset.AddNum(uids...)

	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{goimap.FetchUid, goimap.FetchEnvelope, section.FetchItem()}

	fetched := make(chan *goimap.Message, fetchWindow)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.UidFetch(seqset, items, fetched)
	}()

	var messages []driven.MailMessage
	for raw := range fetched {
		select {
		case <-ctx.Done():
			// Drain so the fetch goroutine can finish.
			for range fetched { //nolint:revive // intentional drain
			}
			<-done
			return nil, ctx.Err()
		default:
		}

		msg, err := parseMessage(raw, folder, section)
		if err != nil {
			logger.Warn("imap: skipping unparseable message uid=%d in %s: %v", raw.Uid, folder, err)
			continue
		}
		messages = append(messages, *msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: fetching from %s: %v", domain.ErrSourceUnavailable, folder, err)
	}
	return messages, nil
}

// parseMessage decomposes one fetched message into header fields, body
// parts and attachments.
func parseMessage(raw *goimap.Message, folder string, section *goimap.BodySectionName) (*driven.MailMessage, error) {
	body := raw.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("no body section")
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("creating mail reader: %w", err)
	}

	msg := &driven.MailMessage{
		UID:    strconv.FormatUint(uint64(raw.Uid), 10),
		Folder: folder,
	}

	msg.Subject, _ = mr.Header.Subject()
	msg.Date, _ = mr.Header.Date()
	msg.From = addressList(mr, "From")
	msg.To = addressList(mr, "To")

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A damaged part should not lose the parts already read.
			logger.Debug("imap: truncated message uid=%s: %v", msg.UID, err)
			break
		}

		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			content, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			contentType, _, _ := header.ContentType()
			switch contentType {
			case "text/html":
				msg.BodyHTML = string(content)
			case "text/plain":
				msg.BodyText = string(content)
			}
		case *mail.AttachmentHeader:
			filename, err := header.Filename()
			if err != nil || filename == "" {
				continue
			}
			data, err := io.ReadAll(part.Body)
			if err != nil {
				logger.Debug("imap: dropping attachment %q of uid=%s: %v", filename, msg.UID, err)
				continue
			}
			msg.Attachments = append(msg.Attachments, driven.MailAttachment{
				Filename: filename,
				Data:     data,
			})
		}
	}

	return msg, nil
}

// addressList renders a header address list as a comma-joined string.
func addressList(mr *mail.Reader, field string) string {
	addrs, err := mr.Header.AddressList(field)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.Address)
	}
	return strings.Join(parts, ", ")
}
