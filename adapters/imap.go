package adapters

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"unisoncomms/utils"
)

// IMAPClient wraps a single authenticated IMAP session. Sessions are
// short-lived: dial, fetch, logout.
type IMAPClient struct {
	client   *client.Client
	username string
}

// NewIMAPClient dials the server over TLS with a connect timeout and logs in.
func NewIMAPClient(server string, port int, username, password string, timeout time.Duration) (*IMAPClient, error) {
	dialer := &net.Dialer{Timeout: timeout}
	c, err := client.DialWithDialerTLS(dialer, fmt.Sprintf("%s:%d", server, port), nil)
	if err != nil {
		return nil, fmt.Errorf("connection error: %v", err)
	}
	c.Timeout = timeout

	if err := c.Login(username, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("login error: %v", err)
	}

	return &IMAPClient{client: c, username: username}, nil
}

// Close closes the IMAP connection
func (c *IMAPClient) Close() error {
	return c.client.Logout()
}

// FetchRecent retrieves the most recent messages from INBOX, oldest first,
// bounded to limit.
func (c *IMAPClient) FetchRecent(limit uint32) ([]EmailMessage, error) {
	mbox, err := c.client.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("error selecting INBOX: %v", err)
	}

	if mbox.Messages == 0 {
		return []EmailMessage{}, nil
	}

	from := uint32(1)
	if mbox.Messages > limit {
		from = mbox.Messages - limit + 1
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, limit)
	done := make(chan error, 1)
	go func() {
		done <- c.client.Fetch(seqSet, items, messages)
	}()

	var out []EmailMessage
	for msg := range messages {
		rec, err := c.processMessage(msg, section)
		if err != nil {
			utils.Log.Warn("skipping message %d: %v", msg.Uid, err)
			continue
		}
		out = append(out, rec)
	}

	if err := <-done; err != nil {
		return out, fmt.Errorf("error during fetch: %v", err)
	}

	return out, nil
}

func (c *IMAPClient) processMessage(msg *imap.Message, section *imap.BodySectionName) (EmailMessage, error) {
	rec := EmailMessage{UID: msg.Uid}

	for _, flag := range msg.Flags {
		if flag == imap.SeenFlag {
			rec.Seen = true
		}
	}

	if msg.Envelope != nil {
		rec.Subject = msg.Envelope.Subject
		rec.Date = msg.Envelope.Date
		rec.MessageID = msg.Envelope.MessageId

		if len(msg.Envelope.From) > 0 && msg.Envelope.From[0] != nil {
			rec.From = msg.Envelope.From[0].Address()
		}
		for _, addr := range msg.Envelope.To {
			if addr != nil {
				rec.To = append(rec.To, addr.Address())
			}
		}
	}

	r := msg.GetBody(section)
	if r == nil {
		return rec, nil
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return rec, fmt.Errorf("error reading body: %v", err)
	}

	m, err := mail.ReadMessage(bytes.NewReader(body))
	if err != nil {
		return rec, fmt.Errorf("error parsing message: %v", err)
	}

	contentType := m.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err == nil && strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(m.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				utils.Log.Warn("error reading message part: %v", err)
				break
			}

			partData, err := io.ReadAll(p)
			if err != nil {
				continue
			}

			partType := p.Header.Get("Content-Type")
			switch {
			case strings.Contains(partType, "text/plain"):
				rec.TextBody = string(partData)
			case strings.Contains(partType, "text/html"):
				rec.HTMLBody = string(partData)
			}
		}
	} else {
		bodyData, err := io.ReadAll(m.Body)
		if err == nil {
			rec.TextBody = string(bodyData)
		}
	}

	return rec, nil
}
