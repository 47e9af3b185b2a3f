package imap

import (
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

const mailboxName = "INBOX"

// Session is an authenticated connection to one remote mailbox. It yields the
// mailbox's raw messages in reverse-chronological order and owns the
// connection's lifetime.
type Session struct {
	client *client.Client
}

// Dialer opens mailbox sessions. Timeout bounds connection establishment only;
// once the message stream is open no per-message timeout is imposed.
type Dialer struct {
	Timeout time.Duration
	UseTLS  bool
}

// Open connects, authenticates, and selects the inbox. The secret is held in
// memory only and never logged.
func (d *Dialer) Open(host string, port int, address, secret string) (*Session, error) {
	timeout := d.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	c, err := ConnectToIMAP(fmt.Sprintf("%s:%d", host, port), d.UseTLS, timeout)
	if err != nil {
		return nil, err
	}

	if err := Login(c, address, secret); err != nil {
		// Best effort; the server may already have dropped us.
		_ = c.Logout()
		return nil, err
	}

	if _, err := c.Select(mailboxName, true); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to select %s: %w", mailboxName, err)
	}

	return &Session{client: c}, nil
}

// Messages fetches every message in the mailbox with envelope, flags, and full
// body, newest first. There is no client-side limit: each run re-examines all
// retrievable messages so the store eventually converges on a full copy.
func (s *Session) Messages() ([]*imap.Message, error) {
	mbox, err := s.client.Select(mailboxName, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", mailboxName, err)
	}

	if mbox.Messages == 0 {
		return []*imap.Message{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(1, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
		imap.FetchInternalDate,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)

	go func() {
		done <- s.client.Fetch(seqSet, items, messages)
	}()

	result := make([]*imap.Message, 0, mbox.Messages)
	for msg := range messages {
		result = append(result, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// Servers deliver in ascending sequence order, oldest first.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return result, nil
}

// Probe fetches at most one message to validate the credentials without a
// full run. An empty mailbox is a successful probe.
func (s *Session) Probe() error {
	mbox, err := s.client.Select(mailboxName, true)
	if err != nil {
		return fmt.Errorf("failed to select %s: %w", mailboxName, err)
	}

	if mbox.Messages == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(mbox.Messages)

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.client.Fetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}, messages)
	}()

	for range messages {
	}

	if err := <-done; err != nil {
		return fmt.Errorf("failed to fetch probe message: %w", err)
	}

	return nil
}

// Close logs out and closes the connection.
func (s *Session) Close() error {
	return s.client.Logout()
}
