package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"studentoffer/internal"
	"studentoffer/internal/config"
	"studentoffer/internal/connectors"
)

const provider = "imap"

type Connector struct {
	addr       string
	serverName string
	secure     bool
	user       string
	password   string
	markSeen   bool
	now        func() time.Time
}

func NewConnector(cfg config.Config) (*Connector, error) {
	required := []struct{ name, value string }{
		{"IMAP_HOST", cfg.IMAPHost},
		{"IMAP_USER", cfg.IMAPUser},
		{"IMAP_PASSWORD", cfg.IMAPPassword},
	}
	for _, r := range required {
		if err := cfg.Require(r.name, r.value); err != nil {
			return nil, err
		}
	}
	return &Connector{
		addr:       fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort),
		serverName: cfg.IMAPHost,
		secure:     cfg.IMAPSecure,
		user:       cfg.IMAPUser,
		password:   cfg.IMAPPassword,
		markSeen:   cfg.IMAPMarkSeen,
		now:        time.Now,
	}, nil
}

func (c *Connector) Provider() string { return provider }

// FetchInbox returns the newest q.Max unseen messages of the mailbox.
// IMAP SINCE has day granularity, so a cursor can return messages already
// stored; the mail store dedupes them.
func (c *Connector) FetchInbox(ctx context.Context, q connectors.Query) ([]internal.FetchedMailMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q = q.WithDefaults()

	client, err := c.open(q.Label)
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	seqset, err := search(client, q)
	if err != nil || seqset == nil {
		return nil, err
	}

	// PEEK leaves \Seen alone; flags are only touched below when configured
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, q.Max)
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.Fetch(seqset, items, messages) }()

	out, fetched, readErr := c.collect(ctx, messages, section)
	if err := <-fetchDone; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// one command at a time per connection, so flags wait for the fetch to drain
	if c.markSeen && !fetched.Empty() {
		op := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := client.Store(fetched, op, []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, fmt.Errorf("imap mark seen: %w", err)
		}
	}
	return out, nil
}

func (c *Connector) open(mailbox string) (*imapclient.Client, error) {
	var client *imapclient.Client
	var err error
	if c.secure {
		client, err = imapclient.DialTLS(c.addr, &tls.Config{ServerName: c.serverName})
	} else {
		client, err = imapclient.Dial(c.addr)
	}
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", c.addr, err)
	}
	if err := client.Login(c.user, c.password); err != nil {
		_ = client.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := client.Select(mailbox, false); err != nil {
		_ = client.Logout()
		return nil, fmt.Errorf("imap select %s: %w", mailbox, err)
	}
	return client, nil
}

// search returns nil when nothing matches.
func search(client *imapclient.Client, q connectors.Query) (*imap.SeqSet, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if !q.Since.IsZero() {
		criteria.Since = q.Since
	}
	ids, err := client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	ids = newest(ids, q.Max)
	if len(ids) == 0 {
		return nil, nil
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	return seqset, nil
}

func newest(ids []uint32, max int) []uint32 {
	if max > 0 && len(ids) > max {
		return ids[len(ids)-max:]
	}
	return ids
}

// collect always drains messages so the fetch goroutine can finish; the
// first read error is returned after the channel closes.
func (c *Connector) collect(ctx context.Context, messages <-chan *imap.Message, section *imap.BodySectionName) ([]internal.FetchedMailMessage, *imap.SeqSet, error) {
	var out []internal.FetchedMailMessage
	fetched := new(imap.SeqSet)
	var firstErr error
	for msg := range messages {
		if msg == nil || firstErr != nil || ctx.Err() != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			firstErr = fmt.Errorf("imap read body %d: %w", msg.SeqNum, err)
			continue
		}
		out = append(out, toFetched(msg, raw, c.now()))
		fetched.AddNum(msg.SeqNum)
	}
	return out, fetched, firstErr
}

func toFetched(msg *imap.Message, raw []byte, now time.Time) internal.FetchedMailMessage {
	m := internal.FetchedMailMessage{Provider: provider, Raw: raw}
	if env := msg.Envelope; env != nil {
		m.MessageID = env.MessageId
		m.Subject = env.Subject
		m.From = formatAddresses(env.From)
	}
	if m.MessageID == "" {
		m.MessageID = fmt.Sprintf("imap-%d", msg.Uid)
	}
	received := now
	if !msg.InternalDate.IsZero() {
		received = msg.InternalDate
	}
	m.ReceivedAt = received.UTC().Format(time.RFC3339)
	return m
}

func formatAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := strings.Trim(a.MailboxName+"@"+a.HostName, "@")
		if a.PersonalName != "" {
			email = fmt.Sprintf("%s <%s>", a.PersonalName, email)
		}
		parts = append(parts, email)
	}
	return strings.Join(parts, ", ")
}
