package imap

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentoffer/internal/config"
)

func TestFormatAddresses(t *testing.T) {
	got := formatAddresses([]*imap.Address{
		{PersonalName: "Study Agent", MailboxName: "agent", HostName: "example.com"},
		nil,
		{MailboxName: "admissions", HostName: "example.edu.au"},
	})
	assert.Equal(t, "Study Agent <agent@example.com>, admissions@example.edu.au", got)
	assert.Equal(t, "", formatAddresses(nil))
}

func TestNewConnectorRequiresCredentials(t *testing.T) {
	_, err := NewConnector(config.Config{IMAPHost: "imap.example.com", IMAPUser: "intake"})
	assert.ErrorContains(t, err, "IMAP_PASSWORD")

	c, err := NewConnector(config.Config{IMAPHost: "imap.example.com", IMAPUser: "intake", IMAPPassword: "x", IMAPPort: 993})
	require.NoError(t, err)
	assert.Equal(t, "imap", c.Provider())
	assert.Equal(t, "imap.example.com:993", c.addr)
}

func TestNewest(t *testing.T) {
	assert.Equal(t, []uint32{4, 5}, newest([]uint32{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, []uint32{1, 2}, newest([]uint32{1, 2}, 20))
	assert.Empty(t, newest(nil, 20))
}

func TestToFetched(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	msg := &imap.Message{
		SeqNum: 3,
		Uid:    42,
		Envelope: &imap.Envelope{
			MessageId: "<app-2@agent.example.com>",
			Subject:   "Offer application",
			From:      []*imap.Address{{MailboxName: "agent", HostName: "example.com"}},
		},
		InternalDate: time.Date(2026, 10, 13, 22, 15, 0, 0, time.FixedZone("AEST", 10*3600)),
	}
	got := toFetched(msg, []byte("raw"), now)
	assert.Equal(t, "imap", got.Provider)
	assert.Equal(t, "<app-2@agent.example.com>", got.MessageID)
	assert.Equal(t, "agent@example.com", got.From)
	assert.Equal(t, "2026-10-13T12:15:00Z", got.ReceivedAt)

	got = toFetched(&imap.Message{Uid: 42}, nil, now)
	assert.Equal(t, "imap-42", got.MessageID)
	assert.Equal(t, "2026-10-14T00:00:00Z", got.ReceivedAt)
}
