package connectors

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentoffer/internal"
	"studentoffer/internal/storage"
)

type fakeConnector struct {
	messages []internal.FetchedMailMessage
	queries  []Query
	err      error
}

func (f *fakeConnector) Provider() string { return "fake" }

func (f *fakeConnector) FetchInbox(_ context.Context, q Query) ([]internal.FetchedMailMessage, error) {
	f.queries = append(f.queries, q)
	return f.messages, f.err
}

func TestFetchAndStore(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "offers.db"))
	require.NoError(t, err)
	defer db.Close()

	conn := &fakeConnector{messages: []internal.FetchedMailMessage{
		{Provider: "fake", MessageID: "<1@x>", Subject: "Application", From: "agent@example.com", ReceivedAt: "2026-10-01T00:00:00Z", Raw: []byte("Subject: Application\r\n\r\nhi")},
		{Provider: "fake", MessageID: "<2@x>", Subject: "Application 2", From: "agent@example.com", ReceivedAt: "2026-10-01T00:01:00Z", Raw: []byte("Subject: Application 2\r\n\r\nhi")},
	}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewFetchService(db, filepath.Join(tmp, "raw"), conn, log)

	res, err := svc.FetchAndStore(context.Background(), "INBOX", 10)
	require.NoError(t, err)
	assert.Equal(t, FetchResult{Fetched: 2, Stored: 2}, res)
	require.Len(t, conn.queries, 1)
	assert.True(t, conn.queries[0].Since.IsZero())

	rows, err := db.ListIntakeByStatus(internal.IntakeFetched, "", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	_, err = os.Stat(rows[0].RawRef)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "raw", rows[0].Hash+".eml"), rows[0].RawRef)

	require.NoError(t, db.UpdateIntakeStatus(rows[0].ID, internal.IntakeProcessed))
	_, err = svc.FetchAndStore(context.Background(), "INBOX", 10)
	require.NoError(t, err)
	require.Len(t, conn.queries, 2)
	assert.WithinDuration(t, time.Now(), conn.queries[1].Since, time.Minute)

	rows, err = db.ListIntakeByStatus(internal.IntakeFetched, "", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFetchAndStoreConnectorError(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "offers.db"))
	require.NoError(t, err)
	defer db.Close()

	svc := NewFetchService(db, filepath.Join(tmp, "raw"), &fakeConnector{err: errors.New("imap down")}, nil)
	_, err = svc.FetchAndStore(context.Background(), "INBOX", 10)
	require.Error(t, err)

	cursor, err := db.GetMetadata(cursorKey("fake"))
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestQueryWithDefaults(t *testing.T) {
	q := Query{}.WithDefaults()
	assert.Equal(t, "INBOX", q.Label)
	assert.Equal(t, 20, q.Max)

	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	q = Query{Label: "Applications", Max: 5, Since: since}.WithDefaults()
	assert.Equal(t, Query{Label: "Applications", Max: 5, Since: since}, q)
}
