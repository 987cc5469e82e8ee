package listener

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentoffer/internal"
	"studentoffer/internal/config"
	"studentoffer/internal/connectors"
	"studentoffer/internal/storage"
)

type stubConnector struct {
	messages []internal.FetchedMailMessage
}

func (s stubConnector) Provider() string { return "imap" }

func (s stubConnector) FetchInbox(context.Context, connectors.Query) ([]internal.FetchedMailMessage, error) {
	return s.messages, nil
}

const applicationMail = "From: agent@example.com\r\n" +
	"Subject: New student application\r\n" +
	"Message-ID: <app-7@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"offer_id: OFFER_MAIL_7\r\n" +
	"student_info:\r\n" +
	"  first_name: Ana\r\n" +
	"  email: ana@example.com\r\n"

func TestRunCycle(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "offers.db"))
	require.NoError(t, err)
	defer db.Close()

	cfg := config.Config{
		RawMailDir:         filepath.Join(tmp, "raw"),
		OutputDir:          filepath.Join(tmp, "out"),
		IntakeProvider:     "imap",
		IntakeLabel:        "INBOX",
		IntakeFetchMax:     10,
		IntakeProcessBatch: 10,
		IntakeAutoExport:   true,
		IntakeFixYAML:      true,
	}
	svc := NewService(db, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.connect = func(string) (connectors.MailConnector, error) {
		return stubConnector{messages: []internal.FetchedMailMessage{{
			Provider:   "imap",
			MessageID:  "<app-7@example.com>",
			Subject:    "New student application",
			From:       "agent@example.com",
			ReceivedAt: "2026-10-07T00:00:00Z",
			Raw:        []byte(applicationMail),
		}}}, nil
	}

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Fetched: 1, Stored: 1, Processed: 1, Offers: 1}, res)

	row, err := db.MustOffer("OFFER_MAIL_7")
	require.NoError(t, err)
	assert.Equal(t, internal.OfferComposed, row.Status)

	_, err = os.Stat(filepath.Join(cfg.OutputDir, "listener", "offers-review.xlsx"))
	require.NoError(t, err)

	res, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
}

func TestRunCycleUnknownProvider(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "offers.db"))
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, config.Config{IntakeProvider: "pop3"}, nil)
	_, err = svc.RunCycle(context.Background())
	assert.Error(t, err)
}
