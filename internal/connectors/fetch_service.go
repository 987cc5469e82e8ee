package connectors

import (
	"context"
	"log/slog"
	"time"

	"studentoffer/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
	log       *slog.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, log *slog.Logger) *FetchService {
	if log == nil {
		log = slog.Default()
	}
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		log:       log,
	}
}

func cursorKey(provider string) string {
	return "intake." + provider + ".last_fetch"
}

// FetchAndStore pulls messages newer than the provider's last successful
// fetch. The cursor only moves once every message has been stored.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	started := time.Now().UTC()
	q := Query{Label: label, Max: max}

	key := cursorKey(s.connector.Provider())
	if last, err := s.db.GetMetadata(key); err != nil {
		return FetchResult{}, err
	} else if last != nil {
		if parsed, err := time.Parse(time.RFC3339, *last); err == nil {
			q.Since = parsed
		}
	}

	messages, err := s.connector.FetchInbox(ctx, q)
	if err != nil {
		return FetchResult{}, err
	}

	stored := 0
	for _, msg := range messages {
		row, err := s.store.Store(msg)
		if err != nil {
			return FetchResult{Fetched: len(messages), Stored: stored}, err
		}
		s.log.Debug("intake stored", slog.Int("intake_id", row.ID), slog.String("message_id", msg.MessageID))
		stored++
	}

	if err := s.db.SetMetadata(key, started.Format(time.RFC3339)); err != nil {
		return FetchResult{Fetched: len(messages), Stored: stored}, err
	}
	s.log.Info("mail fetched", slog.String("provider", s.connector.Provider()), slog.Int("fetched", len(messages)), slog.Int("stored", stored))
	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
