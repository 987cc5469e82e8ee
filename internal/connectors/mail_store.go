package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"studentoffer/internal"
	"studentoffer/internal/storage"
)

type MailStoreService struct {
	db         *storage.DB
	rawMailDir string
}

func NewMailStoreService(db *storage.DB, rawMailDir string) *MailStoreService {
	return &MailStoreService{db: db, rawMailDir: rawMailDir}
}

// Store keeps the raw message as <sha256>.eml and registers it for intake.
// A message seen before keeps its intake status.
func (s *MailStoreService) Store(msg internal.FetchedMailMessage) (internal.IntakeRow, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.IntakeRow{}, err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.IntakeRow{}, err
		}
	}

	return s.db.UpsertIntakeMessage(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, internal.IntakeFetched)
}
