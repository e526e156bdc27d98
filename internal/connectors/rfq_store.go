package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"procure/internal"
	"procure/internal/storage"
)

// RFQStoreService lands fetched messages on disk and in the audit store.
// Raw bytes are kept under their content hash so the same message fetched
// twice occupies one file.
type RFQStoreService struct {
	db        *storage.DB
	rawRFQDir string
}

func NewRFQStoreService(db *storage.DB, rawRFQDir string) *RFQStoreService {
	return &RFQStoreService{db: db, rawRFQDir: rawRFQDir}
}

func (s *RFQStoreService) Store(msg internal.FetchedRFQMessage) (internal.RFQRow, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawRFQDir, 0o755); err != nil {
		return internal.RFQRow{}, err
	}

	rawPath := filepath.Join(s.rawRFQDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.RFQRow{}, err
		}
	}

	return s.db.UpsertRFQ(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, "fetched")
}
