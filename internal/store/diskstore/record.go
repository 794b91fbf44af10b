package diskstore

import (
	"encoding/json"
	"time"

	"github.com/svoer/FhirConverter-sub001/internal/store"
)

// record is the persisted form of a cache entry. Timestamps are epoch
// milliseconds so records stay readable across runtimes.
type record struct {
	Payload      []byte `json:"payload"`
	CreatedAt    int64  `json:"createdAt"`
	ExpiresAt    int64  `json:"expiresAt"`
	LastAccessed int64  `json:"lastAccessed"`
	AccessCount  int64  `json:"accessCount"`
}

func encodeRecord(e *store.Entry) ([]byte, error) {
	return json.Marshal(record{
		Payload:      e.Payload,
		CreatedAt:    e.CreatedAt.UnixMilli(),
		ExpiresAt:    e.ExpiresAt.UnixMilli(),
		LastAccessed: e.LastAccessed.UnixMilli(),
		AccessCount:  e.AccessCount,
	})
}

func decodeRecord(key string, data []byte) (*store.Entry, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &store.Entry{
		Key:          key,
		Payload:      r.Payload,
		CreatedAt:    time.UnixMilli(r.CreatedAt),
		ExpiresAt:    time.UnixMilli(r.ExpiresAt),
		LastAccessed: time.UnixMilli(r.LastAccessed),
		AccessCount:  r.AccessCount,
	}, nil
}
