package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// stateFingerprint is marshalled with a fixed field order so the hash is
// deterministic across processes.
type stateFingerprint struct {
	Category       string `json:"category"`
	CollectionName string `json:"collection_name"`
	CreatedAt      string `json:"created_at"`
	NumChunks      int    `json:"num_chunks"`
	Prompt         string `json:"prompt"`
}

// StateHash fingerprints the knowledge state a cached answer was produced
// under: the active category and collection, the collection's size and
// creation time, and the instruction template. Any change to the retrievable
// knowledge or the prompt yields a new hash, invalidating prior cache
// entries for relevance.
func StateHash(category, collectionName string, numChunks int, createdAt time.Time, prompt string) string {
	created := ""
	if !createdAt.IsZero() {
		created = createdAt.UTC().Format(time.RFC3339Nano)
	}
	data, _ := json.Marshal(stateFingerprint{
		Category:       category,
		CollectionName: collectionName,
		CreatedAt:      created,
		NumChunks:      numChunks,
		Prompt:         prompt,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
