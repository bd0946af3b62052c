package domain

import "time"

// ImportReceipt remembers a completed CSV import under the client's
// idempotency key. ContentHash identifies the uploaded file so a retry can be
// told apart from a different upload reusing the key.
type ImportReceipt struct {
	Key         string
	ContentHash string
	Imported    int
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

func (r ImportReceipt) Matches(hash string) bool { return r.ContentHash == hash }
