package identity

import (
	"time"

	"bsso/cmd/identity/ids"
)

// NewULID returns a new ULID (26-char string) used as a link row id.
func NewULID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
