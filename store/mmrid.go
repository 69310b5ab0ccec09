package store

import "github.com/google/uuid"

// NewID returns a fresh UUID suitable for an MMR or IMT's id when the
// caller supplies none.
func NewID() string {
	return uuid.NewString()
}
