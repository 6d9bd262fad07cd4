package xid

import "github.com/google/uuid"

// New returns a random UUIDv4 string used as a row identifier.
func New() string {
	return uuid.NewString()
}
