package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound reports that no value is stored under a key.
var ErrNotFound = errors.New("key not found")

// Store is the durable key-value layer backing conversation history
// and language preferences. Values are opaque byte payloads.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
