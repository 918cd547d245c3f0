package metadata

import (
	"context"
)

// Repository is a durable string-keyed byte store. The offline record blob
// and the persisted session both live here.
type Repository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes all pairs or none of them.
	SetMany(ctx context.Context, values map[string][]byte) error
	// DeleteMany removes all keys or none of them. Missing keys are ignored.
	DeleteMany(ctx context.Context, keys ...string) error
}
