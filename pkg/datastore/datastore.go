package datastore

import (
	"context"
	"errors"
	"fmt"
)

const (
	PreferencesFile = "preferences.json"
	ChecksumFile    = "checksum.md5"
	DataFile        = "data.json"
)

var ErrNotFound = errors.New("blob not found")

// Store persists named byte blobs. Put must replace the previous value atomically.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

// ExistsAll reports whether every named blob is present
func ExistsAll(ctx context.Context, store Store, names ...string) (bool, error) {
	for _, name := range names {
		exists, err := store.Exists(ctx, name)
		if err != nil {
			return false, fmt.Errorf("check %s: %w", name, err)
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}
