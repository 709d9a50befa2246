package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ruteri/issuance-factory/interfaces"
)

const stateBucket = "factory_state"

// BoltBackend keeps state in a BoltDB bucket. Each commit is one bbolt
// read-write transaction.
type BoltBackend struct {
	db          *bbolt.DB
	path        string
	log         *slog.Logger
	locationURI string
}

// NewBoltBackend opens (or creates) the database at path.
func NewBoltBackend(path string, log *slog.Logger) (*BoltBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(stateBucket)); err != nil {
			return fmt.Errorf("create state bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltBackend{
		db:          db,
		path:        cleanPath,
		log:         log,
		locationURI: fmt.Sprintf("bolt://%s", cleanPath),
	}, nil
}

// Close closes the underlying database.
func (b *BoltBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *BoltBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket is missing")
		}
		stored := bucket.Get([]byte(key))
		if stored == nil {
			return interfaces.ErrStateNotFound
		}
		// Values are only valid for the life of the transaction.
		value = cloneBytes(stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *BoltBackend) Commit(ctx context.Context, changes []interfaces.StateChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket is missing")
		}
		for _, change := range changes {
			if change.Delete {
				if err := bucket.Delete([]byte(change.Key)); err != nil {
					return fmt.Errorf("delete %s: %w", change.Key, err)
				}
				continue
			}
			if err := bucket.Put([]byte(change.Key), change.Value); err != nil {
				return fmt.Errorf("put %s: %w", change.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.log.Debug("Committed state to bolt", slog.String("path", b.path), slog.Int("changes", len(changes)))
	return nil
}

func (b *BoltBackend) Available(ctx context.Context) bool {
	return b.db != nil
}

func (b *BoltBackend) Name() string {
	return fmt.Sprintf("bolt-%s", filepath.Base(b.path))
}

func (b *BoltBackend) LocationURI() string {
	return b.locationURI
}
