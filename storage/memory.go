package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ruteri/issuance-factory/interfaces"
)

// MemoryBackend keeps state in process memory. It is lost on restart.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
	name   string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(name string) *MemoryBackend {
	if name == "" {
		name = "default"
	}
	return &MemoryBackend{
		values: make(map[string][]byte),
		name:   name,
	}
}

func (b *MemoryBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.values[key]
	if !ok {
		return nil, interfaces.ErrStateNotFound
	}
	return cloneBytes(value), nil
}

func (b *MemoryBackend) Commit(ctx context.Context, changes []interfaces.StateChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	applyChanges(b.values, changes)
	return nil
}

func (b *MemoryBackend) Available(ctx context.Context) bool {
	return true
}

func (b *MemoryBackend) Name() string {
	return fmt.Sprintf("memory-%s", b.name)
}

func (b *MemoryBackend) LocationURI() string {
	return fmt.Sprintf("memory://%s", b.name)
}

// applyChanges applies changes to a key-value map in order.
func applyChanges(values map[string][]byte, changes []interfaces.StateChange) {
	for _, change := range changes {
		if change.Delete {
			delete(values, change.Key)
			continue
		}
		values[change.Key] = cloneBytes(change.Value)
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
