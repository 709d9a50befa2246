package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ruteri/issuance-factory/interfaces"
)

// StagedBackend buffers commits in memory on top of a durable backend. Reads
// see buffered writes first. Nothing reaches the durable backend until Flush.
//
// A StagedBackend serves a single operation and is not reused afterwards.
type StagedBackend struct {
	mu      sync.Mutex
	durable interfaces.StateBackend
	order   []string
	staged  map[string]interfaces.StateChange
}

// NewStagedBackend creates an empty overlay over durable.
func NewStagedBackend(durable interfaces.StateBackend) *StagedBackend {
	return &StagedBackend{
		durable: durable,
		staged:  make(map[string]interfaces.StateChange),
	}
}

func (s *StagedBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	change, ok := s.staged[key]
	s.mu.Unlock()

	if ok {
		if change.Delete {
			return nil, interfaces.ErrStateNotFound
		}
		return cloneBytes(change.Value), nil
	}
	return s.durable.Fetch(ctx, key)
}

// Commit stages changes. A later change to the same key replaces an earlier one.
func (s *StagedBackend) Commit(ctx context.Context, changes []interfaces.StateChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, change := range changes {
		if _, seen := s.staged[change.Key]; !seen {
			s.order = append(s.order, change.Key)
		}
		change.Value = cloneBytes(change.Value)
		s.staged[change.Key] = change
	}
	return nil
}

// Changes returns the staged changes in first-write order.
func (s *StagedBackend) Changes() []interfaces.StateChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	changes := make([]interfaces.StateChange, 0, len(s.order))
	for _, key := range s.order {
		changes = append(changes, s.staged[key])
	}
	return changes
}

// Flush commits the staged changes to the durable backend in one unit and
// returns the changes that restore the values the keys had before. Flushing
// an empty overlay is a no-op.
func (s *StagedBackend) Flush(ctx context.Context) ([]interfaces.StateChange, error) {
	changes := s.Changes()
	if len(changes) == 0 {
		return nil, nil
	}

	revert := make([]interfaces.StateChange, 0, len(changes))
	for _, change := range changes {
		prior, err := s.durable.Fetch(ctx, change.Key)
		switch {
		case err == nil:
			revert = append(revert, interfaces.StateChange{Key: change.Key, Value: prior})
		case errors.Is(err, interfaces.ErrStateNotFound):
			revert = append(revert, interfaces.StateChange{Key: change.Key, Delete: true})
		default:
			return nil, fmt.Errorf("snapshot %s: %w", change.Key, err)
		}
	}

	if err := s.durable.Commit(ctx, changes); err != nil {
		return nil, err
	}
	return revert, nil
}

func (s *StagedBackend) Available(ctx context.Context) bool {
	return s.durable.Available(ctx)
}

func (s *StagedBackend) Name() string {
	return "staged-" + s.durable.Name()
}

func (s *StagedBackend) LocationURI() string {
	return s.durable.LocationURI()
}
