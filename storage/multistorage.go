package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/issuance-factory/interfaces"
)

// MultiStateBackend replicates state across several backends. Commits go to
// every available backend; fetches are served by the first backend that has
// the key.
type MultiStateBackend struct {
	backends []interfaces.StateBackend
	log      *slog.Logger
}

// NewMultiStateBackend creates a new replicated backend.
func NewMultiStateBackend(backends []interfaces.StateBackend, logger *slog.Logger) *MultiStateBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStateBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch returns the value from the first available backend holding key. It
// reports ErrStateNotFound only if every backend that answered lacked the key.
func (m *MultiStateBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	var errs []error
	notFound := 0

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()), slog.String("key", key))
			continue
		}

		data, err := backend.Fetch(ctx, key)
		if err == nil {
			m.log.Debug("Fetched state",
				slog.String("backend_name", backend.Name()),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if errors.Is(err, interfaces.ErrStateNotFound) {
			notFound++
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("key", key),
			"err", err)
	}

	if notFound > 0 && notFound == len(errs) {
		return nil, interfaces.ErrStateNotFound
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no backend available to fetch %s", interfaces.ErrBackendUnavailable, key)
	}

	m.log.Error("All backends failed to fetch state",
		slog.String("key", key),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("%w: all backends failed to fetch %s: %w", interfaces.ErrBackendUnavailable, key, errors.Join(errs...))
}

// Commit applies changes to every available backend. It succeeds if at least
// one backend accepted the changes.
func (m *MultiStateBackend) Commit(ctx context.Context, changes []interfaces.StateChange) error {
	start := time.Now()
	var errs []error
	committed := 0

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Commit(ctx, changes); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to commit to backend", slog.String("backend_name", backend.Name()), "err", err)
			continue
		}
		committed++
	}

	if committed == 0 {
		if len(errs) == 0 {
			return fmt.Errorf("%w: no backend available to commit", interfaces.ErrBackendUnavailable)
		}
		m.log.Error("All backends failed to commit state",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("%w: all backends failed to commit: %w", interfaces.ErrBackendUnavailable, errors.Join(errs...))
	}

	m.log.Debug("Committed state",
		slog.Int("backends", committed),
		slog.Int("changes", len(changes)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Available checks if any backend is available.
func (m *MultiStateBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiStateBackend) Name() string {
	return "multi-state"
}

// LocationURI combines the location URIs of all backends.
func (m *MultiStateBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
