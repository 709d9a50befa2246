package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ruteri/issuance-factory/interfaces"
)

// FileBackend keeps the state in a single JSON document under baseDir.
// Commits write a temporary file and rename it over the document.
type FileBackend struct {
	mu          sync.Mutex
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file backend rooted at baseDir, creating the
// directory if it does not exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

func (b *FileBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.readDocument()
	if err != nil {
		return nil, err
	}
	return lookup(values, key)
}

func (b *FileBackend) Commit(ctx context.Context, changes []interfaces.StateChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.readDocument()
	if err != nil {
		return err
	}
	applyChanges(values, changes)

	data, err := encodeStateDocument(values)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.baseDir, stateDocumentName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpPath, b.documentPath()); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	b.log.Debug("Committed state to file",
		slog.String("path", b.documentPath()),
		slog.Int("changes", len(changes)),
		slog.Int("size", len(data)))

	return nil
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) documentPath() string {
	return filepath.Join(b.baseDir, stateDocumentName)
}

// readDocument returns the current state, or an empty one if nothing was committed yet.
func (b *FileBackend) readDocument() (map[string][]byte, error) {
	data, err := os.ReadFile(b.documentPath())
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string][]byte), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return decodeStateDocument(data)
}
