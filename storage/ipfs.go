package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/ruteri/issuance-factory/interfaces"
)

// IPFSBackend keeps the state document in the mutable file system (MFS) of an
// IPFS node. Each commit replaces the document with one files/write call.
type IPFSBackend struct {
	mu          sync.Mutex
	shell       *shell.Shell
	apiAddr     string
	docPath     string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a backend talking to the IPFS API at apiAddr
// (host:port). dir is the MFS directory holding the state document.
func NewIPFSBackend(apiAddr, dir string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	if apiAddr == "" {
		return nil, fmt.Errorf("%w: ipfs API address is required", interfaces.ErrInvalidLocationURI)
	}

	dir = "/" + strings.Trim(dir, "/")
	sh := shell.NewShell(apiAddr)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	return &IPFSBackend{
		shell:       sh,
		apiAddr:     apiAddr,
		docPath:     path.Join(dir, stateDocumentName),
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s", apiAddr, dir),
	}, nil
}

func (b *IPFSBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.readDocument(ctx)
	if err != nil {
		return nil, err
	}
	return lookup(values, key)
}

func (b *IPFSBackend) Commit(ctx context.Context, changes []interfaces.StateChange) error {
	start := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.readDocument(ctx)
	if err != nil {
		return err
	}
	applyChanges(values, changes)

	data, err := encodeStateDocument(values)
	if err != nil {
		return err
	}

	err = b.shell.FilesWrite(ctx, b.docPath, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		b.log.Error("Failed to write state to IPFS", slog.String("path", b.docPath), "err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Committed state to IPFS",
		slog.String("path", b.docPath),
		slog.Int("changes", len(changes)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

func (b *IPFSBackend) Name() string {
	return "ipfs-" + b.apiAddr
}

func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

// readDocument returns the current state, or an empty one if the document does
// not exist yet.
func (b *IPFSBackend) readDocument(ctx context.Context) (map[string][]byte, error) {
	reader, err := b.shell.FilesRead(ctx, b.docPath)
	if err != nil {
		if isIPFSNotFound(err) {
			return make(map[string][]byte), nil
		}
		b.log.Error("Failed to read state from IPFS", slog.String("path", b.docPath), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return decodeStateDocument(data)
}

func isIPFSNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "file does not exist") || strings.Contains(msg, "no link named")
}
