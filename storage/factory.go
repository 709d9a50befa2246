package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/issuance-factory/common"
	"github.com/ruteri/issuance-factory/interfaces"
)

// StateBackendFactory creates state backends from location URIs and combines
// them into replicated backends.
type StateBackendFactory struct {
	log *slog.Logger
}

// NewStateBackendFactory creates a new factory instance.
func NewStateBackendFactory(logger *slog.Logger) *StateBackendFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateBackendFactory{log: logger}
}

// StateBackendFor creates a state backend from a location URI.
//
// Supported schemes:
//   - memory://name - process memory
//   - file:///path - JSON document in a directory
//   - bolt:///path/state.db - BoltDB file
//   - sqlite:///path/state.db - SQLite file
//   - redis://[:password@]host:port/db?namespace=factory - Redis hash
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-east-1&endpoint=... - S3 object
//   - vault://host:port/mount/path?token=...&tls=false - Vault KV v2 secret
//   - ipfs://host:port/dir?timeout=30s - document in the MFS of an IPFS node
func (sf *StateBackendFactory) StateBackendFor(ctx context.Context, location interfaces.StateBackendLocation) (interfaces.StateBackend, error) {
	sf.log.Debug("Creating state backend", slog.String("scheme", location.Scheme), slog.String("host", location.Host))

	switch strings.ToLower(location.Scheme) {
	case "memory":
		return NewMemoryBackend(location.Host), nil
	case "file":
		path, err := localPath(location)
		if err != nil {
			return nil, err
		}
		return NewFileBackend(path, sf.log)
	case "bolt":
		path, err := localPath(location)
		if err != nil {
			return nil, err
		}
		return NewBoltBackend(path, sf.log)
	case "sqlite":
		path, err := localPath(location)
		if err != nil {
			return nil, err
		}
		return NewSQLiteBackend(path, sf.log)
	case "redis":
		return NewRedisBackend(ctx, location.Raw, sf.log)
	case "s3":
		return sf.createS3Backend(location)
	case "vault":
		return sf.createVaultBackend(location)
	case "ipfs":
		return sf.createIPFSBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend creates a replicated backend from several locations.
// Locations that fail to open are skipped with a warning. Returns an error if
// no backend could be created.
func (sf *StateBackendFactory) CreateMultiBackend(ctx context.Context, locations []interfaces.StateBackendLocation) (interfaces.StateBackend, error) {
	backends := make([]interfaces.StateBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StateBackendFor(ctx, location)
		if err != nil {
			sf.log.Warn("Failed to create state backend",
				"err", err,
				slog.String("scheme", location.Scheme),
				slog.String("host", location.Host))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid state backends created")
	}
	if len(backends) == 1 {
		return backends[0], nil
	}

	return NewMultiStateBackend(backends, sf.log), nil
}

// createS3Backend parses s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=..&endpoint=..
func (sf *StateBackendFactory) createS3Backend(location interfaces.StateBackendLocation) (interfaces.StateBackend, error) {
	if location.Host == "" {
		return nil, fmt.Errorf("%w: s3 bucket name is required", interfaces.ErrInvalidLocationURI)
	}

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if location.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(location.Auth, ":")
		sf.log.Debug("Using embedded S3 credentials")
	}

	return NewS3Backend(location.Host, strings.TrimPrefix(location.Path, "/"), region, location.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

// createVaultBackend parses vault://host:port/mount/path?token=..&tls=false.
// TLS is on unless tls=false is given.
func (sf *StateBackendFactory) createVaultBackend(location interfaces.StateBackendLocation) (interfaces.StateBackend, error) {
	mount, dataPath, ok := strings.Cut(strings.TrimPrefix(location.Path, "/"), "/")
	if !ok || mount == "" || dataPath == "" {
		return nil, fmt.Errorf("%w: vault URI must be vault://host:port/mount/path", interfaces.ErrInvalidLocationURI)
	}

	scheme := "https"
	if location.GetParam("tls") != "" && !location.GetParamBool("tls") {
		scheme = "http"
	}

	return NewVaultBackend(fmt.Sprintf("%s://%s", scheme, location.Host), mount, dataPath, location.GetParam("token"), sf.log)
}

// createIPFSBackend parses ipfs://host:port/dir?timeout=30s.
func (sf *StateBackendFactory) createIPFSBackend(location interfaces.StateBackendLocation) (interfaces.StateBackend, error) {
	timeout := 30 * time.Second
	if raw := location.GetParam("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid ipfs timeout: %v", interfaces.ErrInvalidLocationURI, err)
		}
		timeout = parsed
	}

	dir := location.Path
	if strings.Trim(dir, "/") == "" {
		dir = "/" + common.PackageName
	}
	return NewIPFSBackend(location.Host, dir, timeout, sf.log)
}

// localPath extracts a filesystem path from file://, bolt:// and sqlite:// URIs.
// Both scheme:///abs/path and scheme://./rel/path are accepted.
func localPath(location interfaces.StateBackendLocation) (string, error) {
	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return "", fmt.Errorf("%w: empty path in %s URI", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
	return path, nil
}
