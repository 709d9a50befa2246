package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/ruteri/issuance-factory/interfaces"
)

// vaultStateField is the secret field holding the encoded state document.
const vaultStateField = "state"

// VaultBackend keeps the state as one KV v2 secret in HashiCorp Vault. Every
// commit writes a new secret version.
type VaultBackend struct {
	mu          sync.Mutex
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a Vault state backend.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: secret path within the mount (e.g. "factory")
//   - token: Vault token; empty means VAULT_TOKEN from the environment
//   - log: Structured logger for operational insights
func NewVaultBackend(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{Timeout: 30 * time.Second}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")
	if mountPath == "" || dataPath == "" {
		return nil, fmt.Errorf("vault mount and secret path are required")
	}

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

func (b *VaultBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.readDocument(ctx)
	if err != nil {
		return nil, err
	}
	return lookup(values, key)
}

func (b *VaultBackend) Commit(ctx context.Context, changes []interfaces.StateChange) error {
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

	_, err = b.client.KVv2(b.mountPath).Put(ctx, b.dataPath, map[string]interface{}{
		vaultStateField: string(data),
	})
	if err != nil {
		b.log.Error("Failed to write to Vault", slog.String("path", b.dataPath), "err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Info("Committed state to Vault",
		slog.String("path", b.dataPath),
		slog.Int("changes", len(changes)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks that Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

// readDocument returns the current state, or an empty one if the secret does not exist yet.
func (b *VaultBackend) readDocument(ctx context.Context) (map[string][]byte, error) {
	secret, err := b.client.KVv2(b.mountPath).Get(ctx, b.dataPath)
	if errors.Is(err, api.ErrSecretNotFound) {
		return make(map[string][]byte), nil
	}
	if err != nil {
		b.log.Error("Failed to read from Vault", slog.String("path", b.dataPath), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	raw, ok := secret.Data[vaultStateField].(string)
	if !ok {
		return nil, fmt.Errorf("state field not found in Vault secret %s", b.dataPath)
	}
	return decodeStateDocument([]byte(raw))
}
