package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/redis/go-redis/v9"

	"github.com/ruteri/issuance-factory/interfaces"
)

const defaultRedisNamespace = "factory"

// RedisBackend keeps state in a single Redis hash named after the namespace.
// Commits run in a MULTI/EXEC pipeline.
type RedisBackend struct {
	client      *redis.Client
	hash        string
	log         *slog.Logger
	locationURI string
}

// NewRedisBackend connects to the server described by a redis:// URL. The
// optional namespace query parameter selects the hash, and is stripped before
// the URL is handed to go-redis.
func NewRedisBackend(ctx context.Context, rawURL string, log *slog.Logger) (*RedisBackend, error) {
	clientURL, namespace, err := splitRedisNamespace(rawURL)
	if err != nil {
		return nil, err
	}

	opts, err := redis.ParseURL(clientURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis ping failed: %v", interfaces.ErrBackendUnavailable, err)
	}

	return &RedisBackend{
		client:      client,
		hash:        namespace + ":state",
		log:         log,
		locationURI: fmt.Sprintf("redis://%s/%d?namespace=%s", opts.Addr, opts.DB, namespace),
	}, nil
}

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	value, err := b.client.HGet(ctx, b.hash, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("hget %s: %w", key, err)
	}
	return value, nil
}

func (b *RedisBackend) Commit(ctx context.Context, changes []interfaces.StateChange) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, change := range changes {
			if change.Delete {
				pipe.HDel(ctx, b.hash, change.Key)
				continue
			}
			pipe.HSet(ctx, b.hash, change.Key, change.Value)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis commit: %w", err)
	}

	b.log.Debug("Committed state to redis", slog.String("hash", b.hash), slog.Int("changes", len(changes)))
	return nil
}

func (b *RedisBackend) Available(ctx context.Context) bool {
	if err := b.client.Ping(ctx).Err(); err != nil {
		b.log.Debug("Redis backend unavailable", "err", err)
		return false
	}
	return true
}

func (b *RedisBackend) Name() string {
	return fmt.Sprintf("redis-%s", b.hash)
}

func (b *RedisBackend) LocationURI() string {
	return b.locationURI
}

// splitRedisNamespace removes the namespace parameter from a redis URL.
func splitRedisNamespace(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	query := u.Query()
	namespace := query.Get("namespace")
	if namespace == "" {
		namespace = defaultRedisNamespace
	}
	query.Del("namespace")
	u.RawQuery = query.Encode()

	return u.String(), namespace, nil
}
