package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/issuance-factory/interfaces"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// localBackends returns every backend that runs without external services.
func localBackends(t *testing.T) map[string]interfaces.StateBackend {
	t.Helper()

	fileBackend, err := NewFileBackend(filepath.Join(t.TempDir(), "state"), discardLogger())
	require.NoError(t, err)

	boltBackend, err := NewBoltBackend(filepath.Join(t.TempDir(), "state.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = boltBackend.Close() })

	sqliteBackend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "state.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteBackend.Close() })

	return map[string]interfaces.StateBackend{
		"memory": NewMemoryBackend("test"),
		"file":   fileBackend,
		"bolt":   boltBackend,
		"sqlite": sqliteBackend,
	}
}

func TestStateBackends(t *testing.T) {
	for name, backend := range localBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			assert.True(t, backend.Available(ctx))
			assert.NotEmpty(t, backend.Name())
			assert.NotEmpty(t, backend.LocationURI())

			_, err := backend.Fetch(ctx, "config")
			assert.ErrorIs(t, err, interfaces.ErrStateNotFound)

			require.NoError(t, backend.Commit(ctx, []interfaces.StateChange{
				{Key: "config", Value: []byte(`{"next_item_id":0}`)},
				{Key: "contract_info", Value: []byte(`{"version":"1"}`)},
			}))

			data, err := backend.Fetch(ctx, "config")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"next_item_id":0}`), data)

			data, err = backend.Fetch(ctx, "contract_info")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"version":"1"}`), data)

			// Overwrite one key, delete the other.
			require.NoError(t, backend.Commit(ctx, []interfaces.StateChange{
				{Key: "config", Value: []byte(`{"next_item_id":1}`)},
				{Key: "contract_info", Delete: true},
			}))

			data, err = backend.Fetch(ctx, "config")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"next_item_id":1}`), data)

			_, err = backend.Fetch(ctx, "contract_info")
			assert.ErrorIs(t, err, interfaces.ErrStateNotFound)

			// Deleting a missing key is not an error.
			require.NoError(t, backend.Commit(ctx, []interfaces.StateChange{{Key: "missing", Delete: true}}))
		})
	}
}

func TestMemoryBackend_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend("")

	value := []byte("abc")
	require.NoError(t, backend.Commit(ctx, []interfaces.StateChange{{Key: "k", Value: value}}))
	value[0] = 'x'

	data, err := backend.Fetch(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	data[1] = 'x'
	again, err := backend.Fetch(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)

	assert.Equal(t, "memory://default", backend.LocationURI())
}

func TestMemoryBackend_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := NewMemoryBackend("test")
	_, err := backend.Fetch(ctx, "config")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, backend.Commit(ctx, nil), context.Canceled)
}

func TestFileBackend_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)
	require.NoError(t, first.Commit(ctx, []interfaces.StateChange{{Key: "config", Value: []byte(`{}`)}}))

	second, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)
	data, err := second.Fetch(ctx, "config")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), data)

	// Only the state document is left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, stateDocumentName, entries[0].Name())
}

func TestFileBackend_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateDocumentName), []byte("not json"), 0o644))

	backend, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)

	_, err = backend.Fetch(context.Background(), "config")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrStateNotFound)
}

func TestBoltBackend_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := NewBoltBackend(path, discardLogger())
	require.NoError(t, err)
	require.NoError(t, first.Commit(ctx, []interfaces.StateChange{{Key: "config", Value: []byte(`{}`)}}))
	require.NoError(t, first.Close())

	second, err := NewBoltBackend(path, discardLogger())
	require.NoError(t, err)
	defer second.Close()

	data, err := second.Fetch(ctx, "config")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), data)
}

func TestNewBoltBackend_EmptyPath(t *testing.T) {
	_, err := NewBoltBackend("  ", discardLogger())
	assert.Error(t, err)
}

func TestSplitRedisNamespace(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		clientURL string
		namespace string
	}{
		{
			name:      "explicit namespace",
			raw:       "redis://localhost:6379/0?namespace=issuer",
			clientURL: "redis://localhost:6379/0",
			namespace: "issuer",
		},
		{
			name:      "default namespace",
			raw:       "redis://:secret@localhost:6379/2",
			clientURL: "redis://:secret@localhost:6379/2",
			namespace: defaultRedisNamespace,
		},
		{
			name:      "other parameters kept",
			raw:       "redis://localhost:6379/0?dial_timeout=3s&namespace=a",
			clientURL: "redis://localhost:6379/0?dial_timeout=3s",
			namespace: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientURL, namespace, err := splitRedisNamespace(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.clientURL, clientURL)
			assert.Equal(t, tt.namespace, namespace)
		})
	}
}

func TestStateDocument(t *testing.T) {
	values, err := decodeStateDocument([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, values)

	applyChanges(values, []interfaces.StateChange{{Key: "config", Value: []byte{0, 1, 2}}})
	data, err := encodeStateDocument(values)
	require.NoError(t, err)

	decoded, err := decodeStateDocument(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, decoded["config"])

	_, err = lookup(decoded, "missing")
	assert.ErrorIs(t, err, interfaces.ErrStateNotFound)
}
