// Package storage provides key-addressed state backends for the issuance factory.
//
// Every backend implements interfaces.StateBackend: values are fetched by key,
// and writes are applied through Commit, which makes all changes of one
// operation visible at once or not at all.
//
// # Backends
//
//   - memory:// keeps state in process memory, for tests and local simulation
//   - file:///var/lib/factory keeps state in a single JSON document on disk
//   - bolt:///var/lib/factory/state.db uses a BoltDB bucket
//   - sqlite:///var/lib/factory/state.db uses a SQLite table
//   - redis://host:6379/0?namespace=factory uses a Redis hash
//   - s3://[key:secret@]bucket/prefix?region=us-east-1 keeps a JSON document in a bucket
//   - vault://host:8200/secret/factory?token=...&tls=false keeps a KV v2 secret
//   - ipfs://host:5001/factory?timeout=30s keeps a JSON document in the node's MFS
//
// # URI Format
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// StateBackendFactory turns a URI into a backend. CreateMultiBackend combines
// several backends into a MultiStateBackend, which replicates commits to every
// available backend and reads from the first one that answers.
//
// # Staging
//
// StagedBackend buffers the writes of one operation on top of a durable
// backend. Reads see the buffered writes. Flush commits them in one unit and
// returns the changes that restore the previous values:
//
//	staged := storage.NewStagedBackend(durable)
//	if err := op(ctx, staged); err != nil {
//	    return err // nothing reached durable
//	}
//	revert, err := staged.Flush(ctx)
//	if err != nil {
//	    return err
//	}
//	if err := dispatch(); err != nil {
//	    _ = durable.Commit(ctx, revert)
//	}
package storage
