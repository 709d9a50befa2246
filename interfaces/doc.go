// Package interfaces defines core interfaces and types for the issuance
// factory, separating interface definitions from implementations.
//
// # Domain Types
//
//   - Address: 20-byte identity of accounts, payment media and registries
//   - Amount: unsigned 128-bit quantity, decimal string on the wire
//   - RegistryLink: Unlinked or Linked(Address); the factory may issue items
//     only once linked
//   - Config / ConfigResponse: the single durable factory record and its read shape
//
// # Messages
//
// Operations consume PaymentNotification and CompletionNotification and emit
// Message values wrapping either a CreationRequest (create the subordinate
// registry) or a CreateItemCommand (create one item in the linked registry).
//
// # Interfaces
//
// StateBackend: key-addressed durable storage with atomic multi-key commits,
// implemented for memory, file, bolt, sqlite, redis, s3 and vault.
//
// StateBackendFactory: creates state backends from location URIs.
//
// Dispatcher: delivers emitted messages to the environment hosting the registry.
//
// FactoryOperations: the externally visible operations of one factory instance.
package interfaces
