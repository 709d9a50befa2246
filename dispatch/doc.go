// Package dispatch delivers the messages emitted by factory operations to the
// environment that hosts the item registry.
//
// Three dispatchers are provided:
//
//   - LocalRegistry simulates the registry host in process. It creates
//     registries on request, reports the creation result back through a
//     CompletionSink, and records created items.
//   - KafkaDispatcher publishes every message as a JSON record to a topic,
//     for an external registry host to consume.
//   - OnchainDispatcher sends transactions to a registry host contract.
//
// A dispatcher error means the message was not delivered; the caller is
// expected to undo the state change that produced it.
package dispatch
