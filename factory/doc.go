// Package factory implements the issuance factory: it requests creation of a
// subordinate item registry, links to it once the creation result arrives, and
// then turns exactly-priced payments into item-creation commands until the
// supply cap is reached.
//
// The package is split along the lines of the state machine:
//
//   - Store: load/save of the single Config record and the contract info record
//   - Coordinator: the deferred registry creation and its correlated completion
//   - AuthorizePayment: validation of payment notifications
//   - NextItemID: the issuance counter
//   - Orchestrator: the operations composed from the above
//
// An Orchestrator performs one load-mutate-save cycle per operation and never
// writes before all validation has passed. Serialising operations and rolling
// back when emitted messages cannot be delivered is the job of package host.
//
// # Registry lifecycle
//
//	Unlinked --Initialize--> awaiting completion --HandleDeferredCompletion--> Linked
//
// A completion that reports failure leaves the factory unlinked.
package factory
