// Package main (cmd/factoryd) serves one issuance factory over HTTP.
//
// State is kept in one or more state backends selected by URI; repeating
// --state replicates it. Messages emitted by the factory go to the configured
// dispatcher:
//
//   - local: an in-process registry simulator that reports registry creation
//     back to the factory. Useful for development.
//   - kafka: records on a topic, for an external registry host to consume.
//   - onchain: transactions against a registry host contract.
//
// Example usage:
//
//	factoryd --self-address=fafafafafafafafafafafafafafafafafafafafa \
//	    --state=bolt:///var/lib/factory/state.db \
//	    --dispatcher=kafka --kafka-brokers=localhost:9092
package main
