// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): provider source clients, AI capabilities
// and the storage layer.
package driven
