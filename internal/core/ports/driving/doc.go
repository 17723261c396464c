// Package driving provides interfaces for primary (inbound) adapters:
// the HTTP surface and CLI drive the core through these.
package driving
