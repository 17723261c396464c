// Package domain defines the core business entities for Inlet.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Connector: A configured integration with one content provider
//   - Document: The canonical indexed artifact with its chunks
//   - SyncWindow: The [from, to) time range covered by one run
//   - RunReport: The per-run outcome (persisted count + skips)
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
package domain
