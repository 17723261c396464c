package driven

import "github.com/custodia-labs/inlet/internal/core/domain"

// Normaliser converts a provider's raw items into a flat canonical
// markdown body. A zero count with an empty body means nothing
// survived filtering; the caller treats that as "nothing to index",
// not an error.
type Normaliser interface {
	// Render produces the markdown body for one container's items.
	// containerName seeds the top-level heading.
	Render(containerName string, items []RawItem) (body string, itemCount int)
}

// NormaliserRegistry resolves the normaliser for a provider kind.
type NormaliserRegistry interface {
	// For returns the normaliser for the connector type, or false when
	// the type has none.
	For(t domain.ConnectorType) (Normaliser, bool)
}
