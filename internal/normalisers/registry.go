// Package normalisers wires provider kinds to their markdown
// renderers.
package normalisers

import (
	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
	"github.com/custodia-labs/inlet/internal/normalisers/blocks"
	"github.com/custodia-labs/inlet/internal/normalisers/chat"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry maps connector types to normalisers.
type Registry struct {
	byType map[domain.ConnectorType]driven.Normaliser
}

// NewRegistry creates a registry covering all indexable provider kinds.
func NewRegistry() *Registry {
	return &Registry{
		byType: map[domain.ConnectorType]driven.Normaliser{
			domain.ConnectorSlack:  chat.New("Slack Channel"),
			domain.ConnectorNotion: blocks.New("Notion Page"),
			domain.ConnectorGitHub: chat.New("GitHub Repository"),
			domain.ConnectorLinear: chat.New("Linear Team"),
		},
	}
}

// For returns the normaliser for the connector type.
func (r *Registry) For(t domain.ConnectorType) (driven.Normaliser, bool) {
	n, ok := r.byType[t]
	return n, ok
}
