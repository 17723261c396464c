// Package connectors builds provider source clients from connector
// records.
package connectors

import (
	"fmt"

	"github.com/custodia-labs/inlet/internal/connectors/github"
	"github.com/custodia-labs/inlet/internal/connectors/linear"
	"github.com/custodia-labs/inlet/internal/connectors/notion"
	"github.com/custodia-labs/inlet/internal/connectors/slack"
	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.SourceClientFactory = (*Factory)(nil)

// Factory creates source clients for indexable connector types.
type Factory struct{}

// NewFactory creates a source client factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds the source client for a connector, validating that the
// type is indexable and that the required credentials are present.
func (f *Factory) Create(connector *domain.Connector) (driven.SourceClient, error) {
	if !connector.Type.Indexable() {
		return nil, fmt.Errorf("%w: connector type %q has no indexing pipeline",
			domain.ErrNotIndexable, connector.Type)
	}

	for _, key := range connector.Type.RequiredConfigKeys() {
		if connector.Credential(key) == "" {
			return nil, fmt.Errorf("%w: connector %d is missing %s",
				domain.ErrMissingCredential, connector.ID, key)
		}
	}

	switch connector.Type {
	case domain.ConnectorSlack:
		return slack.New(connector.Credential(domain.KeySlackBotToken)), nil
	case domain.ConnectorNotion:
		return notion.New(connector.Credential(domain.KeyNotionIntegrationToken)), nil
	case domain.ConnectorGitHub:
		return github.New(connector.Credential(domain.KeyGitHubPAT)), nil
	case domain.ConnectorLinear:
		return linear.New(connector.Credential(domain.KeyLinearAPIKey)), nil
	}

	return nil, fmt.Errorf("%w: connector type %q", domain.ErrUnsupportedType, connector.Type)
}
