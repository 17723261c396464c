package domain

import "time"

// ConnectorType identifies a content provider.
type ConnectorType string

// The closed set of supported provider kinds. The search-API kinds
// (serper, tavily) carry only an API key and have no indexing pipeline.
const (
	ConnectorSlack  ConnectorType = "slack"
	ConnectorNotion ConnectorType = "notion"
	ConnectorGitHub ConnectorType = "github"
	ConnectorLinear ConnectorType = "linear"
	ConnectorSerper ConnectorType = "serper"
	ConnectorTavily ConnectorType = "tavily"
)

// Credential config keys, one per provider.
const (
	KeySlackBotToken          = "SLACK_BOT_TOKEN"
	KeyNotionIntegrationToken = "NOTION_INTEGRATION_TOKEN"
	KeyGitHubPAT              = "GITHUB_PAT"
	KeyLinearAPIKey           = "LINEAR_API_KEY"
	KeySerperAPIKey           = "SERPER_API_KEY"
	KeyTavilyAPIKey           = "TAVILY_API_KEY"
)

// Valid reports whether t is one of the known connector types.
func (t ConnectorType) Valid() bool {
	switch t {
	case ConnectorSlack, ConnectorNotion, ConnectorGitHub,
		ConnectorLinear, ConnectorSerper, ConnectorTavily:
		return true
	}
	return false
}

// Indexable reports whether the type has an indexing pipeline.
// Search-API connectors are queried live and never indexed.
func (t ConnectorType) Indexable() bool {
	switch t {
	case ConnectorSlack, ConnectorNotion, ConnectorGitHub, ConnectorLinear:
		return true
	}
	return false
}

// RequiredConfigKeys returns the credential keys a connector of this
// type must carry. Validated when a source client is built, not when
// the config is saved.
func (t ConnectorType) RequiredConfigKeys() []string {
	switch t {
	case ConnectorSlack:
		return []string{KeySlackBotToken}
	case ConnectorNotion:
		return []string{KeyNotionIntegrationToken}
	case ConnectorGitHub:
		return []string{KeyGitHubPAT}
	case ConnectorLinear:
		return []string{KeyLinearAPIKey}
	case ConnectorSerper:
		return []string{KeySerperAPIKey}
	case ConnectorTavily:
		return []string{KeyTavilyAPIKey}
	}
	return nil
}

// DisplayName returns the human-readable provider name used as the
// document title prefix.
func (t ConnectorType) DisplayName() string {
	switch t {
	case ConnectorSlack:
		return "Slack"
	case ConnectorNotion:
		return "Notion"
	case ConnectorGitHub:
		return "GitHub"
	case ConnectorLinear:
		return "Linear"
	case ConnectorSerper:
		return "Serper"
	case ConnectorTavily:
		return "Tavily"
	}
	return string(t)
}

// Connector is a configured integration with one external content
// source, scoped to one owner and one provider kind.
//
// Invariant: at most one Connector of a given type per owner.
// LastSyncedAt is the watermark: nil means never synced; it is advanced
// only by a run that persisted at least one document.
type Connector struct {
	// ID is the unique identifier.
	ID int64

	// OwnerID identifies the owning user.
	OwnerID string

	// Type is the provider kind.
	Type ConnectorType

	// Name is the human-readable name for this connector.
	Name string

	// Config holds opaque provider credentials and settings.
	// Required keys are provider-specific, see RequiredConfigKeys.
	Config map[string]string

	// LastSyncedAt is the end of the most recent document-producing
	// sync window. Nil if the connector has never produced documents.
	LastSyncedAt *time.Time

	// CreatedAt is when the connector was created.
	CreatedAt time.Time

	// UpdatedAt is when the connector was last updated.
	UpdatedAt time.Time
}

// Credential returns the config value for key, or "" if absent.
func (c *Connector) Credential(key string) string {
	if c.Config == nil {
		return ""
	}
	return c.Config[key]
}
