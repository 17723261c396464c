package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown connector type.
	ErrUnsupportedType = errors.New("unsupported connector type")

	// ErrNotIndexable indicates the connector type has no indexing
	// pipeline (pure search-API connectors).
	ErrNotIndexable = errors.New("connector type does not support indexing")

	// Configuration errors. Fatal to a run, never retried.

	// ErrMissingCredential indicates a required credential key is
	// absent from the connector config.
	ErrMissingCredential = errors.New("missing credential")

	// Provider errors. Scoped to a single container and recorded as
	// a skip, never fatal to the run.

	// ErrAuthInvalid indicates the provider rejected the credential.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrRateLimited indicates the provider API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrContainerInaccessible indicates a container is private or the
	// integration is not a member.
	ErrContainerInaccessible = errors.New("container inaccessible")

	// Assembly errors. Scoped to the item being assembled.

	// ErrAssembly indicates summarization, embedding or chunking failed
	// while building a document.
	ErrAssembly = errors.New("document assembly failed")

	// Run lifecycle errors.

	// ErrRunInProgress indicates a run is already in flight for the
	// connector. The caller must wait for the lock to be released.
	ErrRunInProgress = errors.New("indexing run already in progress")
)
