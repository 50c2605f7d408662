package registry

import "errors"

// Sentinel errors for registry-level failures.
var (
	// ErrUnauthorized is returned by ValidateToken when a presented token
	// does not match the one minted when the entry was created (by
	// RegisterQuery or RegisterSchema, whichever came first).
	ErrUnauthorized = errors.New("invalid capability token")

	// ErrSchemaNotRegistered is returned when a producer connection exceeds
	// the configured wait for a schema that the pull side never supplied.
	ErrSchemaNotRegistered = errors.New("schema not registered for query")

	// ErrBackpressureTimeout is returned by PushPage when the per-query
	// queue stays full past the caller's deadline.
	ErrBackpressureTimeout = errors.New("backpressure timeout pushing page")

	// ErrUnknownQuery is returned by any operation addressing a qid the
	// registry has no entry for (never registered, or already evicted).
	ErrUnknownQuery = errors.New("unknown query id")

	// ErrCancelled is returned when a blocking registry call is aborted by
	// its context being cancelled rather than reaching its deadline, and by
	// PushPage when the query has already been revoked by CleanupOnFailure
	// or Deregister.
	ErrCancelled = errors.New("operation cancelled")

	// ErrSchemaMismatch is returned when a producer's self-declared
	// handshake schema does not match the schema the pull side registered
	// for the query.
	ErrSchemaMismatch = errors.New("producer schema does not match registered schema")
)
