package domain

import "errors"

// Domain errors represent business logic failures.
// Adapters translate backend-specific failures into these at the provider
// boundary; services and callers branch only on these categories.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates malformed input: an empty query where
	// one is required, an empty embed batch, an unknown mode or format.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProviderConfig indicates missing or invalid provider
	// configuration (credentials, unreachable local backend). Fatal:
	// never retried, surfaced immediately.
	ErrProviderConfig = errors.New("provider configuration invalid")

	// ErrBackendUnavailable indicates a transient backend failure
	// (timeout, 5xx). Retried with backoff by the adapters.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrRateLimited indicates the backend rejected the call for rate
	// limiting. Retried with a higher floor delay.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelLoading indicates a local backend is still loading the
	// model. Retried after a cooldown.
	ErrModelLoading = errors.New("model loading")

	// ErrEmbeddingUnavailable indicates the embedding provider is not
	// configured or unreachable. Vector/semantic search is disabled.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrGenerationUnavailable indicates the generation provider is not
	// configured. Grounded answers are disabled; search still works.
	ErrGenerationUnavailable = errors.New("generation provider unavailable")

	// ErrSearchUnavailable indicates both retrieval methods failed
	// inside a hybrid search. One method failing alone is surfaced as a
	// zero per-method count, never as this error.
	ErrSearchUnavailable = errors.New("search unavailable")
)

// IsTransient reports whether err is worth retrying.
// Configuration and argument errors are never transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrModelLoading)
}

// IsRateLimited reports whether err should use the rate-limit backoff floor.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrModelLoading)
}
