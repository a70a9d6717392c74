package media

import "errors"

// Policy and integrity failures surfaced to callers. Infrastructure failures
// (store, network) are wrapped and propagated as-is so callers can tell a
// retryable outage from a rejection.
var (
	// ErrInvalidRequest means a required field for the declared scope is
	// missing or malformed.
	ErrInvalidRequest = errors.New("invalid upload request")

	// ErrUnsupportedMediaType means the extension is outside the allowlists.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrPayloadTooLarge means the declared size exceeds the category ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrForbidden means the actor does not own the target entity or key.
	ErrForbidden = errors.New("forbidden")

	// ErrSourceMissing means a persisted key has no bytes at the private
	// location — a data-integrity signal, never silently skipped.
	ErrSourceMissing = errors.New("source object missing")

	// ErrUnprocessableMedia means the source bytes do not decode as an image.
	ErrUnprocessableMedia = errors.New("unprocessable media")
)
