package classify

import "errors"

// ErrQuotaExceeded indicates the model provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("model quota exceeded")

// ErrUnavailable indicates the remote call failed entirely (network error,
// non-2xx status, empty response) after the retry budget was spent.
var ErrUnavailable = errors.New("analysis unavailable")
