package classify

import (
	"context"

	"github.com/oracare/oracare-api/internal/domain/patients"
)

// Request carries one image payload plus optional patient context to the
// remote model. Immutable; built per user-initiated analysis.
type Request struct {
	ImageDataURI string
	MimeType     string
	Patient      *patients.HistopathologicalData
}

// Response is the provider's raw answer: the message identifier (used as the
// scanId reference token) and the first text block of the content.
type Response struct {
	MessageID string
	Text      string
}

// Client interface untuk provider model multimodal
type Client interface {
	Classify(ctx context.Context, req Request) (Response, error)
}
