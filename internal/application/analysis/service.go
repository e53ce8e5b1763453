package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oracare/oracare-api/internal/application"
	domain "github.com/oracare/oracare-api/internal/domain/analysis"
	"github.com/oracare/oracare-api/internal/domain/classify"
	"github.com/oracare/oracare-api/internal/domain/imaging"
	"github.com/oracare/oracare-api/internal/domain/patients"
)

// ErrInFlight is returned when a second analysis for the same image arrives
// while the first is still running. Duplicate submissions are rejected, not
// queued.
var ErrInFlight = errors.New("analysis already in progress for this image")

// Service implements the screening use-cases: intake, cache lookup, image
// storage, the remote classification relay, interpretation and persistence.
// Safe for concurrent use.
type Service struct {
	Repo       domain.Repository
	Classifier classify.Client
	Cache      domain.ResultCache
	Images     domain.ImageStore
	Clock      application.Clock
	Log        *zap.Logger

	// FailOpen substitutes a benign low-risk default when the remote call
	// fails instead of returning an error to the caller.
	FailOpen bool

	mu       sync.Mutex
	inFlight map[string]struct{}
}

//
// ==== USE CASES ====
//

// AnalyzeCommand is one user-initiated classification request.
type AnalyzeCommand struct {
	Image             string // data URI or bare base64
	PatientID         string
	Histopathological *patients.HistopathologicalData
}

// AnalyzeResult is the API-facing shape of a classification outcome.
type AnalyzeResult struct {
	domain.ClassificationResult
	AnalysisID         string `json:"analysisId,omitempty"`
	ImageURL           string `json:"imageUrl,omitempty"`
	Cached             bool   `json:"cached"`
	PersistenceWarning string `json:"persistenceWarning,omitempty"`
}

// Analyze runs the full pipeline for one image. Order matters: intake
// validation rejects before any remote call, and a cache hit short-circuits
// both the relay and persistence.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (AnalyzeResult, error) {
	img, err := imaging.Decode(cmd.Image)
	if err != nil {
		return AnalyzeResult{}, err
	}
	fingerprint := imaging.Fingerprint(img.Base64)

	if cached, ok := s.Cache.Get(fingerprint); ok {
		return AnalyzeResult{ClassificationResult: cached, Cached: true}, nil
	}

	if err := s.acquire(fingerprint); err != nil {
		return AnalyzeResult{}, err
	}
	defer s.release(fingerprint)

	imageURL := s.storeImage(ctx, img)

	resp, err := s.Classifier.Classify(ctx, classify.Request{
		ImageDataURI: img.DataURI(),
		MimeType:     img.MimeType,
		Patient:      cmd.Histopathological,
	})
	if err != nil {
		return s.handleRemoteFailure(ctx, cmd, fingerprint, imageURL, err)
	}

	result := domain.Interpret(resp.Text)
	result.ScanID = resp.MessageID
	if result.ScanID == "" {
		result.ScanID = fingerprint
	}

	out := AnalyzeResult{ClassificationResult: result, ImageURL: imageURL}
	out.AnalysisID, out.PersistenceWarning = s.persist(ctx, cmd.PatientID, imageURL, result, domain.StatusCompleted, "")

	// Only successful classifications are memoized; a failure must not be
	// replayed from cache for the next 24 hours.
	s.Cache.Put(fingerprint, result)

	return out, nil
}

// handleRemoteFailure applies the configured failure policy. Quota errors
// always propagate so the client can back off; everything else either fails
// open with a benign default or surfaces as unavailable. The failed attempt is
// persisted either way so the failure is never silent.
func (s *Service) handleRemoteFailure(ctx context.Context, cmd AnalyzeCommand, fingerprint, imageURL string, cause error) (AnalyzeResult, error) {
	if errors.Is(cause, classify.ErrQuotaExceeded) {
		return AnalyzeResult{}, cause
	}

	s.Log.Warn("remote classification failed",
		zap.String("fingerprint", fingerprint),
		zap.Bool("fail_open", s.FailOpen),
		zap.Error(cause))

	fallback := domain.FallbackResult()
	fallback.ScanID = fingerprint
	id, warning := s.persist(ctx, cmd.PatientID, imageURL, fallback, domain.StatusFailed, cause.Error())

	if !s.FailOpen {
		return AnalyzeResult{}, fmt.Errorf("%w: %v", classify.ErrUnavailable, cause)
	}
	return AnalyzeResult{
		ClassificationResult: fallback,
		AnalysisID:           id,
		ImageURL:             imageURL,
		PersistenceWarning:   warning,
	}, nil
}

// storeImage uploads the submitted image to object storage. Storage failure is
// not fatal to the analysis; the row is persisted without an image reference.
func (s *Service) storeImage(ctx context.Context, img imaging.Image) string {
	if s.Images == nil {
		return ""
	}
	key := fmt.Sprintf("analyses/%s%s", uuid.New().String(), extensionFor(img.MimeType))
	url, err := s.Images.UploadImage(ctx, img.Bytes, key, img.MimeType)
	if err != nil {
		s.Log.Warn("image upload failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return url
}

// persist writes the analysis row. Persistence errors are surfaced as a
// warning on the response, never as a request failure.
func (s *Service) persist(ctx context.Context, patientID, imageURL string, result domain.ClassificationResult, status domain.Status, remoteErr string) (id, warning string) {
	if s.Repo == nil {
		return "", ""
	}
	row := &domain.Analysis{
		ID:        domain.AnalysisID(uuid.New().String()),
		PatientID: patientID,
		ImageURL:  imageURL,
		Result:    result,
		Status:    status,
		Error:     remoteErr,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Repo.Save(ctx, row); err != nil {
		s.Log.Error("failed to persist analysis", zap.Error(err))
		return string(row.ID), "analysis result could not be saved"
	}
	return string(row.ID), ""
}

// Get returns one stored analysis.
func (s *Service) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	return s.Repo.Get(ctx, id)
}

// Latest returns the most recent analyses, optionally scoped to one patient.
func (s *Service) Latest(ctx context.Context, patientID string, limit int) ([]*domain.Analysis, error) {
	return s.Repo.Latest(ctx, patientID, limit)
}

// Paginate returns a page of analyses with totals.
func (s *Service) Paginate(ctx context.Context, patientID string, page, pageSize int) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, patientID, page, pageSize)
}

func (s *Service) acquire(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		s.inFlight = make(map[string]struct{})
	}
	if _, busy := s.inFlight[fingerprint]; busy {
		return ErrInFlight
	}
	s.inFlight[fingerprint] = struct{}{}
	return nil
}

func (s *Service) release(fingerprint string) {
	s.mu.Lock()
	delete(s.inFlight, fingerprint)
	s.mu.Unlock()
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if idx := strings.Index(mime, "/"); idx >= 0 {
		return "." + mime[idx+1:]
	}
	return ""
}
