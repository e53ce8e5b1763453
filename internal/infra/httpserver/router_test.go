package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oracare/oracare-api/internal/application"
	appanalysis "github.com/oracare/oracare-api/internal/application/analysis"
	apppatients "github.com/oracare/oracare-api/internal/application/patients"
	domanalysis "github.com/oracare/oracare-api/internal/domain/analysis"
	"github.com/oracare/oracare-api/internal/domain/classify"
	dompatients "github.com/oracare/oracare-api/internal/domain/patients"
	"github.com/oracare/oracare-api/internal/infra/cache"
	"github.com/oracare/oracare-api/internal/middleware"
)

var testImage = base64.StdEncoding.EncodeToString(
	[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00})

type stubClassifier struct {
	text string
	err  error
}

func (s *stubClassifier) Classify(ctx context.Context, req classify.Request) (classify.Response, error) {
	if s.err != nil {
		return classify.Response{}, s.err
	}
	return classify.Response{MessageID: "msg-1", Text: s.text}, nil
}

type memAnalysisRepo struct {
	rows map[domanalysis.AnalysisID]*domanalysis.Analysis
}

func newMemAnalysisRepo() *memAnalysisRepo {
	return &memAnalysisRepo{rows: make(map[domanalysis.AnalysisID]*domanalysis.Analysis)}
}

func (m *memAnalysisRepo) Save(ctx context.Context, a *domanalysis.Analysis) error {
	m.rows[a.ID] = a
	return nil
}

func (m *memAnalysisRepo) Get(ctx context.Context, id domanalysis.AnalysisID) (*domanalysis.Analysis, error) {
	a, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func (m *memAnalysisRepo) Latest(ctx context.Context, patientID string, limit int) ([]*domanalysis.Analysis, error) {
	out := make([]*domanalysis.Analysis, 0, len(m.rows))
	for _, a := range m.rows {
		out = append(out, a)
	}
	return out, nil
}

func (m *memAnalysisRepo) Paginate(ctx context.Context, patientID string, page, pageSize int) (domanalysis.PaginatedResult, error) {
	data, _ := m.Latest(ctx, patientID, pageSize)
	return domanalysis.PaginatedResult{Data: data, Page: page, PageSize: pageSize, Total: int64(len(data)), TotalPages: 1}, nil
}

func (m *memAnalysisRepo) Delete(ctx context.Context, id domanalysis.AnalysisID) error {
	delete(m.rows, id)
	return nil
}

type memPatientRepo struct {
	rows map[dompatients.PatientID]*dompatients.Patient
}

func newMemPatientRepo() *memPatientRepo {
	return &memPatientRepo{rows: make(map[dompatients.PatientID]*dompatients.Patient)}
}

func (m *memPatientRepo) Save(ctx context.Context, p *dompatients.Patient) error {
	m.rows[p.ID] = p
	return nil
}

func (m *memPatientRepo) Get(ctx context.Context, id dompatients.PatientID) (*dompatients.Patient, error) {
	return m.rows[id], nil
}

func (m *memPatientRepo) List(ctx context.Context, limit int) ([]*dompatients.Patient, error) {
	out := make([]*dompatients.Patient, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPatientRepo) Delete(ctx context.Context, id dompatients.PatientID) error {
	delete(m.rows, id)
	return nil
}

func newTestHandler(classifier classify.Client, apiKeys []string) http.Handler {
	log := zap.NewNop()
	resultCache := cache.New(10, time.Hour)

	analysisSvc := &appanalysis.Service{
		Repo:       newMemAnalysisRepo(),
		Classifier: classifier,
		Cache:      resultCache,
		Clock:      application.SystemClock{},
		Log:        log,
		FailOpen:   true,
	}
	patientsSvc := &apppatients.Service{
		Repo:  newMemPatientRepo(),
		Clock: application.SystemClock{},
		Log:   log,
	}

	return NewRouter(Deps{
		Analysis: analysisSvc,
		Patients: patientsSvc,
		Cache:    resultCache,
		Health: map[string]middleware.HealthChecker{
			"self": middleware.CheckerFunc(func(ctx context.Context) error { return nil }),
		},
		Log:            log,
		AllowedOrigins: []string{"*"},
		RateCapacity:   10000,
		RateRefill:     1000,
		BodyLimit:      50 * 1024 * 1024,
		APIKeys:        apiKeys,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpoint(t *testing.T) {
	h := newTestHandler(&stubClassifier{text: "Suspicious lesion. RISK LEVEL: HIGH"}, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/analyze", map[string]string{"image": testImage})
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Risk   string  `json:"risk"`
		Conf   float64 `json:"confidence"`
		ScanID string  `json:"scanId"`
		Cached bool    `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "high", out.Risk)
	require.Equal(t, "msg-1", out.ScanID)
	require.False(t, out.Cached)

	// same image again comes from the cache
	rec = doJSON(t, h, http.MethodPost, "/api/analyze", map[string]string{"image": testImage})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.Cached)
}

func TestAnalyzeEndpointRejectsBadImage(t *testing.T) {
	h := newTestHandler(&stubClassifier{text: "RISK LEVEL: LOW"}, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/analyze", map[string]string{"image": "!!!not base64!!!"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Error)
}

func TestAnalyzeEndpointRequiresImage(t *testing.T) {
	h := newTestHandler(&stubClassifier{text: "RISK LEVEL: LOW"}, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/analyze", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeEndpointQuotaMapsTo429(t *testing.T) {
	h := newTestHandler(&stubClassifier{err: fmt.Errorf("%w: slow down", classify.ErrQuotaExceeded)}, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/analyze", map[string]string{"image": testImage})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestPatientLifecycle(t *testing.T) {
	h := newTestHandler(&stubClassifier{text: "RISK LEVEL: LOW"}, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/patients", map[string]interface{}{
		"name": "Asha", "age": 54, "tobacco": "Yes",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created dompatients.Patient
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = doJSON(t, h, http.MethodGet, "/api/patients/"+string(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPut, "/api/patients/"+string(created.ID), map[string]interface{}{
		"name": "Asha K", "age": 55,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/patients", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/patients/"+string(created.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/patients/"+string(created.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatientValidation(t *testing.T) {
	h := newTestHandler(&stubClassifier{text: "RISK LEVEL: LOW"}, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/patients/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/patients", map[string]interface{}{"name": "", "age": 10})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysesEndpoints(t *testing.T) {
	h := newTestHandler(&stubClassifier{text: "RISK LEVEL: LOW"}, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/analyze", map[string]string{"image": testImage})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/analyses?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page domanalysis.PaginatedResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)

	rec = doJSON(t, h, http.MethodGet, "/api/analyses/latest?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/analyses/"+string(page.Data[0].ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/analyses/00000000-0000-0000-0000-000000000000", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestHandler(&stubClassifier{text: "RISK LEVEL: LOW"}, nil)

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "result_cache_hits")
}

func TestAPIKeyAuth(t *testing.T) {
	h := newTestHandler(&stubClassifier{text: "RISK LEVEL: LOW"}, []string{"sekret"})

	rec := doJSON(t, h, http.MethodGet, "/api/patients", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	auth := httptest.NewRecorder()
	h.ServeHTTP(auth, req)
	require.Equal(t, http.StatusOK, auth.Code)

	// health stays open for probes
	rec = doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
