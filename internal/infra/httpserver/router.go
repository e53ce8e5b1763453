package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalysis "github.com/oracare/oracare-api/internal/application/analysis"
	apppatients "github.com/oracare/oracare-api/internal/application/patients"
	domanalysis "github.com/oracare/oracare-api/internal/domain/analysis"
	"github.com/oracare/oracare-api/internal/domain/classify"
	"github.com/oracare/oracare-api/internal/domain/imaging"
	dompatients "github.com/oracare/oracare-api/internal/domain/patients"
	"github.com/oracare/oracare-api/internal/infra/cache"
	"github.com/oracare/oracare-api/internal/middleware"
)

// Deps collects everything the router needs; all wiring happens in cmd/api.
type Deps struct {
	Analysis *appanalysis.Service
	Patients *apppatients.Service
	Cache    *cache.ResultCache
	Health   map[string]middleware.HealthChecker
	Log      *zap.Logger

	AllowedOrigins []string
	APIKeys        []string
	RateCapacity   int
	RateRefill     int
	BodyLimit      int64 // bytes, for /api/analyze
}

type Router struct {
	analysisSvc *appanalysis.Service
	patientsSvc *apppatients.Service
	bodyLimit   int64
	log         *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	r := &Router{
		analysisSvc: d.Analysis,
		patientsSvc: d.Patients,
		bodyLimit:   d.BodyLimit,
		log:         d.Log,
	}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	mux.Use(middleware.RequestLogging(d.Log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(d.RateCapacity, d.RateRefill))
	mux.Use(middleware.APIKeyAuth(d.APIKeys))

	mux.Get("/health", middleware.HealthHandler(d.Health))
	mux.Get("/metrics", middleware.MetricsHandler(func() map[string]interface{} {
		hits, misses := d.Cache.Stats()
		return map[string]interface{}{
			"result_cache_hits":    hits,
			"result_cache_misses":  misses,
			"result_cache_entries": d.Cache.Len(),
		}
	}))

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyze))

		rt.Route("/patients", func(pr chi.Router) {
			pr.Post("/", r.wrap(r.handleCreatePatient))
			pr.Get("/", r.wrap(r.handleListPatients))
			pr.Get("/{id}", r.wrap(r.handleGetPatient))
			pr.Put("/{id}", r.wrap(r.handleUpdatePatient))
			pr.Delete("/{id}", r.wrap(r.handleDeletePatient))
		})

		rt.Get("/analyses", r.wrap(r.handleListAnalyses))
		rt.Get("/analyses/latest", r.wrap(r.handleLatestAnalyses))
		rt.Get("/analyses/{id}", r.wrap(r.handleGetAnalysis))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errorResponse is the wire shape for all failures: {error, details?}.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, imaging.ErrInvalidImage):
			writeError(w, http.StatusBadRequest, "invalid image", err)
		case errors.Is(err, appanalysis.ErrInFlight):
			writeError(w, http.StatusConflict, "analysis in progress", err)
		case errors.Is(err, classify.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "model quota exceeded", err)
		case errors.Is(err, classify.ErrUnavailable):
			writeError(w, http.StatusBadGateway, "analysis unavailable", err)
		case errors.Is(err, apppatients.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "not found", nil)
		case errors.Is(err, apppatients.ErrInvalid):
			writeError(w, http.StatusBadRequest, err.Error(), nil)
		default:
			var badReq *badRequestError
			if errors.As(err, &badReq) {
				writeError(w, http.StatusBadRequest, badReq.Error(), nil)
				return
			}
			r.log.Error("handler error", zap.String("path", req.URL.Path), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error", err)
		}
	}
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func writeError(w http.ResponseWriter, code int, msg string, cause error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := errorResponse{Error: msg}
	if cause != nil {
		resp.Details = cause.Error()
	}
	json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// POST /api/analyze
// Body: {"image": "<base64 or data URI>", "histopathologicalData": {...}, "patientId": "..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.bodyLimit)

	var body struct {
		Image             string                           `json:"image"`
		PatientID         string                           `json:"patientId"`
		Histopathological *dompatients.HistopathologicalData `json:"histopathologicalData"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	if body.Image == "" {
		return badRequest("no image provided")
	}

	result, err := r.analysisSvc.Analyze(req.Context(), appanalysis.AnalyzeCommand{
		Image:             body.Image,
		PatientID:         body.PatientID,
		Histopathological: body.Histopathological,
	})
	if err != nil {
		if !errors.Is(err, imaging.ErrInvalidImage) && !errors.Is(err, appanalysis.ErrInFlight) {
			middleware.IncrementAnalysesFailed()
			middleware.IncrementRemoteFailures()
		}
		return err
	}

	middleware.IncrementAnalyses()
	if result.Cached {
		middleware.IncrementCacheHits()
	}
	return writeJSON(w, http.StatusOK, result)
}

// POST /api/patients
func (r *Router) handleCreatePatient(w http.ResponseWriter, req *http.Request) error {
	var cmd apppatients.CreateCommand
	if err := json.NewDecoder(req.Body).Decode(&cmd); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	p, err := r.patientsSvc.Create(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, p)
}

// GET /api/patients?limit=100
func (r *Router) handleListPatients(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.patientsSvc.List(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/patients/{id}
func (r *Router) handleGetPatient(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return badRequest("%v", err)
	}
	p, err := r.patientsSvc.Get(req.Context(), dompatients.PatientID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// PUT /api/patients/{id}
func (r *Router) handleUpdatePatient(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return badRequest("%v", err)
	}
	var cmd apppatients.CreateCommand
	if err := json.NewDecoder(req.Body).Decode(&cmd); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	p, err := r.patientsSvc.Update(req.Context(), dompatients.PatientID(id), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// DELETE /api/patients/{id}
func (r *Router) handleDeletePatient(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return badRequest("%v", err)
	}
	if err := r.patientsSvc.Delete(req.Context(), dompatients.PatientID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /api/analyses?patient_id=&page=&page_size=
func (r *Router) handleListAnalyses(w http.ResponseWriter, req *http.Request) error {
	patientID := req.URL.Query().Get("patient_id")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.analysisSvc.Paginate(req.Context(), patientID, page, middleware.ValidatePageSize(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/analyses/latest?patient_id=&limit=
func (r *Router) handleLatestAnalyses(w http.ResponseWriter, req *http.Request) error {
	patientID := req.URL.Query().Get("patient_id")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.analysisSvc.Latest(req.Context(), patientID, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/analyses/{id}
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return badRequest("%v", err)
	}
	a, err := r.analysisSvc.Get(req.Context(), domanalysis.AnalysisID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}
