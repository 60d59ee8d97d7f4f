// Package server exposes a fitted DiscreteTimeEnsemble over HTTP.
//
//	POST /v1/predict/survival
//	{"instances": [[0.1, 2.3], [1.4, 0.2]]}
//
//	{"time_bins": [30, 60, 90], "predictions": [[0.97, 0.91, 0.88], ...]}
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/core/model"
	"github.com/YuminosukeSato/gosurv/pkg/errors"
	"github.com/YuminosukeSato/gosurv/pkg/log"
	"github.com/YuminosukeSato/gosurv/sklearn/survival"
)

// maxBodyBytes bounds the size of a prediction request.
const maxBodyBytes = 8 << 20

// Server serves predictions of one model. The model can be swapped while
// requests are in flight.
type Server struct {
	mu     sync.RWMutex
	model  *survival.DiscreteTimeEnsemble
	router chi.Router
	logger log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New returns a Server for m. m may be nil until SetModel is called.
func New(m *survival.DiscreteTimeEnsemble, opts ...Option) *Server {
	s := &Server{model: m}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLogger()
	}
	s.logger = s.logger.With(log.ComponentKey, "server")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/model", s.handleModel)
		r.Get("/model/weights/{interval}", s.handleWeights)
		r.Post("/predict/hazard", s.handlePredictHazard)
		r.Post("/predict/survival", s.handlePredictSurvival)
		r.Post("/predict/survival_at", s.handlePredictSurvivalAt)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler of s.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetModel replaces the served model.
func (s *Server) SetModel(m *survival.DiscreteTimeEnsemble) {
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
}

func (s *Server) current() (*survival.DiscreteTimeEnsemble, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return nil, errors.NewNotFittedError("server", "predict")
	}
	return s.model, nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := []any{
			log.HTTPMethodKey, r.Method,
			log.HTTPPathKey, r.URL.Path,
			log.HTTPStatusKey, ww.Status(),
			log.RequestIDKey, middleware.GetReqID(r.Context()),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.logger.Warn("Request failed", fields...)
			return
		}
		s.logger.Info("Request served", fields...)
	})
}

type healthResponse struct {
	Status string `json:"status"`
	Fitted bool   `json:"fitted"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	m, err := s.current()
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Fitted: err == nil && m.IsFitted(),
	})
}

type modelResponse struct {
	Name                string    `json:"name"`
	ID                  string    `json:"id"`
	TimeBins            []float64 `json:"time_bins"`
	NFeatures           int       `json:"n_features"`
	DegenerateIntervals []int     `json:"degenerate_intervals"`
}

func (s *Server) handleModel(w http.ResponseWriter, _ *http.Request) {
	m, err := s.current()
	if err == nil && !m.IsFitted() {
		err = errors.NewNotFittedError(m.Name(), "describe")
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	degenerate := m.DegenerateIntervals()
	if degenerate == nil {
		degenerate = []int{}
	}
	writeJSON(w, http.StatusOK, modelResponse{
		Name:                m.Name(),
		ID:                  m.ID(),
		TimeBins:            m.TimeBins(),
		NFeatures:           m.NFeatures(),
		DegenerateIntervals: degenerate,
	})
}

// handleWeights returns the exported weights of one interval classifier.
func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	m, err := s.current()
	if err == nil && !m.IsFitted() {
		err = errors.NewNotFittedError(m.Name(), "weights")
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	raw := chi.URLParam(r, "interval")
	bank := m.Estimators()
	k, err := strconv.Atoi(raw)
	if err != nil || k < 0 || k >= len(bank) {
		s.writeError(w, errors.NewValidationError("interval",
			"must be an integer in [0, "+strconv.Itoa(len(bank))+")", raw))
		return
	}
	exporter, ok := bank[k].(model.WeightExporter)
	if !ok {
		s.writeError(w, errors.NewValidationError("interval", "classifier does not export weights", k))
		return
	}
	weights, err := exporter.ExportWeights()
	if err != nil {
		s.writeError(w, errors.NewIntervalError("weights", k, err))
		return
	}
	data, err := weights.ToJSON()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
	Times     []float64   `json:"times,omitempty"`
}

type predictResponse struct {
	TimeBins    []float64   `json:"time_bins,omitempty"`
	Times       []float64   `json:"times,omitempty"`
	Predictions [][]float64 `json:"predictions"`
}

func (s *Server) handlePredictHazard(w http.ResponseWriter, r *http.Request) {
	m, X, _, ok := s.prepare(w, r)
	if !ok {
		return
	}
	hazard, err := m.PredictHazard(X)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{
		TimeBins:    m.TimeBins(),
		Predictions: rows(mat.DenseCopyOf(hazard.T())),
	})
}

func (s *Server) handlePredictSurvival(w http.ResponseWriter, r *http.Request) {
	m, X, _, ok := s.prepare(w, r)
	if !ok {
		return
	}
	surv, err := m.PredictSurvival(X)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{
		TimeBins:    m.TimeBins(),
		Predictions: rows(surv),
	})
}

func (s *Server) handlePredictSurvivalAt(w http.ResponseWriter, r *http.Request) {
	m, X, req, ok := s.prepare(w, r)
	if !ok {
		return
	}
	if len(req.Times) == 0 {
		s.writeError(w, errors.NewValidationError("times", "must not be empty", req.Times))
		return
	}
	fns, err := m.PredictSurvivalFunction(X)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([][]float64, len(fns))
	for i, fn := range fns {
		if out[i], err = fn.EvalMany(req.Times); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, predictResponse{
		Times:       req.Times,
		Predictions: out,
	})
}

// prepare decodes the request body and resolves the served model. It writes
// the error response itself and reports ok=false on failure.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request) (*survival.DiscreteTimeEnsemble, *mat.Dense, *predictRequest, bool) {
	m, err := s.current()
	if err != nil {
		s.writeError(w, err)
		return nil, nil, nil, false
	}

	var req predictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, errors.NewValidationError("body", err.Error(), nil))
		return nil, nil, nil, false
	}

	X, err := instances(req.Instances)
	if err != nil {
		s.writeError(w, err)
		return nil, nil, nil, false
	}
	return m, X, &req, true
}

func instances(in [][]float64) (*mat.Dense, error) {
	if len(in) == 0 {
		return nil, errors.NewValidationError("instances", "must not be empty", nil)
	}
	nFeatures := len(in[0])
	if nFeatures == 0 {
		return nil, errors.NewValidationError("instances", "rows must not be empty", nil)
	}
	data := make([]float64, 0, len(in)*nFeatures)
	for i, row := range in {
		if len(row) != nFeatures {
			return nil, errors.NewDimensionError("instances", nFeatures, len(row), i)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(in), nFeatures, data), nil
}

func rows(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps estimator errors to HTTP status codes. Failures inside an
// interval classifier are server faults even when they carry a value error.
func statusFor(err error) int {
	var (
		interval   *errors.IntervalError
		notFitted  *errors.NotFittedError
		dimension  *errors.DimensionError
		value      *errors.ValueError
		validation *errors.ValidationError
	)
	switch {
	case errors.As(err, &interval):
		return http.StatusInternalServerError
	case errors.As(err, &notFitted):
		return http.StatusServiceUnavailable
	case errors.As(err, &dimension), errors.As(err, &value), errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Prediction request failed", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
