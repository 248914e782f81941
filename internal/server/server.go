// Package server exposes the decision engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"credit-decision-engine/internal/bureau"
	"credit-decision-engine/internal/decision"
	"credit-decision-engine/internal/inference"
	"credit-decision-engine/internal/rules"
)

// Server wires the decision pipeline into an HTTP surface.
type Server struct {
	service    *decision.Service
	ruleStore  rules.Store
	inferrer   *inference.Engine
	aggregator *bureau.Aggregator
	gatherer   prometheus.Gatherer
	logger     zerolog.Logger
}

// Options collects the server's collaborators. Inferrer may be nil when
// inference is disabled.
type Options struct {
	Service    *decision.Service
	RuleStore  rules.Store
	Inferrer   *inference.Engine
	Aggregator *bureau.Aggregator
	Gatherer   prometheus.Gatherer
}

// New constructs the HTTP server.
func New(opts Options, logger zerolog.Logger) *Server {
	return &Server{
		service:    opts.Service,
		ruleStore:  opts.RuleStore,
		inferrer:   opts.Inferrer,
		aggregator: opts.Aggregator,
		gatherer:   opts.Gatherer,
		logger:     logger.With().Str("component", "http_server").Logger(),
	}
}

// Router builds the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/applications", s.handleApplication)

		r.Route("/decisions", func(r chi.Router) {
			r.Post("/evaluate", s.handleEvaluate)
			r.Get("/recent", s.handleRecent)
			r.Get("/{requestID}/reasoning", s.handleReasoning)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Post("/", s.handleCreateRule)
			r.Post("/infer", s.handleInfer)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetRule)
				r.Put("/", s.handleUpdateRule)
				r.Delete("/", s.handleDeleteRule)
				r.Patch("/enabled", s.handleSetEnabled)
			})
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(started)).
			Msg("http request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// applicationRequest is the full-orchestration payload: applicant data that
// is first fanned out to the bureaus, then decided.
type applicationRequest struct {
	RequestID       string           `json:"requestId,omitempty"`
	SSN             string           `json:"ssn"`
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	LoanAmount      decimal.Decimal  `json:"loanAmount"`
	ApplicantAge    *decimal.Decimal `json:"applicantAge,omitempty"`
	AnnualIncome    *decimal.Decimal `json:"annualIncome,omitempty"`
	TotalDebt       *decimal.Decimal `json:"totalDebt,omitempty"`
	MonthlyCashflow *decimal.Decimal `json:"monthlyCashflow,omitempty"`
}

func (s *Server) handleApplication(w http.ResponseWriter, r *http.Request) {
	var payload applicationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SSN == "" {
		writeError(w, http.StatusBadRequest, "ssn is required")
		return
	}
	if !payload.LoanAmount.IsPositive() {
		writeError(w, http.StatusBadRequest, "loanAmount must be positive")
		return
	}

	creditReq := bureau.CreditRequest{
		SSN:             payload.SSN,
		FirstName:       payload.FirstName,
		LastName:        payload.LastName,
		LoanAmount:      payload.LoanAmount,
		ApplicantAge:    payload.ApplicantAge,
		AnnualIncome:    payload.AnnualIncome,
		TotalDebt:       payload.TotalDebt,
		MonthlyCashflow: payload.MonthlyCashflow,
	}
	results := s.aggregator.CheckAll(r.Context(), creditReq)

	req := decision.Request{
		RequestID:       payload.RequestID,
		LoanAmount:      payload.LoanAmount,
		BureauResults:   results,
		ApplicantAge:    payload.ApplicantAge,
		AnnualIncome:    payload.AnnualIncome,
		TotalDebt:       payload.TotalDebt,
		MonthlyCashflow: payload.MonthlyCashflow,
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	s.evaluateAndRespond(r.Context(), w, req)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req decision.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.LoanAmount.IsPositive() {
		writeError(w, http.StatusBadRequest, "loanAmount must be positive")
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	s.evaluateAndRespond(r.Context(), w, req)
}

func (s *Server) evaluateAndRespond(ctx context.Context, w http.ResponseWriter, req decision.Request) {
	result, err := s.service.Evaluate(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", req.RequestID).Msg("evaluation failed")
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReasoning(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	reasoning, err := s.service.GetReasoning(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, decision.ErrDecisionNotFound) {
			writeError(w, http.StatusNotFound, "decision not found")
			return
		}
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("reasoning lookup failed")
		writeError(w, http.StatusInternalServerError, "reasoning lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, reasoning)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := s.service.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("recent decisions lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	out := make([]decisionView, 0, len(records))
	for _, rec := range records {
		out = append(out, viewFromRecord(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	list, err := s.ruleStore.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list rules failed")
		writeError(w, http.StatusInternalServerError, "list rules failed")
		return
	}

	out := make([]ruleView, 0, len(list))
	for _, rule := range list {
		out = append(out, viewFromRule(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.ruleStore.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewFromRule(rule))
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.decodeRule(w, r)
	if !ok {
		return
	}

	created, err := s.ruleStore.Create(r.Context(), rule)
	if err != nil {
		s.writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewFromRule(created))
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.decodeRule(w, r)
	if !ok {
		return
	}
	rule.Name = chi.URLParam(r, "name")
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.ruleStore.Update(r.Context(), rule)
	if err != nil {
		s.writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewFromRule(updated))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.ruleStore.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeRuleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Enabled == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"enabled\": true|false}")
		return
	}

	rule, err := s.ruleStore.SetEnabled(r.Context(), chi.URLParam(r, "name"), *payload.Enabled)
	if err != nil {
		s.writeRuleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewFromRule(rule))
}

func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	if s.inferrer == nil {
		writeError(w, http.StatusServiceUnavailable, "rule inference is not enabled")
		return
	}

	sampleSize := 0
	if raw := r.URL.Query().Get("sampleSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "sampleSize must be a positive integer")
			return
		}
		sampleSize = parsed
	}

	report, err := s.inferrer.Propose(r.Context(), sampleSize)
	if err != nil {
		if errors.Is(err, inference.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, "rule inference is not enabled")
			return
		}
		s.logger.Error().Err(err).Msg("rule inference failed")
		writeError(w, http.StatusInternalServerError, "rule inference failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) decodeRule(w http.ResponseWriter, r *http.Request) (rules.Rule, bool) {
	var payload ruleView
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return rules.Rule{}, false
	}

	rule := payload.toRule()
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return rules.Rule{}, false
	}
	return rule, true
}

func (s *Server) writeRuleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rules.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "rule not found")
	case errors.Is(err, rules.ErrDuplicateRuleName):
		writeError(w, http.StatusConflict, "rule name already exists")
	default:
		s.logger.Error().Err(err).Msg("rule operation failed")
		writeError(w, http.StatusInternalServerError, "rule operation failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
