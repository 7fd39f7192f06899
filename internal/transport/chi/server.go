package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/domain/envelope"
	"github.com/allbravos/styletelling-ai/internal/domain/status"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
	domusage "github.com/allbravos/styletelling-ai/internal/domain/usage"
	"github.com/allbravos/styletelling-ai/internal/logger"
	"github.com/allbravos/styletelling-ai/internal/usecase/health"
)

const (
	maxQueryRunes   = 1000
	maxRequestBytes = 16 << 10
)

// Recommender streams the status events of one query.
type Recommender interface {
	Process(ctx context.Context, query string) iter.Seq[status.Event]
}

// UsageReporter builds oracle usage reports.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// Server implements the HTTP API.
type Server struct {
	recommender Recommender
	registry    *taxonomy.Registry
	usage       UsageReporter
	health      HealthChecker
	logger      *zap.Logger
}

// NewServer creates a Server.
func NewServer(
	recommender Recommender,
	registry *taxonomy.Registry,
	usage UsageReporter,
	healthSvc HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		recommender: recommender,
		registry:    registry,
		usage:       usage,
		health:      healthSvc,
		logger:      logger,
	}
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recommendations", s.Recommend)
		r.Get("/taxonomy", s.Taxonomy)
		r.Get("/usage", s.Usage)
	})
}

// --- Recommendations ---

// Recommend runs the pipeline for one query. The default response is an
// event stream; clients asking for application/json get only the outcome.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid JSON body")
		return
	}
	if utf8.RuneCountInString(req.Query) > maxQueryRunes {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("query exceeds %d characters", maxQueryRunes))
		return
	}

	events := s.recommender.Process(r.Context(), req.Query)
	if wantsJSON(r) {
		s.respondJSON(w, r, events)
		return
	}
	s.stream(w, r, events)
}

func (s *Server) respondJSON(w http.ResponseWriter, r *http.Request, events iter.Seq[status.Event]) {
	cached := false
	for e := range events {
		switch e.Kind {
		case status.KindCacheHit:
			cached = true
		case status.KindResult:
			env, _ := e.Data.(envelope.Envelope)
			writeJSON(w, http.StatusOK, envelopeToDTO(env, cached))
			return
		case status.KindError:
			s.handleDomainError(w, r, e)
			return
		}
	}
	writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "stream ended without result")
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, events iter.Seq[status.Event]) {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for e := range events {
		var payload any
		if e.Kind == status.KindError {
			s.logFailure(r, e)
			payload = errorResponse(e)
		} else {
			payload = eventToDTO(e)
		}
		if err := writeEvent(w, string(e.Kind), payload); err != nil {
			log := logger.FromContext(r.Context(), s.logger)
			if errors.Is(err, errEncodeEvent) {
				// The stream still has to end with an error event.
				log.Error("Event encoding failed", zap.String("kind", string(e.Kind)), zap.Error(err))
				_ = writeEvent(w, string(status.KindError), ErrorResponse{
					Code: ErrorCodeInternal, Message: "internal error", Stage: string(e.Stage),
				})
				_ = rc.Flush()
				return
			}
			log.Debug("Event stream write failed", zap.Error(err))
			return
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return
		}
	}
}

var errEncodeEvent = errors.New("encode event")

// writeEvent writes one server-sent event frame.
func writeEvent(w io.Writer, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w %s: %w", errEncodeEvent, kind, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kind, data); err != nil {
		return fmt.Errorf("write %s event: %w", kind, err)
	}
	return nil
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/event-stream")
}

// --- Taxonomy ---

// Taxonomy lists the attributes, their values and the catalog categories.
func (s *Server) Taxonomy(w http.ResponseWriter, _ *http.Request) {
	attrs := s.registry.Attributes()
	resp := taxonomyResponse{
		Attributes:    make([]attributeDTO, len(attrs)),
		Categories:    s.registry.Categories(),
		SelectionSize: taxonomy.SelectionSize,
	}
	for i, a := range attrs {
		resp.Attributes[i] = attributeDTO{
			Name:   string(a.Name()),
			Label:  a.Label(),
			Column: a.Column(),
			Values: a.Values(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Usage ---

// Usage reports oracle token consumption for ?period=day|month.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period, ok := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "period must be day or month")
		return
	}
	rep := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, usageResponse{
		Period:          string(rep.Period),
		Provider:        rep.Provider,
		PeriodStart:     rep.PeriodStart,
		PeriodEnd:       rep.PeriodEnd,
		TokensUsed:      rep.TokensUsed,
		TokensLimit:     rep.TokensLimit,
		TokensRemaining: rep.TokensRemaining,
		CostUSD:         rep.CostUSD,
		Exhausted:       rep.Exhausted(),
	})
}

// --- Health ---

// HealthCheck returns 200 when every component is up, 503 otherwise.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	rep := s.health.Check(r.Context())

	checks := make(map[string]string, len(rep.Checks))
	for k, v := range rep.Checks {
		checks[k] = string(v)
	}

	code := http.StatusOK
	if rep.Status != health.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{Status: string(rep.Status), Checks: checks})
}

// --- Errors ---

type errorHandler struct {
	match  func(error) bool
	status int
	code   ErrorCode
	msg    func(error) string
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return errorHandler{
		match:  func(err error) bool { return errors.Is(err, sentinel) },
		status: status,
		code:   code,
		msg:    func(error) string { return sentinel.Error() },
	}
}

var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
	{
		match:  func(err error) bool { return errors.Is(err, domain.ErrRankingInput) },
		status: http.StatusUnprocessableEntity,
		code:   ErrorCodeRankingInput,
		msg:    safeRankingMessage,
	},
	sentinelHandler(domain.ErrCatalogUnavailable, http.StatusServiceUnavailable, ErrorCodeCatalogUnavailable),
	sentinelHandler(domain.ErrOracleQuotaExceeded, http.StatusPaymentRequired, ErrorCodeQuotaExceeded),
	sentinelHandler(domain.ErrOracleProvider, http.StatusBadGateway, ErrorCodeOracleProvider),
	sentinelHandler(domain.ErrOracleTimeout, http.StatusGatewayTimeout, ErrorCodeTimeout),
	sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorCodeTimeout),
	sentinelHandler(context.Canceled, 499, ErrorCodeCancelled),
}

// safeRankingMessage keeps the field and reason but drops wrapped internals.
func safeRankingMessage(err error) string {
	var rie *domain.RankingInputError
	if errors.As(err, &rie) {
		return rie.Error()
	}
	return domain.ErrRankingInput.Error()
}

// classify maps an error to status, code and a client-safe message.
func classify(err error) (int, ErrorCode, string) {
	for _, h := range errorHandlers {
		if h.match(err) {
			return h.status, h.code, h.msg(err)
		}
	}
	return http.StatusInternalServerError, ErrorCodeInternal, "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, e status.Event) {
	s.logFailure(r, e)
	code, _, _ := classify(e.Err)
	writeJSONError(w, code, errorResponse(e))
}

func errorResponse(e status.Event) ErrorResponse {
	_, code, msg := classify(e.Err)
	return ErrorResponse{Code: code, Message: msg, Stage: string(e.Stage)}
}

func (s *Server) logFailure(r *http.Request, e status.Event) {
	logger.FromContext(r.Context(), s.logger).Error("Recommendation failed", zap.String("stage", string(e.Stage)), zap.Error(e.Err))
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSONError(w, status, ErrorResponse{Code: code, Message: message})
}

func writeJSONError(w http.ResponseWriter, status int, resp ErrorResponse) {
	writeJSON(w, status, resp)
}
