package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/aretw0/ussdflow/pkg/templates"
	"github.com/aretw0/ussdflow/pkg/ui"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
)

//go:embed openapi.yaml
var rawDocument []byte

// maxBody caps request bodies; a hierarchy dump of a dialog is a few KB.
const maxBody = 1 << 20

// Controller is the automation surface served over HTTP.
type Controller interface {
	Status() domain.Status
	Watch(ctx context.Context) <-chan domain.Status
	Ready(ctx context.Context) bool
	OpenAutomationSettings(ctx context.Context) error
	Setup(ctx context.Context, s domain.Setup) error
	DialAndAutomate(ctx context.Context, code string, s domain.Setup) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Reset(ctx context.Context) error
	Interrupt(ctx context.Context) error
	SubmitPIN(ctx context.Context, pin string) error
	HandleDialog(ctx context.Context, root ui.Node) error
}

// Renderer produces a USSD code for a transaction on a network.
type Renderer interface {
	Render(t domain.TransactionType, n templates.Network, values templates.Values) (string, error)
}

// Server serves a Controller.
type Server struct {
	ctrl      Controller
	templates Renderer
	ledger    ports.Ledger
	metrics   http.Handler
	logger    *slog.Logger
	router    routers.Router
}

// Option configures a Server.
type Option func(*Server)

// WithTemplates lets /dial render codes when the request carries none.
func WithTemplates(r Renderer) Option {
	return func(s *Server) { s.templates = r }
}

// WithLedger enables GET /outcomes.
func WithLedger(l ports.Ledger) Option {
	return func(s *Server) { s.ledger = l }
}

// WithMetrics mounts a metrics handler on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func init() {
	openapi3filter.RegisterBodyDecoder("application/xml", openapi3filter.FileBodyDecoder)
	openapi3filter.RegisterBodyDecoder("text/xml", openapi3filter.FileBodyDecoder)
}

// LoadDocument parses the embedded OpenAPI document.
func LoadDocument() (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// NewHandler builds the HTTP handler. Requests matching a documented route are
// validated against the embedded OpenAPI document before they reach a handler.
func NewHandler(ctrl Controller, opts ...Option) (http.Handler, error) {
	doc, err := LoadDocument()
	if err != nil {
		return nil, err
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build openapi router: %w", err)
	}

	s := &Server{ctrl: ctrl, logger: logging.NewNop(), router: router}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(enableCORS, s.validate)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawDocument)
	})
	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/ready", s.getReady)
	r.Get("/status", s.getStatus)
	r.Get("/events", s.subscribeEvents)
	r.Get("/outcomes", s.listOutcomes)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Post("/settings/open", s.openSettings)
	r.Post("/transactions", s.setupTransaction)
	r.Post("/dial", s.dial)
	r.Route("/automation", func(r chi.Router) {
		r.Post("/enable", s.simple("enable", ctrl.Enable))
		r.Post("/disable", s.simple("disable", ctrl.Disable))
		r.Post("/reset", s.simple("reset", ctrl.Reset))
		r.Post("/interrupt", s.simple("interrupt", ctrl.Interrupt))
	})
	r.Post("/pin", s.submitPIN)
	r.Post("/dialog", s.handleDialog)

	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validate checks documented requests against the OpenAPI document.
// Routes outside the document pass through untouched.
func (s *Server) validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		route, params, err := s.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
			Options:    &openapi3filter.Options{MultiError: false},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			s.logger.Warn("Request rejected", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusFor maps controller errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownTransactionType),
		errors.Is(err, domain.ErrInvalidPhone),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidPIN),
		errors.Is(err, domain.ErrEmptyCode),
		errors.Is(err, templates.ErrMissingValue),
		errors.Is(err, templates.ErrNoTemplate),
		errors.Is(err, ui.ErrEmptyHierarchy):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotAwaitingPIN):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoActiveDialog):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAutomationUnavailable),
		errors.Is(err, domain.ErrControllerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "op", op, "err", err)
	} else {
		s.logger.Debug("Request refused", "op", op, "err", err)
	}
	writeError(w, code, err)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := LoadDocument(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "ussdflow-http",
		"version":     strings.TrimSpace(ussdflow.Version),
		"api_version": apiVersion,
	})
}

func (s *Server) getReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ready": s.ctrl.Ready(r.Context())})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) listOutcomes(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusNotFound, errors.New("no ledger configured"))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	outcomes, err := s.ledger.List(r.Context(), limit)
	if err != nil {
		s.fail(w, "list outcomes", err)
		return
	}
	if outcomes == nil {
		outcomes = []domain.Outcome{}
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func (s *Server) openSettings(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.OpenAutomationSettings(r.Context()); err != nil {
		s.fail(w, "open settings", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setupTransaction(w http.ResponseWriter, r *http.Request) {
	var body domain.Setup
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := s.ctrl.Setup(r.Context(), body); err != nil {
		s.fail(w, "setup", err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

type dialRequest struct {
	domain.Setup
	Code     string `json:"code"`
	Network  string `json:"network"`
	Merchant string `json:"merchant"`
}

func (s *Server) dial(w http.ResponseWriter, r *http.Request) {
	var body dialRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	body.Phone = templates.NormalizePhone(body.Phone)
	code := strings.TrimSpace(body.Code)
	if code == "" && s.templates != nil {
		var err error
		code, err = s.render(body)
		if err != nil {
			s.fail(w, "render", err)
			return
		}
	}

	if err := s.ctrl.DialAndAutomate(r.Context(), code, body.Setup); err != nil {
		s.fail(w, "dial", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"code": code})
}

func (s *Server) render(body dialRequest) (string, error) {
	network := templates.ParseNetwork(body.Network)
	if network == templates.Unknown {
		network = templates.DetectNetwork(body.Phone)
	}
	return s.templates.Render(body.Type, network, templates.Values{
		Amount:   body.Amount,
		Phone:    body.Phone,
		Merchant: body.Merchant,
	})
}

func (s *Server) simple(op string, fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			s.fail(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, s.ctrl.Status())
	}
}

func (s *Server) submitPIN(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := s.ctrl.SubmitPIN(r.Context(), body.PIN); err != nil {
		s.fail(w, "submit pin", err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleDialog(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err))
		return
	}
	root, err := ui.ParseHierarchy(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ctrl.HandleDialog(r.Context(), root); err != nil {
		s.fail(w, "dialog", err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.ctrl.Status())
}

// subscribeEvents streams every status change as an SSE "status" event.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates := s.ctrl.Watch(r.Context())
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(st)
			if err != nil {
				s.logger.Error("Failed to encode status", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
