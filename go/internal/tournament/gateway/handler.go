package gateway

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
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/orchestrator"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/outbox"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/repository"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/session"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/template"
)

// Controller is the orchestrator surface the gateway drives.
type Controller interface {
	StartSession(ctx context.Context, tmpl models.Template) (session.View, error)
	Do(ctx context.Context, action orchestrator.Action) (orchestrator.Outcome, error)
	Finalize(ctx context.Context) (models.HistoryRecord, models.Result, error)
	Discard(ctx context.Context) error
	View(ctx context.Context) (session.View, error)
	Subscribe(ctx context.Context) (<-chan orchestrator.Update, func(), error)
}

// TemplateSource looks up session templates.
type TemplateSource interface {
	Get(id string) (models.Template, error)
	List() []models.Template
}

// HistoryReader reads finalized sessions.
type HistoryReader interface {
	GetHistory(ctx context.Context, id uuid.UUID) (models.HistoryRecord, error)
	ListHistory(ctx context.Context, limit int) ([]models.HistoryRecord, error)
}

// OutboxStats reports relay counters for the health endpoint.
type OutboxStats interface {
	Stats() outbox.Stats
}

// StartRequest starts a session from a library template or an inline one.
type StartRequest struct {
	TemplateID string           `json:"template_id,omitempty"`
	Template   *models.Template `json:"template,omitempty"`
}

// FinalizeResponse is the reply to a finalize request.
type FinalizeResponse struct {
	Result models.Result         `json:"result"`
	Record *models.HistoryRecord `json:"record,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// HealthResponse is the reply to a health check.
type HealthResponse struct {
	Status      string          `json:"status"`
	Session     bool            `json:"session"`
	Connections ConnectionStats `json:"connections"`
	Outbox      *outbox.Stats   `json:"outbox,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{id}", s.handleGetTemplate)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleView)
			r.Post("/", s.handleStart)
			r.Delete("/", s.handleDiscard)
			r.Get("/actions", s.handleListActions)
			r.Post("/actions/{action}", s.handleAction)
			r.Post("/finalize", s.handleFinalize)
		})

		r.Get("/history", s.handleListHistory)
		r.Get("/history/{id}", s.handleGetHistory)
	})
	return r
}

func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request handled")
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Connections: s.connections.Stats()}
	if _, err := s.controller.View(r.Context()); err == nil {
		resp.Session = true
	} else if errors.Is(err, orchestrator.ErrStopped) {
		resp.Status = "stopping"
	}
	if s.outbox != nil {
		stats := s.outbox.Stats()
		resp.Outbox = &stats
	}
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// the upgrader has already written an error response on failure
	if err := s.connections.UpgradeConnection(w, r); err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
	}
}

func (s *Service) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.templates.List())
}

func (s *Service) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.templates.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tmpl)
}

func (s *Service) handleView(w http.ResponseWriter, r *http.Request) {
	view, err := s.controller.View(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Service) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var tmpl models.Template
	switch {
	case req.Template != nil:
		if err := template.Validate(*req.Template); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		tmpl = *req.Template
	case req.TemplateID != "":
		var err error
		if tmpl, err = s.templates.Get(req.TemplateID); err != nil {
			s.writeError(w, err)
			return
		}
	default:
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "template_id or template is required"})
		return
	}

	view, err := s.controller.StartSession(r.Context(), tmpl)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Service) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Discard(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleListActions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, orchestrator.Actions)
}

func (s *Service) handleAction(w http.ResponseWriter, r *http.Request) {
	out, err := s.controller.Do(r.Context(), orchestrator.Action(chi.URLParam(r, "action")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	// a rejected action is still a successful request
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleFinalize(w http.ResponseWriter, r *http.Request) {
	rec, res, err := s.controller.Finalize(r.Context())
	switch {
	case err != nil && !res.OK:
		s.writeError(w, err)
	case err != nil:
		// finalized, but the history sink failed
		s.log.Error().Err(err).Str("history_id", rec.ID.String()).Msg("history not recorded")
		s.writeJSON(w, http.StatusAccepted, FinalizeResponse{Result: res, Record: &rec, Error: err.Error()})
	case !res.OK:
		s.writeJSON(w, http.StatusOK, FinalizeResponse{Result: res})
	default:
		s.writeJSON(w, http.StatusOK, FinalizeResponse{Result: res, Record: &rec})
	}
}

func (s *Service) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	list, err := s.history.ListHistory(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []models.HistoryRecord{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Service) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid history id"})
		return
	}
	rec, err := s.history.GetHistory(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrNoSession),
		errors.Is(err, template.ErrNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrSessionActive):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}
