package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tsiory/mpanampy/internal/assistant"
	"github.com/tsiory/mpanampy/internal/config"
	"github.com/tsiory/mpanampy/internal/conversation"
	"github.com/tsiory/mpanampy/internal/locale"
	"github.com/tsiory/mpanampy/internal/observability"
)

type Server struct {
	cfg      config.Config
	widgets  *assistant.Manager
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	static   http.Handler
}

func New(cfg config.Config, widgets *assistant.Manager, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		widgets: widgets,
		metrics: metrics,
		static:  newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections can drive a widget
				// conversation unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/widget/session", s.handleCreateWidget)
	r.Get("/v1/widget/ws", s.handleWidgetWS)
	r.Post("/v1/widget/{id}/messages", s.handleSubmit)
	r.Get("/v1/widget/{id}/messages", s.handleListMessages)
	r.Delete("/v1/widget/{id}/messages", s.handleClear)
	r.Get("/v1/widget/{id}/suggestions", s.handleSuggestions)
	r.Put("/v1/widget/{id}/language", s.handleSetLanguage)
	r.Get("/v1/widget/{id}/state", s.handleState)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"active_widgets": s.widgets.ActiveCount(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type createWidgetRequest struct {
	WidgetID string `json:"widget_id"`
	Language string `json:"language"`
}

type widgetStateResponse struct {
	WidgetID    string                 `json:"widget_id"`
	Language    locale.Language        `json:"language"`
	Messages    []conversation.Message `json:"messages"`
	Suggestions []string               `json:"suggestions"`
	Awaiting    bool                   `json:"awaiting_reply"`
}

func (s *Server) handleCreateWidget(w http.ResponseWriter, r *http.Request) {
	var req createWidgetRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var lang locale.Language
	if strings.TrimSpace(req.Language) != "" {
		parsed, err := locale.Parse(req.Language)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_language", err.Error())
			return
		}
		lang = parsed
	}

	ctrl := s.widgets.Acquire(r.Context(), strings.TrimSpace(req.WidgetID), lang)
	respondJSON(w, http.StatusCreated, widgetStateResponse{
		WidgetID:    ctrl.WidgetID(),
		Language:    ctrl.Language(),
		Messages:    ctrl.Messages(),
		Suggestions: ctrl.Suggestions(),
		Awaiting:    ctrl.Awaiting(),
	})
}

type submitRequest struct {
	Text string `json:"text"`
}

type submitResponse struct {
	User        conversation.Message `json:"user"`
	Bot         conversation.Message `json:"bot"`
	Suggestions []string             `json:"suggestions"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	user, bot, err := ctrl.Submit(r.Context(), req.Text)
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "empty_message", err.Error())
		return
	case errors.Is(err, assistant.ErrTurnInFlight):
		respondError(w, http.StatusConflict, "turn_in_flight", err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, submitResponse{
		User:        user,
		Bot:         bot,
		Suggestions: ctrl.Suggestions(),
	})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": ctrl.Messages()})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	welcome, err := ctrl.Clear(r.Context())
	if errors.Is(err, assistant.ErrTurnInFlight) {
		respondError(w, http.StatusConflict, "turn_in_flight", err.Error())
		return
	}
	s.metrics.WidgetEvents.WithLabelValues("cleared").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"messages": []conversation.Message{welcome},
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"suggestions": ctrl.Suggestions()})
}

type setLanguageRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}

	var req setLanguageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	lang, err := locale.Parse(req.Language)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_language", err.Error())
		return
	}

	ctrl.SetLanguage(r.Context(), lang)
	respondJSON(w, http.StatusOK, widgetStateResponse{
		WidgetID:    ctrl.WidgetID(),
		Language:    ctrl.Language(),
		Messages:    ctrl.Messages(),
		Suggestions: ctrl.Suggestions(),
		Awaiting:    ctrl.Awaiting(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"awaiting_reply": ctrl.Awaiting(),
		"language":       ctrl.Language(),
		"message_count":  len(ctrl.Messages()),
	})
}

func (s *Server) controllerFor(w http.ResponseWriter, r *http.Request) (*assistant.Controller, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_widget_id", "missing widget id")
		return nil, false
	}
	ctrl, err := s.widgets.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "widget_not_found", err.Error())
		return nil, false
	}
	return ctrl, true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
