package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/solacehq/solace/internal/call"
	"github.com/solacehq/solace/internal/config"
	"github.com/solacehq/solace/internal/memory"
	"github.com/solacehq/solace/internal/observability"
	"github.com/solacehq/solace/internal/session"
)

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	store    memory.Store
	chat     call.ChatStreamer
	chatAPI  http.Handler
	metrics  *observability.Metrics
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, store memory.Store, chat call.ChatStreamer, chatAPI http.Handler, metrics *observability.Metrics, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		store:    store,
		chat:     chat,
		chatAPI:  chatAPI,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin, so another site cannot drive the user's mic session
				// if the service is ever exposed beyond localhost.
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

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chat", s.handleChat)
	r.Post("/v1/sessions", s.handleCreateSession)
	r.Get("/v1/sessions/{id}", s.handleGetSession)
	r.Post("/v1/sessions/{id}/end", s.handleEndSession)
	r.Get("/v1/sessions/{id}/history", s.handleSessionHistory)
	r.Get("/v1/alerts", s.handleListAlerts)
	r.Post("/v1/alerts/{id}/ack", s.handleAckAlert)
	r.Get("/v1/voice/ws", s.handleVoiceWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chatAPI == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "chat gateway not configured")
		return
	}
	s.chatAPI.ServeHTTP(w, r)
}

type createSessionRequest struct {
	UserID   string `json:"user_id"`
	Language string `json:"language"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = s.cfg.CallLanguage
	}

	sess := s.sessions.Create(req.UserID, req.Language)
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.Get(id); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	history, err := s.store.SessionHistory(r.Context(), id, 50)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_failed", err.Error())
		return
	}
	if history == nil {
		history = []memory.TurnRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"session_id": id, "turns": history})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.store.OpenAlerts(r.Context(), 100)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "alerts_failed", err.Error())
		return
	}
	if alerts == nil {
		alerts = []memory.CrisisAlert{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleAckAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.AcknowledgeAlert(r.Context(), id); err != nil {
		if errors.Is(err, memory.ErrAlertNotFound) {
			respondError(w, http.StatusNotFound, "alert_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "ack_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "acknowledged"})
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
