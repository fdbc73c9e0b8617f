package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/salesbot/internal/brain"
	"github.com/ent0n29/salesbot/internal/config"
	"github.com/ent0n29/salesbot/internal/leads"
	"github.com/ent0n29/salesbot/internal/memory"
	"github.com/ent0n29/salesbot/internal/observability"
	"github.com/ent0n29/salesbot/internal/policy"
	"github.com/ent0n29/salesbot/internal/session"
)

const publishTimeout = 5 * time.Second

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	brain    brain.Adapter
	store    memory.Store
	leads    leads.Publisher
	metrics  *observability.Metrics
	upgrader websocket.Upgrader

	pingInterval time.Duration
}

func New(cfg config.Config, sessions *session.Manager, adapter brain.Adapter, store memory.Store, publisher leads.Publisher, metrics *observability.Metrics) *Server {
	if store == nil {
		store = memory.NewInMemoryStore()
	}
	if publisher == nil {
		publisher = leads.LogPublisher{}
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		brain:    adapter,
		store:    store,
		leads:    publisher,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only the site hosting the widget may open a chat socket unless told otherwise.
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
		pingInterval: defaultPingInterval,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/chat/session", s.handleCreateSession)
	r.Route("/v1/chat/session/{id}", func(r chi.Router) {
		r.Post("/end", s.handleEndSession)
		r.Post("/message", s.handleMessage)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/commitments", s.handleCommitment)
		r.Post("/stage", s.handleStage)
		r.Get("/profile", s.handleProfile)
	})
	r.Get("/v1/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"brain_mode":       s.cfg.BrainMode,
		"transcript_store": s.store.Mode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.VisitorID) == "" {
		req.VisitorID = "anonymous"
	}

	sess := s.sessions.Create(strings.TrimSpace(req.VisitorID))
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:       sess.ID,
		VisitorID:       sess.VisitorID,
		Status:          sess.Status,
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	profile, err := s.sessions.Profile(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	s.publish(r.Context(), leads.Event{
		Type:      leads.EventSessionEnded,
		SessionID: sess.ID,
		VisitorID: sess.VisitorID,
		Stage:     profile.Stage,
		Profile:   profile,
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"session": sess,
		"profile": profile,
	})
}

// HandleExpired reports a session closed by the inactivity janitor.
func (s *Server) HandleExpired(sess *session.Session) {
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("expired").Inc()

	profile, err := s.sessions.Profile(sess.ID)
	if err != nil {
		return
	}
	s.publish(context.Background(), leads.Event{
		Type:      leads.EventSessionEnded,
		SessionID: sess.ID,
		VisitorID: sess.VisitorID,
		Label:     "expired",
		Stage:     profile.Stage,
		Profile:   profile,
	})
}

// publish ships a lead event with visitor text masked. Failures are logged and counted; the
// visitor's request never fails on them.
func (s *Server) publish(ctx context.Context, ev leads.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	ev.Label, _ = policy.RedactPII(ev.Label)
	ev.Profile, _ = policy.RedactProfile(ev.Profile)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.leads.Publish(ctx, ev); err != nil {
		s.metrics.LeadEvents.WithLabelValues(string(ev.Type), "error").Inc()
		log.Printf("lead event %s for session %s failed: %v", ev.Type, ev.SessionID, err)
		return
	}
	s.metrics.LeadEvents.WithLabelValues(string(ev.Type), "published").Inc()
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
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
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

func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, session.ErrEnded):
		respondError(w, http.StatusConflict, "session_ended", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
