package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/salesbot/internal/brain"
	"github.com/ent0n29/salesbot/internal/leads"
	"github.com/ent0n29/salesbot/internal/memory"
	"github.com/ent0n29/salesbot/internal/policy"
	"github.com/ent0n29/salesbot/internal/sales"
	"github.com/ent0n29/salesbot/internal/session"
)

type messageRequest struct {
	Message             string          `json:"message"`
	ConversationHistory []brain.Message `json:"conversationHistory"`
}

type messageResponse struct {
	Message   string       `json:"message"`
	Source    string       `json:"source"`
	Intent    sales.Intent `json:"intent,omitempty"`
	NextStage sales.Stage  `json:"next_stage,omitempty"`
}

type analyzeRequest struct {
	Message string `json:"message"`
}

type commitmentRequest struct {
	Label string `json:"label"`
}

type stageRequest struct {
	Stage string `json:"stage"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	resp, err := s.runTurn(r.Context(), chi.URLParam(r, "id"), req.Message, req.ConversationHistory)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrEnded) {
			respondSessionError(w, err)
			return
		}
		respondError(w, http.StatusBadGateway, "brain_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// runTurn answers one visitor message and records both sides of the exchange.
// A nil history is replaced by the stored transcript.
func (s *Server) runTurn(ctx context.Context, sessionID, text string, history []brain.Message) (messageResponse, error) {
	sess, err := s.sessions.BeginTurn(sessionID)
	if err != nil {
		return messageResponse{}, err
	}
	text = strings.TrimSpace(text)
	if history == nil {
		history = s.recentHistory(ctx, sessionID)
	}

	start := time.Now()
	reply, err := s.brain.Complete(ctx, brain.Request{
		SessionID: sessionID,
		Message:   text,
		History:   history,
	})
	if err != nil {
		return messageResponse{}, err
	}
	s.metrics.ObserveReply(reply.Source, time.Since(start))

	out := messageResponse{Message: reply.Text, Source: reply.Source}
	if reply.Reply != nil {
		out.Intent = reply.Reply.Analysis.Intent
		out.NextStage = reply.Reply.Analysis.NextStage
		s.metrics.Intents.WithLabelValues(string(out.Intent)).Inc()
		if s.cfg.SalesAutoAdvance && out.NextStage != "" {
			s.autoAdvance(ctx, sess, out.NextStage)
		}
		if profile, err := s.sessions.Profile(sessionID); err == nil {
			s.metrics.LeadReadiness.Observe(float64(profile.ReadyToBuy))
		}
	}

	s.saveTurn(ctx, sess, memory.RoleUser, text, string(out.Intent), "")
	s.saveTurn(ctx, sess, memory.RoleAssistant, out.Message, "", out.Source)
	return out, nil
}

func (s *Server) autoAdvance(ctx context.Context, sess *session.Session, stage sales.Stage) {
	engine, err := s.sessions.Engine(sess.ID)
	if err != nil {
		return
	}
	profile, moved := engine.MoveToStage(stage)
	if !moved {
		return
	}
	s.publish(ctx, leads.Event{
		Type:      leads.EventStageAdvanced,
		SessionID: sess.ID,
		VisitorID: sess.VisitorID,
		Stage:     stage,
		Profile:   profile,
	})
}

func (s *Server) recentHistory(ctx context.Context, sessionID string) []brain.Message {
	if s.cfg.TranscriptContextTurns <= 0 {
		return nil
	}
	turns, err := s.store.RecentContext(ctx, sessionID, s.cfg.TranscriptContextTurns)
	if err != nil {
		log.Printf("transcript context for session %s failed: %v", sessionID, err)
		return nil
	}
	history := make([]brain.Message, 0, len(turns))
	for _, t := range turns {
		history = append(history, brain.Message{Role: t.Role, Content: t.Content})
	}
	return history
}

func (s *Server) saveTurn(ctx context.Context, sess *session.Session, role, content, intent, source string) {
	redacted, changed := policy.RedactPII(content)
	err := s.store.SaveTurn(ctx, memory.TurnRecord{
		SessionID:   sess.ID,
		VisitorID:   sess.VisitorID,
		Role:        role,
		Content:     redacted,
		Intent:      intent,
		Source:      source,
		PIIRedacted: changed,
	})
	if err != nil {
		log.Printf("transcript save for session %s failed: %v", sess.ID, err)
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	engine, err := s.sessions.Engine(chi.URLParam(r, "id"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	analysis := engine.Analyze(req.Message)
	s.metrics.Intents.WithLabelValues(string(analysis.Intent)).Inc()
	respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleCommitment(w http.ResponseWriter, r *http.Request) {
	var req commitmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "label is required")
		return
	}
	if err := s.recordCommitment(r.Context(), chi.URLParam(r, "id"), label); err != nil {
		respondSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordCommitment(ctx context.Context, sessionID, label string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	engine, err := s.sessions.Engine(sessionID)
	if err != nil {
		return err
	}
	engine.RecordMicroCommitment(label)
	profile := engine.Profile()
	s.metrics.LeadReadiness.Observe(float64(profile.ReadyToBuy))
	s.publish(ctx, leads.Event{
		Type:      leads.EventMicroCommitment,
		SessionID: sess.ID,
		VisitorID: sess.VisitorID,
		Label:     label,
		Stage:     profile.Stage,
		Profile:   profile,
	})
	return nil
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	stage, err := sales.ParseStage(req.Stage)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown_stage", err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	engine, err := s.sessions.Engine(id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	engine.AdvanceStage(stage)
	s.publish(r.Context(), leads.Event{
		Type:      leads.EventStageAdvanced,
		SessionID: sess.ID,
		VisitorID: sess.VisitorID,
		Stage:     stage,
		Profile:   engine.Profile(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.sessions.Profile(chi.URLParam(r, "id"))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
