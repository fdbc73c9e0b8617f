package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/salesbot/internal/protocol"
	"github.com/ent0n29/salesbot/internal/session"
)

const (
	wsWriteWait         = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	if sess.Status != session.StatusActive {
		respondSessionError(w, session.ErrEnded)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 64)
	outbound := make(chan any, 64)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		s.runConnection(ctx, sessionID, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ping := time.NewTicker(s.pingInterval)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				// A peer that stops answering pings hits the read deadline and the socket closes.
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					cancel()
					return
				}
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout()))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout()))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout()))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.enqueue(outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}

		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

// runConnection handles one socket's frames in order, so turns of a session never interleave.
func (s *Server) runConnection(ctx context.Context, sessionID string, inbound <-chan any, outbound chan<- any) {
	s.enqueue(outbound, protocol.SystemEvent{
		Type:      protocol.TypeSystemEvent,
		SessionID: sessionID,
		Code:      "session_ready",
	})

	for msg := range inbound {
		switch m := msg.(type) {
		case protocol.ClientMessage:
			if m.SessionID != "" && m.SessionID != sessionID {
				s.enqueue(outbound, sessionMismatch(sessionID))
				continue
			}
			resp, err := s.runTurn(ctx, sessionID, m.Text, nil)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.enqueue(outbound, turnError(sessionID, err))
				continue
			}
			s.enqueue(outbound, protocol.AssistantMessage{
				Type:      protocol.TypeAssistantMessage,
				SessionID: sessionID,
				TurnID:    uuid.NewString(),
				Text:      resp.Message,
				Source:    resp.Source,
				Intent:    string(resp.Intent),
				NextStage: string(resp.NextStage),
			})
		case protocol.ClientCommitment:
			if m.SessionID != "" && m.SessionID != sessionID {
				s.enqueue(outbound, sessionMismatch(sessionID))
				continue
			}
			if err := s.recordCommitment(ctx, sessionID, m.Label); err != nil {
				s.enqueue(outbound, turnError(sessionID, err))
				continue
			}
			s.enqueue(outbound, protocol.SystemEvent{
				Type:      protocol.TypeSystemEvent,
				SessionID: sessionID,
				Code:      "commitment_recorded",
				Detail:    m.Label,
			})
		}
	}
}

// enqueue keeps websocket writes on the writer goroutine; frames are dropped when the queue is full.
func (s *Server) enqueue(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
		if t, ok := messageTypeOf(msg); ok {
			s.metrics.WSMessages.WithLabelValues("dropped", string(t)).Inc()
		}
	}
}

func (s *Server) readTimeout() time.Duration {
	if s.cfg.SessionInactivityTimeout > 0 {
		return s.cfg.SessionInactivityTimeout
	}
	return 30 * time.Minute
}

func sessionMismatch(sessionID string) protocol.ErrorEvent {
	return protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: sessionID,
		Code:      "session_mismatch",
		Source:    "gateway",
		Detail:    "frame session_id does not match the connection",
	}
}

func turnError(sessionID string, err error) protocol.ErrorEvent {
	ev := protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: sessionID,
		Code:      "brain_unavailable",
		Source:    "brain",
		Retryable: true,
		Detail:    err.Error(),
	}
	switch {
	case errors.Is(err, session.ErrNotFound):
		ev.Code, ev.Source, ev.Retryable = "session_not_found", "session", false
	case errors.Is(err, session.ErrEnded):
		ev.Code, ev.Source, ev.Retryable = "session_ended", "session", false
	}
	return ev
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientMessage:
		return m.Type, true
	case protocol.ClientCommitment:
		return m.Type, true
	case protocol.AssistantMessage:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
