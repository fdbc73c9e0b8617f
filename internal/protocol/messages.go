package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientMessage    MessageType = "client_message"
	TypeClientCommitment MessageType = "client_commitment"
	TypeAssistantMessage MessageType = "assistant_message"
	TypeSystemEvent      MessageType = "system_event"
	TypeErrorEvent       MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientMessage is one visitor chat turn. SessionID may be omitted; the
// connection's session is used then.
type ClientMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Text      string      `json:"text"`
	TSMs      int64       `json:"ts_ms,omitempty"`
}

// ClientCommitment reports a small yes from the visitor (opened the
// calendar, downloaded the case study, ...).
type ClientCommitment struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Label     string      `json:"label"`
}

type AssistantMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	TurnID    string      `json:"turn_id"`
	Text      string      `json:"text"`
	Source    string      `json:"source"`
	Intent    string      `json:"intent,omitempty"`
	NextStage string      `json:"next_stage,omitempty"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientMessage:
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid client_message: text is required")
		}
		return msg, nil
	case TypeClientCommitment:
		var msg ClientCommitment
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		msg.Label = strings.TrimSpace(msg.Label)
		if msg.Label == "" {
			return nil, errors.New("invalid client_commitment: label is required")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
