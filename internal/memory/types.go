package memory

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TurnRecord stores a single visitor or assistant chat turn.
type TurnRecord struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	VisitorID   string    `json:"visitor_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Intent      string    `json:"intent,omitempty"`
	Source      string    `json:"source,omitempty"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists chat transcripts. Lead-qualification state is never stored here.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	RecentContext(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)
	Mode() string
	Close() error
}

// Forgetter is implemented by stores that hold transcripts only for the life of a session
// and must drop them once the session is purged.
type Forgetter interface {
	Forget(ctx context.Context, sessionID string) error
}
