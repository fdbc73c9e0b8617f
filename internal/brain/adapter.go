package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/salesbot/internal/sales"
)

const (
	SourceLLM    = "llm"
	SourceEngine = "engine"
)

// Message is one prior chat turn forwarded to the completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the normalized chat turn.
type Request struct {
	SessionID string
	Message   string
	History   []Message
}

// Response is the reply shown to the visitor. Reply is set only when the sales engine
// produced the text.
type Response struct {
	Text   string
	Source string
	Reply  *sales.Reply
}

// Adapter produces a reply for one visitor turn.
type Adapter interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Config controls adapter construction.
type Config struct {
	Mode        string
	HTTPURL     string
	HTTPTimeout time.Duration
	MaxRetries  int
}

// NewAdapter builds the reply chain. Every mode ends in the sales engine so a visitor
// always gets an answer.
func NewAdapter(cfg Config, engines EngineSource) (Adapter, error) {
	if engines == nil {
		return nil, errors.New("engine source is required")
	}
	engine := NewEngineAdapter(engines)

	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return engine, nil
		}
		return NewFallbackAdapter(newHTTPAdapter(cfg), engine), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("brain HTTP url is required for http mode")
		}
		return NewFallbackAdapter(newHTTPAdapter(cfg), engine), nil
	case "engine":
		return engine, nil
	default:
		return nil, fmt.Errorf("unsupported brain mode %q", cfg.Mode)
	}
}

func newHTTPAdapter(cfg Config) *HTTPAdapter {
	a := NewHTTPAdapter(cfg.HTTPURL, cfg.HTTPTimeout)
	a.maxRetries = max(cfg.MaxRetries, 0)
	return a
}
