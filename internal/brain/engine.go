package brain

import (
	"context"

	"github.com/ent0n29/salesbot/internal/sales"
)

// EngineSource resolves the sales engine owned by a session.
type EngineSource interface {
	Engine(sessionID string) (*sales.Engine, error)
}

// EngineAdapter answers from the scripted sales engine. It only fails when the session
// cannot be resolved.
type EngineAdapter struct {
	engines EngineSource
}

func NewEngineAdapter(engines EngineSource) *EngineAdapter {
	return &EngineAdapter{engines: engines}
}

func (a *EngineAdapter) Complete(_ context.Context, req Request) (Response, error) {
	engine, err := a.engines.Engine(req.SessionID)
	if err != nil {
		return Response{}, err
	}
	reply := engine.Respond(req.Message)
	return Response{
		Text:   reply.Text,
		Source: SourceEngine,
		Reply:  &reply,
	}, nil
}
