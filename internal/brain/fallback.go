package brain

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// FallbackAdapter attempts a primary adapter first and falls back on error.
type FallbackAdapter struct {
	primary  Adapter
	fallback Adapter
	onError  func(error)
}

func NewFallbackAdapter(primary Adapter, fallback Adapter) *FallbackAdapter {
	return &FallbackAdapter{
		primary:  primary,
		fallback: fallback,
	}
}

// OnPrimaryError registers a hook called with every primary failure that triggered the fallback.
func (a *FallbackAdapter) OnPrimaryError(hook func(error)) {
	a.onError = hook
}

func (a *FallbackAdapter) Complete(ctx context.Context, req Request) (Response, error) {
	if a == nil || a.primary == nil {
		if a != nil && a.fallback != nil {
			return a.fallback.Complete(ctx, req)
		}
		return Response{}, fmt.Errorf("fallback adapter misconfigured")
	}

	resp, err := a.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	// Caller went away; nobody is waiting for a reply.
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return Response{}, err
	}
	if a.fallback == nil {
		return Response{}, err
	}
	if a.onError != nil {
		a.onError(err)
	}
	log.Printf("brain: primary failed for session %s, using fallback: %v", req.SessionID, err)

	fallbackResp, fallbackErr := a.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		return Response{}, fmt.Errorf("primary adapter error: %w; fallback adapter error: %v", err, fallbackErr)
	}
	return fallbackResp, nil
}
