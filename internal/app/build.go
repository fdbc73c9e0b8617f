package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ent0n29/salesbot/internal/brain"
	"github.com/ent0n29/salesbot/internal/config"
	"github.com/ent0n29/salesbot/internal/httpapi"
	"github.com/ent0n29/salesbot/internal/leads"
	"github.com/ent0n29/salesbot/internal/memory"
	"github.com/ent0n29/salesbot/internal/observability"
	"github.com/ent0n29/salesbot/internal/sales"
	"github.com/ent0n29/salesbot/internal/session"
)

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Sessions  *session.Manager
	Brain     brain.Adapter
	Store     memory.Store
	Publisher leads.Publisher
	Metrics   *observability.Metrics

	// Cleanup should be called on shutdown to release external resources (DB, Kafka writer).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("memory store init failed: %w", err)
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout, engineFactory(cfg))
	sessions.SetEndedRetention(cfg.SessionRetention)

	adapter, err := brain.NewAdapter(brain.Config{
		Mode:        cfg.BrainMode,
		HTTPURL:     cfg.BrainHTTPURL,
		HTTPTimeout: cfg.BrainHTTPTimeout,
		MaxRetries:  cfg.BrainMaxRetries,
	}, sessions)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("brain adapter init failed: %w", err)
	}
	if fb, ok := adapter.(*brain.FallbackAdapter); ok {
		fb.OnPrimaryError(func(err error) {
			metrics.ObserveFallback(brain.ErrorCode(err))
		})
	}

	publisher := leads.NewPublisher(cfg.KafkaBrokers, cfg.KafkaLeadTopic)

	api := httpapi.New(cfg, sessions, adapter, store, publisher, metrics)
	sessions.SetExpireHook(api.HandleExpired)
	if f, ok := store.(memory.Forgetter); ok {
		sessions.SetPurgeHook(forgetTranscript(f))
	}

	log.Printf("brain: mode=%s llm=%t transcript store: %s lead events: %s",
		cfg.BrainMode, strings.TrimSpace(cfg.BrainHTTPURL) != "", store.Mode(), publisherMode(cfg))

	cleanup := func() error {
		var errs []string
		if err := publisher.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Sessions:  sessions,
		Brain:     adapter,
		Store:     store,
		Publisher: publisher,
		Metrics:   metrics,
		Cleanup:   cleanup,
	}, nil
}

// engineFactory applies the sales settings to every new session's engine.
func engineFactory(cfg config.Config) session.EngineFactory {
	var chooser sales.Chooser
	if cfg.SalesRandomSeed != 0 {
		chooser = sales.NewSeededChooser(cfg.SalesRandomSeed)
	}
	return func() *sales.Engine {
		opts := []sales.Option{sales.WithHistoryLimit(cfg.SalesHistoryLimit)}
		if chooser != nil {
			opts = append(opts, sales.WithChooser(chooser))
		}
		return sales.NewEngine(opts...)
	}
}

// forgetTranscript releases a purged session's turns from stores that only live in process.
func forgetTranscript(f memory.Forgetter) func(string) {
	return func(sessionID string) {
		if err := f.Forget(context.Background(), sessionID); err != nil {
			log.Printf("transcript forget for session %s failed: %v", sessionID, err)
		}
	}
}

func publisherMode(cfg config.Config) string {
	if len(cfg.KafkaBrokers) == 0 {
		return "log"
	}
	return "kafka:" + cfg.KafkaLeadTopic
}
