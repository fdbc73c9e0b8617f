package leads

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/ent0n29/salesbot/internal/sales"
)

type EventType string

const (
	EventMicroCommitment EventType = "micro_commitment"
	EventStageAdvanced   EventType = "stage_advanced"
	EventSessionEnded    EventType = "session_ended"
)

// Event is a lead-qualification milestone for analytics consumers.
type Event struct {
	Type      EventType               `json:"type"`
	SessionID string                  `json:"session_id"`
	VisitorID string                  `json:"visitor_id,omitempty"`
	Label     string                  `json:"label,omitempty"`
	Stage     sales.Stage             `json:"stage,omitempty"`
	Profile   sales.ConversationState `json:"profile"`
	At        time.Time               `json:"at"`
}

// Publisher ships lead events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NewPublisher returns a Kafka publisher when brokers are configured, otherwise one that logs.
func NewPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return LogPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}

// LogPublisher writes events to the process log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	log.Printf("lead event: %s", payload)
	return nil
}

func (LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Close() error { return nil }
