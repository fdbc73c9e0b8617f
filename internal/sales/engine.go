package sales

import (
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"
)

// MaxInputRunes bounds how much of a message is classified and recorded.
const MaxInputRunes = 2000

// Analysis is the outcome of classifying one message. NextStage is a suggestion only;
// the caller decides whether to apply it with AdvanceStage.
type Analysis struct {
	Intent    Intent    `json:"detected_intent"`
	Triggers  []Trigger `json:"triggers"`
	NextStage Stage     `json:"next_stage,omitempty"`
	Strategy  string    `json:"response_strategy"`
}

// Reply is a generated response together with how it was chosen.
type Reply struct {
	Text     string   `json:"text"`
	Analysis Analysis `json:"analysis"`
	Topic    Topic    `json:"topic"`
	Category Category `json:"category"`
}

// Chooser picks an index in [0, n) among equivalent template variants.
type Chooser func(n int) int

// NewSeededChooser returns a deterministic chooser safe for use by many engines.
func NewSeededChooser(seed uint64) Chooser {
	var mu sync.Mutex
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return r.IntN(n)
	}
}

// Option configures an Engine.
type Option func(*Engine)

func WithChooser(c Chooser) Option {
	return func(e *Engine) {
		if c != nil {
			e.choose = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithCatalog(c Catalog) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}

func WithIntentClassifier(c IntentClassifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.intents = c
		}
	}
}

func WithTopicClassifier(c TopicClassifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.topics = c
		}
	}
}

// WithHistoryLimit caps pain points, objections, interests and micro-commitments to the
// newest n entries. n <= 0 keeps them unbounded.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		e.historyLimit = n
	}
}

// Engine is the lead-qualification engine for a single visitor session. It is safe for
// concurrent use; calls are serialized.
type Engine struct {
	mu    sync.Mutex
	state ConversationState

	intents      IntentClassifier
	topics       TopicClassifier
	catalog      Catalog
	choose       Chooser
	now          func() time.Time
	historyLimit int
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		intents: NewKeywordIntentClassifier(nil),
		topics:  NewKeywordTopicClassifier(nil),
		catalog: DefaultCatalog(),
		choose:  rand.IntN,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = newState(e.now())
	return e
}

// Analyze classifies input and updates the conversation state.
func (e *Engine) Analyze(input string) Analysis {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyzeLocked(truncateRunes(input, MaxInputRunes))
}

func (e *Engine) analyzeLocked(input string) Analysis {
	rule := e.intents.ClassifyIntent(normalize(input))

	switch rule.Intent {
	case IntentPricingInquiry:
		e.state.ReadyToBuy = clampScore(e.state.ReadyToBuy + pricingReadinessStep)
	case IntentPainExpression:
		e.state.PainPoints = appendCapped(e.state.PainPoints, input, e.historyLimit)
	case IntentObjection:
		e.state.Objections = appendCapped(e.state.Objections, input, e.historyLimit)
	case IntentInformationSeeking:
		e.state.Interests = appendCapped(e.state.Interests, input, e.historyLimit)
	}

	e.state.EngagementScore = clampScore(e.state.EngagementScore + engagementStep)
	e.state.LastInteraction = e.now()

	triggers := make([]Trigger, len(rule.Triggers))
	copy(triggers, rule.Triggers)
	return Analysis{
		Intent:    rule.Intent,
		Triggers:  triggers,
		NextStage: rule.NextStage,
		Strategy:  rule.Strategy,
	}
}

// GenerateResponse analyzes input and returns the scripted reply text.
func (e *Engine) GenerateResponse(input string) string {
	return e.Respond(input).Text
}

// Respond analyzes input and selects a reply: sales intent first, topic second, discovery
// question last.
func (e *Engine) Respond(input string) Reply {
	e.mu.Lock()
	defer e.mu.Unlock()

	input = truncateRunes(input, MaxInputRunes)
	analysis := e.analyzeLocked(input)
	lower := normalize(input)

	topic := TopicNone
	var category Category
	switch analysis.Intent {
	case IntentPricingInquiry:
		category = CategoryPricing
	case IntentPainExpression:
		category = CategoryPain
	case IntentObjection:
		category = objectionCategory(lower)
	default:
		topic = e.topics.ClassifyTopic(lower)
		if c, ok := topicCategories[topic]; ok {
			category = c
		} else {
			category = CategoryDiscovery
		}
	}

	return Reply{
		Text:     e.pick(category),
		Analysis: analysis,
		Topic:    topic,
		Category: category,
	}
}

func objectionCategory(lower string) Category {
	switch {
	case containsAny(lower, "expensive", "afford", "budget"):
		return CategoryObjectionCost
	case containsAny(lower, "time", "later", "think about"):
		return CategoryObjectionTime
	default:
		return CategoryObjectionOther
	}
}

func (e *Engine) pick(c Category) string {
	variants := e.catalog[c]
	if len(variants) == 0 {
		variants = e.catalog[CategoryDiscovery]
	}
	switch len(variants) {
	case 0:
		return DefaultCatalog()[CategoryDiscovery][0]
	case 1:
		return variants[0]
	}
	i := e.choose(len(variants))
	if i < 0 || i >= len(variants) {
		i = 0
	}
	return variants[i]
}

// RecordMicroCommitment records an explicit low-friction action such as an email signup.
func (e *Engine) RecordMicroCommitment(label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.MicroCommitments = appendCapped(e.state.MicroCommitments, label, e.historyLimit)
	e.state.ReadyToBuy = clampScore(e.state.ReadyToBuy + commitmentStep)
}

// AdvanceStage overwrites the current stage unconditionally.
func (e *Engine) AdvanceStage(stage Stage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Stage = stage
}

// MoveToStage applies stage only when it differs from the current one. It reports whether
// the stage changed, together with the state right after the move.
func (e *Engine) MoveToStage(stage Stage) (ConversationState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Stage == stage {
		return e.state.clone(), false
	}
	e.state.Stage = stage
	return e.state.clone(), true
}

// Profile returns a copy of the current state.
func (e *Engine) Profile() ConversationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
