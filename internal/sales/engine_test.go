package sales

import (
	"strings"
	"testing"
	"time"
)

func firstVariant(int) int { return 0 }

func newTestEngine(opts ...Option) *Engine {
	return NewEngine(append([]Option{WithChooser(firstVariant)}, opts...)...)
}

func TestAnalyzeClassifiesIntent(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Intent
		wantStage Stage
	}{
		{"pricing", "What's your pricing?", IntentPricingInquiry, StageSolutionFraming},
		{"pricing-wins-over-pain", "our problem is the cost of hosting", IntentPricingInquiry, StageSolutionFraming},
		{"pricing-wins-over-objection", "I can't afford much", IntentPricingInquiry, StageSolutionFraming},
		{"pain", "We're stuck with a legacy app", IntentPainExpression, StagePainAmplification},
		{"pain-over-info", "why is this such a struggle", IntentPainExpression, StagePainAmplification},
		{"objection", "that seems too expensive", IntentObjection, StageObjectionHandling},
		{"typographic-apostrophe-afford", "honestly I can’t afford", IntentPricingInquiry, StageSolutionFraming},
		{"objection-later", "maybe later", IntentObjection, StageObjectionHandling},
		{"information", "Tell me more", IntentInformationSeeking, StageValueDemonstration},
		{"general", "nice site", IntentGeneralConversation, StagePainDiscovery},
		{"empty", "", IntentGeneralConversation, StagePainDiscovery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestEngine().Analyze(tt.input)
			if got.Intent != tt.want {
				t.Fatalf("Analyze(%q).Intent = %q, want %q", tt.input, got.Intent, tt.want)
			}
			if got.NextStage != tt.wantStage {
				t.Fatalf("Analyze(%q).NextStage = %q, want %q", tt.input, got.NextStage, tt.wantStage)
			}
			if len(got.Triggers) == 0 {
				t.Fatalf("Analyze(%q).Triggers empty", tt.input)
			}
		})
	}
}

func TestAnalyzePricingBumpsReadiness(t *testing.T) {
	e := newTestEngine()
	for _, in := range []string{"price?", "what does it cost", "our budget is small"} {
		before := e.Profile().ReadyToBuy
		if got := e.Analyze(in).Intent; got != IntentPricingInquiry {
			t.Fatalf("Analyze(%q) = %q, want %q", in, got, IntentPricingInquiry)
		}
		if after := e.Profile().ReadyToBuy; after != before+25 {
			t.Fatalf("ReadyToBuy after %q = %d, want %d", in, after, before+25)
		}
	}
	for i := 0; i < 5; i++ {
		e.Analyze("how much")
	}
	if got := e.Profile().ReadyToBuy; got != 100 {
		t.Fatalf("ReadyToBuy = %d, want clamp at 100", got)
	}
}

func TestAnalyzeEngagementStepsAndClamps(t *testing.T) {
	e := newTestEngine()
	prevEngagement, prevReady := 0, 0
	for i := 1; i <= 30; i++ {
		e.Analyze("same words again")
		p := e.Profile()
		want := min(i*5, 100)
		if p.EngagementScore != want {
			t.Fatalf("call %d: EngagementScore = %d, want %d", i, p.EngagementScore, want)
		}
		if p.EngagementScore < prevEngagement || p.ReadyToBuy < prevReady {
			t.Fatalf("call %d: scores decreased: %+v", i, p)
		}
		if p.ReadyToBuy < 0 || p.ReadyToBuy > 100 {
			t.Fatalf("call %d: ReadyToBuy out of range: %d", i, p.ReadyToBuy)
		}
		prevEngagement, prevReady = p.EngagementScore, p.ReadyToBuy
	}
}

func TestAnalyzeRecordsSignalsAndTimestamp(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := newTestEngine(WithClock(func() time.Time { return now }))

	e.Analyze("we have a real problem with churn")
	e.Analyze("not sure this is for us")
	e.Analyze("explain your process")
	e.Analyze("we have a real problem with churn")

	p := e.Profile()
	if len(p.PainPoints) != 2 {
		t.Fatalf("PainPoints = %v, want 2 entries (no dedup)", p.PainPoints)
	}
	if len(p.Objections) != 1 || p.Objections[0] != "not sure this is for us" {
		t.Fatalf("Objections = %v", p.Objections)
	}
	if len(p.Interests) != 1 || p.Interests[0] != "explain your process" {
		t.Fatalf("Interests = %v", p.Interests)
	}
	if !p.LastInteraction.Equal(now) {
		t.Fatalf("LastInteraction = %v, want %v", p.LastInteraction, now)
	}
	if p.Stage != StageInitialRapport {
		t.Fatalf("Stage = %q, want %q (analysis must not advance)", p.Stage, StageInitialRapport)
	}
}

func TestAnalyzeBoundsInput(t *testing.T) {
	e := newTestEngine()
	long := strings.Repeat("é", MaxInputRunes) + " stuck"
	if got := e.Analyze(long).Intent; got != IntentGeneralConversation {
		t.Fatalf("Intent = %q, want keyword past the bound ignored", got)
	}
	e.Analyze(strings.Repeat("x", MaxInputRunes) + "problem")
	if n := len(e.Profile().PainPoints); n != 0 {
		t.Fatalf("PainPoints = %d, want 0", n)
	}
}

func TestRespondDispatch(t *testing.T) {
	catalog := DefaultCatalog()
	tests := []struct {
		input    string
		category Category
		topic    Topic
	}{
		{"what's your pricing?", CategoryPricing, TopicNone},
		{"I'm so frustrated with my agency", CategoryPain, TopicNone},
		{"that seems too expensive", CategoryObjectionCost, TopicNone},
		{"I need time", CategoryObjectionTime, TopicNone},
		{"not sure yet", CategoryObjectionOther, TopicNone},
		{"can I see your portfolio", CategoryPortfolio, TopicPortfolio},
		{"what services do you offer", CategoryServices, TopicServices},
		{"I'd like to book a meeting", CategoryCommitment, TopicContact},
		{"who are you", CategoryAbout, TopicAbout},
		{"hey there", CategoryGreeting, TopicGreeting},
		{"this looks neat", CategoryDiscovery, TopicNone},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			got := newTestEngine().Respond(tt.input)
			if got.Category != tt.category {
				t.Fatalf("Respond(%q).Category = %q, want %q", tt.input, got.Category, tt.category)
			}
			if got.Topic != tt.topic {
				t.Fatalf("Respond(%q).Topic = %q, want %q", tt.input, got.Topic, tt.topic)
			}
			if got.Text != catalog[tt.category][0] {
				t.Fatalf("Respond(%q).Text = %q, want first %s template", tt.input, got.Text, tt.category)
			}
		})
	}
}

func TestGenerateResponseDefaultsToDiscovery(t *testing.T) {
	e := newTestEngine()
	in := "purple elephants dance"
	if got := e.Analyze(in).Intent; got != IntentGeneralConversation {
		t.Fatalf("Analyze(%q) = %q, want %q", in, got, IntentGeneralConversation)
	}
	if got := e.GenerateResponse(in); got != DefaultCatalog()[CategoryDiscovery][0] {
		t.Fatalf("GenerateResponse(%q) = %q, want discovery template", in, got)
	}
}

func TestPricingThenObjectionScenario(t *testing.T) {
	e := NewEngine(WithChooser(NewSeededChooser(42)))

	r := e.Respond("what's your pricing?")
	if r.Analysis.Intent != IntentPricingInquiry {
		t.Fatalf("intent = %q, want %q", r.Analysis.Intent, IntentPricingInquiry)
	}
	if !strings.Contains(r.Text, "$") || !strings.Contains(r.Text, "?") {
		t.Fatalf("pricing reply lacks a dollar figure or question: %q", r.Text)
	}

	r = e.Respond("that seems too expensive")
	if r.Analysis.Intent != IntentObjection {
		t.Fatalf("intent = %q, want %q", r.Analysis.Intent, IntentObjection)
	}
	if r.Category != CategoryObjectionCost || !strings.Contains(r.Text, "ROI") {
		t.Fatalf("objection reply = %q (%s), want cost reframe", r.Text, r.Category)
	}
}

func TestGreetingAndPortfolioScenarios(t *testing.T) {
	e := newTestEngine()
	greeting := e.GenerateResponse("hey there")
	if !strings.HasSuffix(greeting, "biggest bottleneck in your business right now?") {
		t.Fatalf("greeting = %q", greeting)
	}

	portfolio := e.GenerateResponse("can I see your portfolio")
	for _, want := range []string{"CriOS Nova", "150+", "E-commerce", "$470K"} {
		if !strings.Contains(portfolio, want) {
			t.Fatalf("portfolio reply missing %q: %q", want, portfolio)
		}
	}
}

func TestGreetingMatchesWholeWordsOnly(t *testing.T) {
	if got := NewKeywordTopicClassifier(nil).ClassifyTopic("this is neat"); got != TopicNone {
		t.Fatalf("ClassifyTopic() = %q, want %q", got, TopicNone)
	}
	if got := NewKeywordTopicClassifier(nil).ClassifyTopic("hi!"); got != TopicGreeting {
		t.Fatalf("ClassifyTopic() = %q, want %q", got, TopicGreeting)
	}
}

func TestPricingVariantsUseChooser(t *testing.T) {
	variants := DefaultCatalog()[CategoryPricing]
	if len(variants) < 2 {
		t.Fatalf("pricing variants = %d, want >= 2", len(variants))
	}
	for i := range variants {
		e := NewEngine(WithChooser(func(int) int { return i }))
		if got := e.GenerateResponse("pricing"); got != variants[i] {
			t.Fatalf("variant %d not selected", i)
		}
	}
	e := NewEngine(WithChooser(func(int) int { return 99 }))
	if got := e.GenerateResponse("pricing"); got != variants[0] {
		t.Fatalf("out of range choice should fall back to first variant")
	}
}

func TestRecordMicroCommitment(t *testing.T) {
	e := newTestEngine()
	e.RecordMicroCommitment("email")
	p := e.Profile()
	if len(p.MicroCommitments) != 1 || p.MicroCommitments[0] != "email" {
		t.Fatalf("MicroCommitments = %v", p.MicroCommitments)
	}
	if p.ReadyToBuy != 10 {
		t.Fatalf("ReadyToBuy = %d, want 10", p.ReadyToBuy)
	}
	for i := 0; i < 20; i++ {
		e.RecordMicroCommitment("x")
	}
	if got := e.Profile().ReadyToBuy; got != 100 {
		t.Fatalf("ReadyToBuy = %d, want 100", got)
	}
}

func TestAdvanceStageIsExplicit(t *testing.T) {
	e := newTestEngine()
	a := e.Analyze("how much is it")
	if got := e.Profile().Stage; got != StageInitialRapport {
		t.Fatalf("Stage = %q before AdvanceStage", got)
	}
	e.AdvanceStage(a.NextStage)
	if got := e.Profile().Stage; got != StageSolutionFraming {
		t.Fatalf("Stage = %q, want %q", got, StageSolutionFraming)
	}
	e.AdvanceStage(StageInitialRapport)
	if got := e.Profile().Stage; got != StageInitialRapport {
		t.Fatalf("AdvanceStage should overwrite unconditionally, got %q", got)
	}
}

func TestProfileReturnsCopy(t *testing.T) {
	e := newTestEngine()
	e.Analyze("we're stuck")
	e.RecordMicroCommitment("email")

	p := e.Profile()
	p.PainPoints[0] = "mutated"
	p.PainPoints = append(p.PainPoints, "extra")
	p.MicroCommitments[0] = "mutated"
	p.ReadyToBuy = 0
	p.Stage = StagePostCommitment

	got := e.Profile()
	if got.PainPoints[0] != "we're stuck" || len(got.PainPoints) != 1 {
		t.Fatalf("PainPoints leaked mutation: %v", got.PainPoints)
	}
	if got.MicroCommitments[0] != "email" || got.ReadyToBuy != 10 || got.Stage != StageInitialRapport {
		t.Fatalf("profile leaked mutation: %+v", got)
	}
}

func TestHistoryLimitKeepsNewest(t *testing.T) {
	e := newTestEngine(WithHistoryLimit(2))
	e.Analyze("problem one")
	e.Analyze("problem two")
	e.Analyze("problem three")
	p := e.Profile()
	if len(p.PainPoints) != 2 || p.PainPoints[0] != "problem two" || p.PainPoints[1] != "problem three" {
		t.Fatalf("PainPoints = %v", p.PainPoints)
	}
}

func TestParseStage(t *testing.T) {
	if s, err := ParseStage(" Commitment-Micro "); err != nil || s != StageCommitmentMicro {
		t.Fatalf("ParseStage() = %q, %v", s, err)
	}
	if _, err := ParseStage("closing"); err == nil {
		t.Fatalf("ParseStage(closing) expected error")
	}
	if got := len(Stages()); got != 9 {
		t.Fatalf("len(Stages()) = %d, want 9", got)
	}
}
