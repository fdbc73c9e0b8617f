package sales

import "strings"

// Intent is the coarse sales category assigned to one visitor message.
type Intent string

const (
	IntentPricingInquiry      Intent = "pricing-inquiry"
	IntentPainExpression      Intent = "pain-expression"
	IntentObjection           Intent = "objection"
	IntentInformationSeeking  Intent = "information-seeking"
	IntentGeneralConversation Intent = "general-conversation"
)

// Trigger names the persuasion heuristic a reply leans on.
type Trigger string

const (
	TriggerSocialProof Trigger = "social-proof"
	TriggerScarcity    Trigger = "scarcity"
	TriggerAuthority   Trigger = "authority"
	TriggerReciprocity Trigger = "reciprocity"
	TriggerCommitment  Trigger = "commitment"
	TriggerLiking      Trigger = "liking"
	TriggerUrgency     Trigger = "urgency"
)

// IntentRule is one step of the classification cascade.
type IntentRule struct {
	Intent    Intent
	Keywords  []string
	Triggers  []Trigger
	NextStage Stage
	Strategy  string
}

// IntentClassifier maps lower-cased input to a rule. It must be total.
type IntentClassifier interface {
	ClassifyIntent(lower string) IntentRule
}

var (
	buyingSignals = []string{
		"price", "cost", "how much", "pricing", "invest", "budget", "afford",
	}
	painKeywords = []string{
		"problem", "challenge", "struggle", "frustrated", "stuck", "issue", "difficult",
	}
	objectionKeywords = []string{
		"too expensive", "can't afford", "cant afford", "not sure", "maybe later",
		"need time", "think about it", "not ready",
	}
	informationKeywords = []string{
		"how", "what", "why", "when", "tell me", "explain", "show",
	}
)

// DefaultIntentRules is the cascade in priority order. A message carrying both a price word
// and a pain word is a pricing inquiry.
func DefaultIntentRules() []IntentRule {
	return []IntentRule{
		{
			Intent:    IntentPricingInquiry,
			Keywords:  buyingSignals,
			Triggers:  []Trigger{TriggerScarcity, TriggerSocialProof, TriggerAuthority},
			NextStage: StageSolutionFraming,
			Strategy:  "value-before-price",
		},
		{
			Intent:    IntentPainExpression,
			Keywords:  painKeywords,
			Triggers:  []Trigger{TriggerReciprocity, TriggerAuthority},
			NextStage: StagePainAmplification,
			Strategy:  "pain-amplification",
		},
		{
			Intent:    IntentObjection,
			Keywords:  objectionKeywords,
			Triggers:  []Trigger{TriggerSocialProof, TriggerScarcity},
			NextStage: StageObjectionHandling,
			Strategy:  "objection-reframe",
		},
		{
			Intent:    IntentInformationSeeking,
			Keywords:  informationKeywords,
			Triggers:  []Trigger{TriggerAuthority, TriggerSocialProof},
			NextStage: StageValueDemonstration,
			Strategy:  "value-demonstration",
		},
	}
}

var generalRule = IntentRule{
	Intent:    IntentGeneralConversation,
	Triggers:  []Trigger{TriggerLiking, TriggerReciprocity},
	NextStage: StagePainDiscovery,
	Strategy:  "rapport-building",
}

// KeywordIntentClassifier walks its rules in order; the first rule with a keyword
// contained in the input wins.
type KeywordIntentClassifier struct {
	rules    []IntentRule
	fallback IntentRule
}

func NewKeywordIntentClassifier(rules []IntentRule) *KeywordIntentClassifier {
	if rules == nil {
		rules = DefaultIntentRules()
	}
	return &KeywordIntentClassifier{rules: rules, fallback: generalRule}
}

func (c *KeywordIntentClassifier) ClassifyIntent(lower string) IntentRule {
	for _, r := range c.rules {
		if containsAny(lower, r.Keywords...) {
			return r
		}
	}
	return c.fallback
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// normalize lower-cases the input and folds typographic apostrophes so "can’t" matches "can't".
func normalize(input string) string {
	lower := strings.ToLower(input)
	return strings.ReplaceAll(lower, "’", "'")
}
