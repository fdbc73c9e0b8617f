package policy

import (
	"regexp"

	"github.com/ent0n29/salesbot/internal/sales"
)

// piiRule masks one kind of contact detail a visitor may paste into the chat.
type piiRule struct {
	pattern *regexp.Regexp
	marker  string
}

// Cards run before phones so a card number is never reported as a phone.
var piiRules = []piiRule{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[REDACTED_PHONE]"},
}

// RedactPII masks emails, card numbers and phone numbers in visitor text.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, r := range piiRules {
		next := r.pattern.ReplaceAllString(out, r.marker)
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// RedactProfile returns a copy of a lead profile whose recorded visitor messages and
// commitment labels are masked. Scores and stage are untouched.
func RedactProfile(p sales.ConversationState) (sales.ConversationState, bool) {
	var changed bool
	p.PainPoints, changed = redactAll(p.PainPoints, changed)
	p.Objections, changed = redactAll(p.Objections, changed)
	p.Interests, changed = redactAll(p.Interests, changed)
	p.MicroCommitments, changed = redactAll(p.MicroCommitments, changed)
	return p, changed
}

func redactAll(items []string, changed bool) ([]string, bool) {
	if items == nil {
		return nil, changed
	}
	out := make([]string, len(items))
	for i, item := range items {
		var c bool
		out[i], c = RedactPII(item)
		changed = changed || c
	}
	return out, changed
}
