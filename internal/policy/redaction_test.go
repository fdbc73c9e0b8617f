package policy

import (
	"strings"
	"testing"

	"github.com/ent0n29/salesbot/internal/sales"
)

func TestRedactPII(t *testing.T) {
	input := "Email me at sam@example.com or +1 (555) 123-9876 and use 4242 4242 4242 4242."
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
}

func TestRedactPIILeavesPlainTextAlone(t *testing.T) {
	input := "What does the $12,000 tier include?"
	out, changed := RedactPII(input)
	if changed || out != input {
		t.Fatalf("RedactPII(%q) = %q, %v; want unchanged", input, out, changed)
	}
}

func TestRedactProfileMasksVisitorText(t *testing.T) {
	e := sales.NewEngine()
	e.Analyze("our problem is churn, reach me at jane@acme.io or +1 (555) 123-9876")
	e.Analyze("how fast can you ship?")
	e.RecordMicroCommitment("left email jane@acme.io")
	original := e.Profile()

	got, changed := RedactProfile(original)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, list := range [][]string{got.PainPoints, got.Interests, got.MicroCommitments} {
		for _, item := range list {
			if strings.Contains(item, "jane@acme.io") || strings.Contains(item, "123-9876") {
				t.Fatalf("profile entry not redacted: %q", item)
			}
		}
	}
	if got.Interests[0] != "how fast can you ship?" {
		t.Fatalf("Interests[0] = %q, want plain text kept", got.Interests[0])
	}
	if got.ReadyToBuy != original.ReadyToBuy || got.Stage != original.Stage {
		t.Fatalf("scores changed: %+v vs %+v", got, original)
	}
	if !strings.Contains(original.PainPoints[0], "jane@acme.io") {
		t.Fatalf("RedactProfile mutated its input: %q", original.PainPoints[0])
	}
}
