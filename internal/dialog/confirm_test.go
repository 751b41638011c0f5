package dialog

import "testing"

func TestClassifyConfirmationLocal_AffirmativeProceeds(t *testing.T) {
	for _, msg := range []string{"yes", "Yes!", "looks good", "ok", "go ahead", "Sounds good."} {
		if got := classifyConfirmationLocal(msg); got != confirmProceed {
			t.Errorf("%q: expected proceed, got %q", msg, got)
		}
	}
}

func TestClassifyConfirmationLocal_PlainRefusalAlsoProceeds(t *testing.T) {
	// The draft question asks whether anything should be adjusted, so a
	// refusal means the draft is fine as shown.
	for _, msg := range []string{"no", "No.", "nope", "nah", "n", "nothing", "no changes"} {
		if got := classifyConfirmationLocal(msg); got != confirmProceed {
			t.Errorf("%q: expected proceed, got %q", msg, got)
		}
	}
}

func TestClassifyConfirmationLocal_AmbiguousIsUnclear(t *testing.T) {
	for _, msg := range []string{"", "hmm", "can you move it to friday", "what about the venue", "maybe"} {
		if got := classifyConfirmationLocal(msg); got != confirmUnclear {
			t.Errorf("%q: expected unclear, got %q", msg, got)
		}
	}
}

func TestIsBareNegative(t *testing.T) {
	if !isBareNegative("No!") {
		t.Errorf("expected bare negative for \"No!\"")
	}
	if isBareNegative("no, move it to friday") {
		t.Errorf("a refusal with an edit attached is not bare")
	}
}
