package dialog

import (
	"strings"
)

// Local confirmation outcomes. The draft question is "does this look right,
// or should I adjust anything?", so a plain refusal means nothing needs
// adjusting and the draft is saved. That inversion is resolved here, before
// any model call.
const (
	confirmProceed = "proceed"
	confirmEdit    = "edit"
	confirmUnclear = "unclear"
)

var affirmativeTokens = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "y": true,
	"sure": true, "ok": true, "okay": true, "correct": true, "right": true,
	"perfect": true, "great": true, "good": true, "fine": true,
	"looks good": true, "all good": true, "go ahead": true, "save it": true,
	"save": true, "confirm": true, "confirmed": true, "do it": true,
	"that's right": true, "thats right": true, "sounds good": true,
}

var negativeTokens = map[string]bool{
	"no": true, "nope": true, "nah": true, "n": true,
	"nothing": true, "nothing else": true, "no thanks": true,
	"no changes": true, "no change": true, "none": true,
	"nothing to change": true, "all set": true, "it's fine": true,
	"its fine": true,
}

func normalizeConfirmToken(message string) string {
	s := strings.ToLower(strings.TrimSpace(message))
	s = strings.Trim(s, ".!,?")
	return strings.Join(strings.Fields(s), " ")
}

// classifyConfirmationLocal resolves the obvious confirmation answers without
// a model call. Both plain agreement and plain refusal mean proceed; only the
// ambiguous middle returns unclear and goes to the model.
func classifyConfirmationLocal(message string) string {
	token := normalizeConfirmToken(message)
	if token == "" {
		return confirmUnclear
	}
	if affirmativeTokens[token] || negativeTokens[token] {
		return confirmProceed
	}
	return confirmUnclear
}

// isBareNegative reports whether the message is one of the plain refusal
// tokens. Used as a safety net: even if the model classifies a bare "no" as
// an edit request, it is treated as proceed.
func isBareNegative(message string) bool {
	return negativeTokens[normalizeConfirmToken(message)]
}
