package dialog

import (
	"context"
	"log"
)

// fallbackSuggestions are the fixed follow-ups shown when the model can't
// produce any, keyed by the turn's resolved intent.
var fallbackSuggestions = map[string][]string{
	"discovery":    {"Show me more events", "Only free events", "Events this weekend"},
	"create":       {"Change the date", "Change the location", "Looks good"},
	"registration": {"Remind me before it starts", "Show my events", "Find more events"},
	"reminder":     {"Show my reminders", "Find more events", "Create an event"},
	"general":      {"Find events near me", "Create an event", "Show my events"},
}

// suggestions returns follow-up chips for the reply just sent. The model is
// asked first; any failure falls back to the fixed per-intent set, so the
// client always gets something to offer.
func (e *Engine) suggestions(ctx context.Context, intent, lastReply string) []string {
	if got, err := e.ai.SuggestReplies(ctx, intent, lastReply); err == nil && len(got) > 0 {
		return got
	} else if err != nil {
		log.Printf("[Dialog] suggestion generation unavailable: %v", err)
	}
	if s, ok := fallbackSuggestions[intent]; ok {
		return s
	}
	return fallbackSuggestions["general"]
}
