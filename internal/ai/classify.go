package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Confirmation outcomes for a shown event draft.
const (
	ConfirmProceed = "proceed"
	ConfirmEdit    = "edit"
	ConfirmUnclear = "unclear"
)

// ClassifyConfirmation decides whether a reply to "should I adjust anything?"
// means save the draft as-is, change something, or neither. The question is
// inverted, so plain refusals mean proceed; the dialog engine resolves the
// obvious tokens itself and only sends the ambiguous middle here.
func (c *Client) ClassifyConfirmation(ctx context.Context, title string, history []Turn, message string) (string, error) {
	prompt := fmt.Sprintf(`The assistant showed the user a draft for the event %q and asked:
"Does this look right, or should I adjust anything?"

The user replied: %q

Classify the reply. Respond with exactly one word:
- "proceed" if the user is satisfied and the event should be saved as shown.
- "edit" if the user wants something changed and describes or implies a change.
- "unclear" if you cannot tell.
Note the question is inverted: answers like "no" or "nothing" mean nothing
needs adjusting, which is "proceed".`, title, message)

	msgs := []chatMessage{{Role: "system", Content: prompt}}
	msgs = append(msgs, historyMessages(history, 4)...)
	msgs = append(msgs, chatMessage{Role: "user", Content: message})

	raw, err := c.call(ctx, c.extractTimeout, msgs)
	if err != nil {
		return ConfirmUnclear, fmt.Errorf("confirmation classification failed: %w", err)
	}
	answer := strings.ToLower(strings.Trim(stripCodeFence(raw), " .\"'"))
	switch answer {
	case ConfirmProceed, ConfirmEdit:
		return answer, nil
	}
	return ConfirmUnclear, nil
}

var leadingNumber = regexp.MustCompile(`\d+`)

// ExtractSelectionIndex maps a free-form reply ("the second one", "2",
// "the jazz night please") onto a 1-based index into the listed candidates.
// Returns 0 when no candidate matches.
func (c *Client) ExtractSelectionIndex(ctx context.Context, candidates []string, message string) (int, error) {
	var list strings.Builder
	for i, title := range candidates {
		fmt.Fprintf(&list, "%d. %s\n", i+1, title)
	}
	prompt := fmt.Sprintf(`The user was shown this numbered list of events:
%s
The user replied: %q

Which entry did the user pick? Respond with only the number, or "0" if the
reply does not pick any entry.`, list.String(), message)

	raw, err := c.call(ctx, c.extractTimeout, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return 0, fmt.Errorf("selection extraction failed: %w", err)
	}
	match := leadingNumber.FindString(stripCodeFence(raw))
	if match == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(match)
	if err != nil || n < 0 || n > len(candidates) {
		return 0, nil
	}
	return n, nil
}

// RegistrationDetails is what the model pulled out of a registration message.
type RegistrationDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ExtractRegistrationDetails pulls a name and email address out of a message
// like "register me, I'm Jo, jo@example.com". Missing fields come back empty.
func (c *Client) ExtractRegistrationDetails(ctx context.Context, message string) (RegistrationDetails, error) {
	prompt := fmt.Sprintf(`Extract the person's name and email address from this message, if present:
%q
Respond with ONLY JSON shaped {"name": "", "email": ""}. Use "" for anything
not stated. Never invent values.`, message)

	raw, err := c.call(ctx, c.extractTimeout, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return RegistrationDetails{}, fmt.Errorf("registration extraction failed: %w", err)
	}
	var details RegistrationDetails
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &details); err != nil {
		return RegistrationDetails{}, nil
	}
	return details, nil
}

// ParseReminderDate resolves a phrase like "the day before" or "next friday
// morning" into an absolute time, relative to now and the event's start date
// (zero when unknown). Returns the zero time when the phrase names no date.
func (c *Client) ParseReminderDate(ctx context.Context, message string, now, eventStart time.Time) (time.Time, error) {
	startLine := "The event has no known start date."
	if !eventStart.IsZero() {
		startLine = fmt.Sprintf("The event starts on %s.", eventStart.Format(time.RFC3339))
	}
	prompt := fmt.Sprintf(`Today is %s. %s
The user asked for a reminder with: %q
When should the reminder fire? Respond with ONLY the moment in RFC 3339
format (like 2026-05-01T09:00:00Z), or the word "none" if the message names
no time.`, now.Format(time.RFC3339), startLine, message)

	raw, err := c.call(ctx, c.extractTimeout, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return time.Time{}, fmt.Errorf("reminder date parsing failed: %w", err)
	}
	answer := strings.Trim(stripCodeFence(raw), " .\"'")
	if strings.EqualFold(answer, "none") || answer == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, answer)
	if err != nil {
		return time.Time{}, nil
	}
	return parsed, nil
}
