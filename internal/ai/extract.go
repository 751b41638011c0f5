package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Valid intents the extractor may return. Anything else degrades to general.
const (
	IntentDiscovery    = "discovery"
	IntentCreate       = "create"
	IntentRegistration = "registration"
	IntentReminder     = "reminder"
	IntentGeneral      = "general"
)

// Extraction is the structured read of one user message.
type Extraction struct {
	Intent          string `json:"intent"`
	EventTitle      string `json:"eventTitle"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Location        string `json:"location"`
	Category        string `json:"category"`
	UseUserLocation bool   `json:"useUserLocation"`
}

const extractSystemPrompt = `You extract structured intent from messages in an event assistant chat.
Respond with ONLY a JSON object, no prose, shaped exactly like:
{"intent": "discovery|create|registration|reminder|general", "eventTitle": "", "date": "", "time": "", "location": "", "category": "", "useUserLocation": false}

Rules:
- "discovery" when the user wants to find or browse events.
- "create" when the user wants to create, add, organize or host an event.
- "registration" when the user wants to register, sign up or join.
- "reminder" when the user asks to be reminded or mentions reminders.
- "general" for greetings, small talk and everything else.
- eventTitle is the event name if one is mentioned, otherwise "".
- date and time are copied as the user phrased them, otherwise "".
- useUserLocation is true only when the user says "near me", "nearby" or similar.
- Unknown fields stay "" / false. Never invent values.`

// ExtractEventQuery reads intent and event fields out of a user message.
// A malformed model response degrades to a general-intent extraction rather
// than failing the turn; transport errors are returned for the caller to
// handle the same way.
func (c *Client) ExtractEventQuery(ctx context.Context, history []Turn, message string) (Extraction, error) {
	msgs := []chatMessage{{Role: "system", Content: extractSystemPrompt}}
	msgs = append(msgs, historyMessages(history, 4)...)
	msgs = append(msgs, chatMessage{Role: "user", Content: message})

	raw, err := c.call(ctx, c.extractTimeout, msgs)
	if err != nil {
		return Extraction{Intent: IntentGeneral}, fmt.Errorf("extraction call failed: %w", err)
	}

	var ex Extraction
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &ex); err != nil {
		log.Printf("[AI] Extraction returned malformed JSON, treating as general: %v", err)
		return Extraction{Intent: IntentGeneral}, nil
	}
	ex.Intent = strings.ToLower(strings.TrimSpace(ex.Intent))
	switch ex.Intent {
	case IntentDiscovery, IntentCreate, IntentRegistration, IntentReminder, IntentGeneral:
	default:
		ex.Intent = IntentGeneral
	}
	return ex, nil
}

// EventFacts are details pulled from web evidence about one event.
type EventFacts struct {
	Date     string `json:"date"`     // ISO date or ""
	Time     string `json:"time"`     // HH:MM or ""
	Location string `json:"location"` // place name or ""
}

// ExtractEventFacts reads date, time and location for a named event out of
// search snippets. Fields the snippets do not state stay empty; the model is
// told never to guess, and a literal placeholder is scrubbed here as well.
func (c *Client) ExtractEventFacts(ctx context.Context, title string, snippets []string) (EventFacts, error) {
	prompt := fmt.Sprintf(`These search snippets are about the event %q:
%s
Extract the event's date, time and location from them.
Respond with ONLY JSON shaped {"date": "", "time": "", "location": ""}.
date is ISO format (2026-05-01), time is 24h (19:00). Use "" for anything the
snippets do not state. Never guess and never write placeholders like "TBD".`,
		title, strings.Join(snippets, "\n"))

	raw, err := c.call(ctx, c.extractTimeout, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return EventFacts{}, fmt.Errorf("fact extraction failed: %w", err)
	}
	var facts EventFacts
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &facts); err != nil {
		return EventFacts{}, nil
	}
	if strings.EqualFold(strings.TrimSpace(facts.Location), "TBD") {
		facts.Location = ""
	}
	return facts, nil
}

// DisambiguateIntent picks between two plausible intents for an ambiguous
// message. Returns one of the two inputs; on any failure it returns first.
func (c *Client) DisambiguateIntent(ctx context.Context, message, first, second string) string {
	prompt := fmt.Sprintf(`A user in an event assistant chat wrote: %q
Does the user want %q or %q? Respond with exactly one of those two words.`, message, first, second)
	raw, err := c.call(ctx, c.extractTimeout, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return first
	}
	answer := strings.ToLower(strings.Trim(stripCodeFence(raw), " .\"'"))
	if answer == strings.ToLower(second) {
		return second
	}
	return first
}
