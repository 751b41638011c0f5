package dialog

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"eventchat/internal/ai"
	"eventchat/internal/conversation"
	"eventchat/internal/event"
)

const maxDraftEvidence = 5

// handleCreate starts or advances event creation. Without a title it parks
// the flow and asks; with one it gathers web evidence once, then shows the
// draft card and waits for the proceed/edit decision.
func (e *Engine) handleCreate(t *turn, ex ai.Extraction) {
	if t.bag.Creating == nil {
		t.bag.Creating = &conversation.CreatingEvent{}
	}
	c := t.bag.Creating

	if ex.EventTitle != "" {
		c.Title = ex.EventTitle
	}
	if ex.Date != "" {
		c.UserDate = ex.Date
	}
	if ex.Time != "" {
		c.UserTime = ex.Time
	}
	if ex.Location != "" {
		c.UserLocation = ex.Location
	}

	if c.Title == "" {
		t.result.Reply = "Happy to set that up. What should the event be called?"
		return
	}

	if !c.SearchDone {
		e.gatherEvidence(t, c)
	}
	e.showDraft(t, c)
}

// handleTitleAnswer consumes the message after "what should it be called?".
// A message that clearly asks for something else abandons the half-started
// creation instead of becoming a nonsense title.
func (e *Engine) handleTitleAnswer(t *turn) {
	ex, err := e.ai.ExtractEventQuery(t.ctx, t.history, t.message)
	if err != nil {
		t.result.Reply = unavailableReply
		return
	}
	switch ex.Intent {
	case ai.IntentDiscovery, ai.IntentRegistration, ai.IntentReminder:
		t.bag.ClearCreating()
		e.dispatch(t)
		return
	}
	if ex.EventTitle != "" {
		ex.Intent = ai.IntentCreate
		e.handleCreate(t, ex)
		return
	}
	ex.EventTitle = t.message
	ex.Intent = ai.IntentCreate
	e.handleCreate(t, ex)
}

// gatherEvidence runs the one web search a creation flow gets and extracts
// date, time and location from the results. Search failure is not fatal; the
// draft just carries no web-derived fields.
func (e *Engine) gatherEvidence(t *turn, c *conversation.CreatingEvent) {
	c.SearchDone = true
	results, err := e.search.Search(t.ctx, c.Title)
	if err != nil {
		log.Printf("[Dialog] creation search failed for %q: %v", c.Title, err)
		return
	}
	for _, r := range results {
		if len(c.Snippets) < maxDraftEvidence && r.Snippet != "" {
			c.Snippets = append(c.Snippets, r.Snippet)
		}
		if len(c.Links) < maxDraftEvidence && r.Link != "" {
			c.Links = append(c.Links, r.Link)
		}
	}
	if len(c.Snippets) == 0 {
		return
	}
	facts, err := e.ai.ExtractEventFacts(t.ctx, c.Title, c.Snippets)
	if err != nil {
		log.Printf("[Dialog] fact extraction failed for %q: %v", c.Title, err)
		return
	}
	c.ExtractedDate = facts.Date
	c.ExtractedTime = facts.Time
	c.ExtractedLocation = facts.Location
}

// showDraft renders the draft card and arms the confirmation state. The card
// shows the name plus the best snippets and links, nothing else: extracted
// date, time and location stay internal until the event is persisted, so a
// wrong extraction is never presented as fact.
func (e *Engine) showDraft(t *turn, c *conversation.CreatingEvent) {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's the draft for %q.\n", c.Title)
	if len(c.Snippets) > 0 {
		b.WriteString("\nWhat I found about it:\n")
		for _, s := range c.Snippets {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if len(c.Links) > 0 {
		b.WriteString("\nSources:\n")
		for _, l := range c.Links {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}
	b.WriteString("\nDoes this look right, or should I adjust anything?")

	c.WaitingForConfirmation = true
	c.ShownEventCard = true
	t.result.Reply = b.String()
	t.result.Data = map[string]interface{}{
		"draft": map[string]interface{}{
			"title":    c.Title,
			"snippets": c.Snippets,
			"links":    c.Links,
		},
	}
}

// handleConfirmation answers the draft card. Intent extraction is skipped
// entirely; whatever the message says, it is a proceed/edit decision.
func (e *Engine) handleConfirmation(t *turn) {
	c := t.bag.Creating
	if c.Title == "" {
		// An armed confirmation without a title cannot be resolved; reset
		// visibly instead of looping on an unanswerable question.
		t.bag.ClearCreating()
		t.result.Reply = "Let's start that event over. What should it be called?"
		return
	}

	decision := classifyConfirmationLocal(t.message)
	if decision == confirmUnclear {
		modelSays, err := e.ai.ClassifyConfirmation(t.ctx, c.Title, t.history, t.message)
		if err != nil {
			t.result.Reply = "Sorry, should I save the event as shown, or change something?"
			return
		}
		decision = modelSays
		// A bare refusal means "nothing to adjust" even when the model
		// reads it as an edit request.
		if decision == confirmEdit && isBareNegative(t.message) {
			decision = confirmProceed
		}
	}

	switch decision {
	case confirmProceed:
		e.persistDraft(t, c)
	case confirmEdit:
		e.applyEdit(t, c)
	default:
		t.result.Reply = "Just to be sure: save the event as shown, or change something first?"
	}
}

// applyEdit folds requested changes into the draft and re-shows it. User
// supplied values permanently shadow web-derived ones. An edit request that
// names no concrete change drops back to asking; the details arrive next
// turn and re-enter the draft through handleCreate.
func (e *Engine) applyEdit(t *turn, c *conversation.CreatingEvent) {
	ex, err := e.ai.ExtractEventQuery(t.ctx, t.history, t.message)
	if err != nil {
		t.result.Reply = unavailableReply
		return
	}
	changed := false
	if ex.EventTitle != "" && !strings.EqualFold(ex.EventTitle, c.Title) {
		c.Title = ex.EventTitle
		changed = true
	}
	if ex.Date != "" {
		c.UserDate = ex.Date
		changed = true
	}
	if ex.Time != "" {
		c.UserTime = ex.Time
		changed = true
	}
	if ex.Location != "" {
		c.UserLocation = ex.Location
		changed = true
	}
	if !changed {
		c.WaitingForConfirmation = false
		t.result.Reply = "Sure, what should I change?"
		return
	}
	e.showDraft(t, c)
}

// persistDraft saves the confirmed draft as a user-created event. The
// creation state is torn down whether or not the save works; a failed save
// never leaves a stuck confirmation behind.
func (e *Engine) persistDraft(t *turn, c *conversation.CreatingEvent) {
	defer t.bag.ClearCreating()

	// Location precedence: what the user said, then what the web search
	// found, then where the user is.
	loc := firstNonEmpty(c.UserLocation, c.ExtractedLocation)
	if loc == "" {
		loc = e.userPlace(t.ctx, t.user)
	}
	ev := &event.Event{
		Title:     c.Title,
		Location:  loc,
		Source:    event.SourceUserCreated,
		UserID:    t.user.ID,
		StartDate: parseDraftDate(firstNonEmpty(c.UserDate, c.ExtractedDate), firstNonEmpty(c.UserTime, c.ExtractedTime)),
	}
	if len(c.Snippets) > 0 {
		ev.Snippet = c.Snippets[0]
	}
	if len(c.Links) > 0 {
		ev.SourceURL = c.Links[0]
	}

	stored, created, err := e.events.FindOrCreate(ev)
	if err != nil {
		if errors.Is(err, event.ErrPlaceholderValue) {
			t.result.Reply = "I couldn't save that: the location looks like a placeholder. Where will it actually be?"
			return
		}
		log.Printf("[Dialog] failed to persist event %q: %v", c.Title, err)
		t.result.Reply = "I couldn't save the event just now. Please try again."
		return
	}

	t.bag.PushEventID(stored.ID)
	t.result.RefreshEvents = true
	t.result.Events = []event.Event{*stored}
	if created {
		t.result.Reply = fmt.Sprintf("Done! %q is saved to your events.", stored.Title)
	} else {
		t.result.Reply = fmt.Sprintf("You already have %q in your events, so I kept the existing one.", stored.Title)
	}
}

// parseDraftDate turns the draft's ISO date (and optional HH:MM time) into a
// timestamp. Anything unparseable stays absent rather than guessed.
func parseDraftDate(date, clock string) *time.Time {
	if date == "" {
		return nil
	}
	if clock != "" {
		if ts, err := time.Parse("2006-01-02 15:04", date+" "+clock); err == nil {
			return &ts
		}
	}
	if ts, err := time.Parse("2006-01-02", date); err == nil {
		return &ts
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
