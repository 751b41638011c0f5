package dialog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"eventchat/internal/ai"
	"eventchat/internal/conversation"
	"eventchat/internal/event"
	"eventchat/internal/search"
)

const (
	maxShownEvents   = 5
	maxValidated     = 15
	maxEnrichedPages = 3
)

// handleDiscovery searches the web for events matching the request, filters
// the hits down to things that are actually events, persists them and lists
// them. The shown list doubles as the candidate set a later "register me for
// the second one" picks from.
func (e *Engine) handleDiscovery(t *turn, ex ai.Extraction) {
	query := e.buildQuery(t, ex)
	if query == "" {
		t.result.Reply = "What kind of events are you looking for?"
		return
	}
	t.bag.LastSearchQuery = query

	results, err := e.search.Search(t.ctx, query)
	if err != nil {
		log.Printf("[Dialog] discovery search failed for %q: %v", query, err)
		t.result.Reply = "I couldn't reach the event search right now. Please try again shortly."
		return
	}
	kept := e.validateResults(t.ctx, results)
	if len(kept) == 0 {
		t.result.Reply = fmt.Sprintf("I didn't find any events for %q. Want to try a different search, or create the event yourself?", query)
		return
	}
	if len(kept) > maxShownEvents {
		kept = kept[:maxShownEvents]
	}

	stored := e.persistDiscovered(t, kept)
	// Candidates must mirror the numbered list the user sees, so they come
	// from the stored events, not the raw hits.
	t.bag.RegistrationCandidates = candidatesFromEvents(stored)

	// The listing is built from title, snippet and link only; whatever else
	// the stored row knows stays off the reply, same as the draft card.
	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I found for %q:\n", query)
	for i, ev := range stored {
		fmt.Fprintf(&b, "%d. %s\n", i+1, ev.Title)
		if ev.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", ev.Snippet)
		}
		if ev.SourceURL != "" {
			fmt.Fprintf(&b, "   %s\n", ev.SourceURL)
		}
	}
	b.WriteString("\nWant to register for one, or should I keep looking?")

	t.result.Reply = b.String()
	t.result.Events = stored
	t.result.RefreshEvents = len(stored) > 0
}

// buildQuery assembles the search query from extracted fields, falling back
// to the user's own place for "near me" requests.
func (e *Engine) buildQuery(t *turn, ex ai.Extraction) string {
	// A fragment that adds nothing new refines the previous search instead
	// of starting a fresh one.
	if ex.EventTitle == "" && ex.Category == "" && ex.Location == "" && t.bag.LastSearchQuery != "" {
		return strings.TrimSpace(t.bag.LastSearchQuery + " " + t.message)
	}
	parts := []string{}
	if ex.EventTitle != "" {
		parts = append(parts, ex.EventTitle)
	}
	if ex.Category != "" {
		parts = append(parts, ex.Category)
	}
	if len(parts) == 0 {
		parts = append(parts, "events")
	} else {
		parts = append(parts, "event")
	}
	place := ex.Location
	if place == "" && ex.UseUserLocation {
		place = e.userPlace(t.ctx, t.user)
	}
	if place != "" {
		parts = append(parts, "in "+place)
	}
	if ex.Date != "" {
		parts = append(parts, ex.Date)
	}
	query := strings.TrimSpace(strings.Join(parts, " "))
	if query == "events" && t.message == "" {
		return ""
	}
	return query
}

// validateResults keeps the hits that describe real events. The model filter
// runs first; when it fails the local fallback keeps anything with a
// substantive title, because showing a dud beats hiding a real event.
func (e *Engine) validateResults(ctx context.Context, results []search.Result) []search.Result {
	if len(results) == 0 {
		return nil
	}
	if len(results) > maxValidated {
		results = results[:maxValidated]
	}
	candidates := make([]ai.Candidate, len(results))
	for i, r := range results {
		candidates[i] = ai.Candidate{Title: r.Title, URL: r.Link, Snippet: r.Snippet}
	}
	indices, err := e.ai.ValidateEventCandidates(ctx, candidates)
	if err != nil {
		log.Printf("[Dialog] candidate validation unavailable, using permissive fallback: %v", err)
		kept := make([]search.Result, 0, len(results))
		for _, r := range results {
			if len(strings.TrimSpace(r.Title)) > 3 {
				kept = append(kept, r)
			}
		}
		return kept
	}
	kept := make([]search.Result, 0, len(indices))
	for _, idx := range indices {
		kept = append(kept, results[idx])
	}
	return kept
}

// persistDiscovered stores each kept hit as a discovered event, deduplicated
// against what this user has already seen. Placeholder-bearing hits are
// dropped, not fixed up. The first few new events get their description
// enriched from the linked page.
func (e *Engine) persistDiscovered(t *turn, results []search.Result) []event.Event {
	stored := make([]event.Event, 0, len(results))
	enriched := 0
	for _, r := range results {
		ev := &event.Event{
			Title:     r.Title,
			Snippet:   r.Snippet,
			Source:    event.SourceDiscovered,
			SourceURL: r.Link,
			UserID:    t.user.ID,
		}
		rec, created, err := e.events.FindOrCreate(ev)
		if err != nil {
			if !errors.Is(err, event.ErrPlaceholderValue) {
				log.Printf("[Dialog] failed to store discovered event %q: %v", r.Title, err)
			}
			continue
		}
		if created && rec.Description == "" && enriched < maxEnrichedPages && e.pages != nil {
			e.enrichFromPage(t.ctx, rec)
			enriched++
		}
		t.bag.PushEventID(rec.ID)
		stored = append(stored, *rec)
	}
	return stored
}

// enrichFromPage fills in a description from the event's source page.
// Best effort; a fetch failure leaves the event as the search result had it.
func (e *Engine) enrichFromPage(ctx context.Context, ev *event.Event) {
	if ev.SourceURL == "" {
		return
	}
	meta, err := e.pages.Extract(ctx, ev.SourceURL)
	if err != nil || meta.Description == "" {
		return
	}
	ev.Description = meta.Description
	if err := e.db.Model(&event.Event{}).Where("id = ?", ev.ID).
		Update("description", meta.Description).Error; err != nil {
		log.Printf("[Dialog] failed to save enriched description: %v", err)
	}
}

func candidatesFromEvents(events []event.Event) []conversation.EventCandidate {
	out := make([]conversation.EventCandidate, 0, len(events))
	for _, ev := range events {
		out = append(out, conversation.EventCandidate{
			Title:    ev.Title,
			URL:      ev.SourceURL,
			Snippet:  ev.Snippet,
			Location: ev.Location,
		})
	}
	return out
}
