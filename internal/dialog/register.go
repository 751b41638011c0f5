package dialog

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventchat/internal/ai"
	"eventchat/internal/conversation"
	"eventchat/internal/event"
)

// RegistrationCard is the client payload for a completed registration: the
// stored facts plus everything derivable from them. Nothing here is stored
// beyond the registration row itself.
type RegistrationCard struct {
	EventID     uint   `json:"eventId"`
	EventTitle  string `json:"eventTitle"`
	Reference   string `json:"reference"`
	QRPayload   string `json:"qrPayload"`
	CalendarURL string `json:"calendarUrl,omitempty"`
	ShareText   string `json:"shareText"`
}

// handleRegistration signs the user up for an event: one picked from the
// last shown list, one named in the message, or the event currently in
// focus. Registering twice for the same event is an error, surfaced
// conversationally.
func (e *Engine) handleRegistration(t *turn, ex ai.Extraction) {
	ev := e.resolveRegistrationTarget(t, ex)
	if ev == nil {
		if ex.EventTitle != "" {
			e.presentRegistrationCandidates(t, ex.EventTitle)
			return
		}
		t.result.Reply = "Which event would you like to register for? You can search first if you haven't found one yet."
		return
	}

	name, email := t.user.Name, t.user.Email
	if details, err := e.ai.ExtractRegistrationDetails(t.ctx, t.message); err == nil {
		if details.Name != "" {
			name = details.Name
		}
		if details.Email != "" {
			email = details.Email
		}
	}

	reg := &event.Registration{
		UserID:    t.user.ID,
		EventID:   ev.ID,
		Name:      name,
		Email:     email,
		Status:    "confirmed",
		Reference: uuid.NewString(),
	}
	if err := e.events.CreateRegistration(reg); err != nil {
		if errors.Is(err, event.ErrAlreadyRegistered) {
			t.bag.PushEventID(ev.ID)
			t.result.Reply = fmt.Sprintf("You're already registered for %q. Want me to pull up your registration?", ev.Title)
			return
		}
		log.Printf("[Dialog] registration failed for event %d: %v", ev.ID, err)
		t.result.Reply = "I couldn't complete the registration just now. Please try again."
		return
	}

	t.bag.PushEventID(ev.ID)
	t.bag.RegistrationCandidates = nil
	t.result.RefreshEvents = true
	t.result.Reply = fmt.Sprintf("You're registered for %q. I've put together a calendar link and a QR code for check-in.", ev.Title)
	t.result.Data = buildRegistrationCard(ev, reg)
}

// resolveRegistrationTarget picks the event to register for. Candidates from
// the last discovery are ephemeral: the chosen one is persisted here (if the
// listing didn't already) and the rest are forgotten.
func (e *Engine) resolveRegistrationTarget(t *turn, ex ai.Extraction) *event.Event {
	if len(t.bag.RegistrationCandidates) > 0 {
		titles := make([]string, len(t.bag.RegistrationCandidates))
		for i, c := range t.bag.RegistrationCandidates {
			titles[i] = c.Title
		}
		idx, err := e.ai.ExtractSelectionIndex(t.ctx, titles, t.message)
		if err == nil && idx > 0 {
			cand := t.bag.RegistrationCandidates[idx-1]
			ev, _, err := e.events.FindOrCreate(&event.Event{
				Title:     cand.Title,
				Snippet:   cand.Snippet,
				Location:  cand.Location,
				Source:    event.SourceDiscovered,
				SourceURL: cand.URL,
				UserID:    t.user.ID,
			})
			if err == nil {
				return ev
			}
			log.Printf("[Dialog] failed to persist picked candidate %q: %v", cand.Title, err)
		}
	}
	ev, err := e.focusedEvent(t, ex.EventTitle)
	if err != nil {
		return nil
	}
	return ev
}

// presentRegistrationCandidates searches for a named event the user has not
// discovered yet and offers up to five picks. The candidates stay ephemeral
// in context; only the one the user selects becomes an event row.
func (e *Engine) presentRegistrationCandidates(t *turn, title string) {
	results, err := e.search.Search(t.ctx, title)
	if err != nil {
		log.Printf("[Dialog] registration search failed for %q: %v", title, err)
		t.result.Reply = "I couldn't look that event up right now. Please try again shortly."
		return
	}
	kept := e.validateResults(t.ctx, results)
	if len(kept) == 0 {
		t.result.Reply = fmt.Sprintf("I couldn't find an event called %q. Want to create it instead?", title)
		return
	}
	if len(kept) > maxShownEvents {
		kept = kept[:maxShownEvents]
	}

	cands := make([]conversation.EventCandidate, 0, len(kept))
	var b strings.Builder
	fmt.Fprintf(&b, "I found a few matches for %q:\n", title)
	for i, r := range kept {
		cands = append(cands, conversation.EventCandidate{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
	}
	b.WriteString("\nWhich one should I register you for?")

	t.bag.RegistrationCandidates = cands
	t.result.Reply = b.String()
}

func buildRegistrationCard(ev *event.Event, reg *event.Registration) *RegistrationCard {
	card := &RegistrationCard{
		EventID:    ev.ID,
		EventTitle: ev.Title,
		Reference:  reg.Reference,
		QRPayload:  "eventchat:registration:" + reg.Reference,
		ShareText:  fmt.Sprintf("I'm going to %s. Join me!", ev.Title),
	}
	if ev.StartDate != nil {
		card.CalendarURL = calendarURL(ev)
	}
	return card
}

// calendarURL builds a Google Calendar template link for the event. Events
// without an end date default to two hours.
func calendarURL(ev *event.Event) string {
	start := ev.StartDate.UTC()
	end := start.Add(2 * time.Hour)
	if ev.EndDate != nil {
		end = ev.EndDate.UTC()
	}
	const stamp = "20060102T150405Z"
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", ev.Title)
	q.Set("dates", start.Format(stamp)+"/"+end.Format(stamp))
	if ev.Location != "" {
		q.Set("location", ev.Location)
	}
	if ev.Description != "" {
		q.Set("details", ev.Description)
	} else if ev.Snippet != "" {
		q.Set("details", ev.Snippet)
	}
	return "https://calendar.google.com/calendar/render?" + q.Encode()
}
