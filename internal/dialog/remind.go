package dialog

import (
	"errors"
	"fmt"
	"log"
	"time"

	"eventchat/internal/ai"
	"eventchat/internal/event"
)

// handleReminder sets a reminder for an event. Focus resolution: an event
// named in the message wins, then the event most recently talked about, then
// the user's latest registration. Without a requested time the reminder lands
// one day before the event starts; when neither exists the engine asks
// instead of inventing a date.
func (e *Engine) handleReminder(t *turn, ex ai.Extraction) {
	ev, err := e.focusedEvent(t, ex.EventTitle)
	if err != nil {
		ev = e.latestRegisteredEvent(t)
	}
	if ev == nil {
		t.result.Reply = "Which event should I remind you about?"
		return
	}

	now := e.nowFunc()
	var eventStart time.Time
	if ev.StartDate != nil {
		eventStart = *ev.StartDate
	}
	when, err := e.ai.ParseReminderDate(t.ctx, t.message, now, eventStart)
	if err != nil {
		log.Printf("[Dialog] reminder date parse failed: %v", err)
		when = time.Time{}
	}
	if when.IsZero() {
		if ev.StartDate == nil {
			t.bag.PushEventID(ev.ID)
			t.result.Reply = fmt.Sprintf("%q doesn't have a date yet, so I can't pick a time for you. When should I remind you?", ev.Title)
			return
		}
		when = ev.StartDate.Add(-24 * time.Hour)
	}
	if when.Before(now) {
		t.bag.PushEventID(ev.ID)
		t.result.Reply = fmt.Sprintf("That reminder time for %q has already passed. When should I remind you instead?", ev.Title)
		return
	}

	rem := &event.Reminder{
		UserID:       t.user.ID,
		EventID:      ev.ID,
		ReminderDate: when,
		ReminderType: event.ReminderBeforeEvent,
		Status:       event.ReminderPending,
	}
	if err := e.events.CreateReminder(rem); err != nil {
		if errors.Is(err, event.ErrReminderExists) {
			t.result.Reply = fmt.Sprintf("You already have a reminder set for %q.", ev.Title)
			return
		}
		log.Printf("[Dialog] failed to create reminder for event %d: %v", ev.ID, err)
		t.result.Reply = "I couldn't set that reminder just now. Please try again."
		return
	}

	t.bag.PushEventID(ev.ID)
	t.result.RefreshEvents = true
	t.result.Reply = fmt.Sprintf("Got it. I'll remind you about %q on %s.", ev.Title, when.Format("Mon, Jan 2 at 15:04"))
}

// latestRegisteredEvent falls back to the event behind the user's most recent
// registration. Someone who just signed up and says "remind me" means that
// event, even when the conversation has moved on.
func (e *Engine) latestRegisteredEvent(t *turn) *event.Event {
	reg, err := e.events.LatestRegistration(t.user.ID)
	if err != nil {
		return nil
	}
	ev, err := e.events.ByID(t.user.ID, reg.EventID)
	if err != nil {
		return nil
	}
	return ev
}
