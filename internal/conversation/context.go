package conversation

import (
	"encoding/json"
)

type Intent string

const (
	IntentDiscovery    Intent = "discovery"
	IntentCreate       Intent = "create"
	IntentRegistration Intent = "registration"
	IntentReminder     Intent = "reminder"
	IntentGeneral      Intent = "general"
)

const maxTrackedEventIDs = 5

// EventCandidate is an ephemeral, not-yet-persisted search hit kept in
// context while the user picks one (registration flow).
type EventCandidate struct {
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
	Location string `json:"location,omitempty"`
	Date     string `json:"date,omitempty"`
}

// CreatingEvent is the event-creation working state. It exists only while a
// creation dialog is active and is always cleared as a whole, never field by
// field.
type CreatingEvent struct {
	Title string `json:"title"`

	// Cached web-search evidence, fetched once per title.
	SearchDone bool     `json:"searchDone"`
	Snippets   []string `json:"snippets,omitempty"` // best 5 result snippets
	Links      []string `json:"links,omitempty"`    // best 5 result links

	// Best-known values. User input always wins over web-derived data.
	ExtractedDate     string `json:"extractedDate,omitempty"`     // ISO date or empty
	ExtractedTime     string `json:"extractedTime,omitempty"`     // HH:MM or empty
	ExtractedLocation string `json:"extractedLocation,omitempty"`
	UserDate          string `json:"userDate,omitempty"`
	UserTime          string `json:"userTime,omitempty"`
	UserLocation      string `json:"userLocation,omitempty"`

	// True exactly while a draft card is displayed and the engine awaits a
	// proceed/edit decision. The next inbound message MUST then be treated
	// as a confirmation response, never as a new intent.
	WaitingForConfirmation bool `json:"waitingForConfirmation"`
	ShownEventCard         bool `json:"shownEventCard"`
}

// Context is the dialog's working memory: the only place cross-turn state
// lives. A conversation must be resumable from (messages, context) alone.
type Context struct {
	LastIntent      Intent `json:"lastIntent,omitempty"`
	LastSearchQuery string `json:"lastSearchQuery,omitempty"`

	// Most-recent-first, bounded to 5.
	LastEventIDs []uint `json:"lastEventIds,omitempty"`

	Creating *CreatingEvent `json:"creatingEvent,omitempty"`

	RegistrationCandidates []EventCandidate `json:"foundEventsForRegistration,omitempty"`
}

// PushEventID records a persisted event as "in focus", most-recent-first,
// bounded to 5.
func (c *Context) PushEventID(id uint) {
	ids := make([]uint, 0, maxTrackedEventIDs)
	ids = append(ids, id)
	for _, existing := range c.LastEventIDs {
		if existing == id {
			continue
		}
		ids = append(ids, existing)
		if len(ids) == maxTrackedEventIDs {
			break
		}
	}
	c.LastEventIDs = ids
}

// FocusedEventID returns the most recent event id, or 0.
func (c *Context) FocusedEventID() uint {
	if len(c.LastEventIDs) == 0 {
		return 0
	}
	return c.LastEventIDs[0]
}

// ClearCreating tears down the whole creation state atomically.
func (c *Context) ClearCreating() {
	c.Creating = nil
}

// DecodeContext unmarshals a stored context blob; a missing or corrupt blob
// degrades to an empty context so a conversation is never unrecoverable.
func DecodeContext(raw []byte) *Context {
	ctx := &Context{}
	if len(raw) == 0 {
		return ctx
	}
	if err := json.Unmarshal(raw, ctx); err != nil {
		return &Context{}
	}
	return ctx
}

// EncodeContext marshals the context for storage.
func EncodeContext(ctx *Context) []byte {
	raw, err := json.Marshal(ctx)
	if err != nil {
		return []byte("{}")
	}
	return raw
}
