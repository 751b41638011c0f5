package dialog

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"eventchat/internal/ai"
	"eventchat/internal/conversation"
	"eventchat/internal/event"
	"eventchat/internal/search"
	"eventchat/internal/tools"
	"eventchat/internal/user"
)

// Canned reply used when the language model is unreachable. The turn still
// completes and the transcript stays consistent.
const unavailableReply = "I'm having trouble thinking right now. Please try again in a moment."

// AIClient is the slice of the language-model surface the engine uses.
// *ai.Client satisfies it; tests substitute fakes.
type AIClient interface {
	ExtractEventQuery(ctx context.Context, history []ai.Turn, message string) (ai.Extraction, error)
	ExtractEventFacts(ctx context.Context, title string, snippets []string) (ai.EventFacts, error)
	DisambiguateIntent(ctx context.Context, message, first, second string) string
	GenerateReply(ctx context.Context, history []ai.Turn, message, instruction string) (string, error)
	ClassifyConfirmation(ctx context.Context, title string, history []ai.Turn, message string) (string, error)
	ValidateEventCandidates(ctx context.Context, candidates []ai.Candidate) ([]int, error)
	SuggestReplies(ctx context.Context, intent, lastReply string) ([]string, error)
	ExtractRegistrationDetails(ctx context.Context, message string) (ai.RegistrationDetails, error)
	ExtractSelectionIndex(ctx context.Context, candidates []string, message string) (int, error)
	ParseReminderDate(ctx context.Context, message string, now, eventStart time.Time) (time.Time, error)
}

type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

type PageReader interface {
	Extract(ctx context.Context, pageURL string) (*tools.PageMeta, error)
}

// TurnResult is everything one processed message produces.
type TurnResult struct {
	SessionID     string        `json:"sessionId"`
	Reply         string        `json:"reply"`
	Suggestions   []string      `json:"suggestions,omitempty"`
	RefreshEvents bool          `json:"refreshEvents,omitempty"`
	Events        []event.Event `json:"events,omitempty"`
	Data          interface{}   `json:"data,omitempty"`
}

// Engine drives the dialog state machine. One engine serves all sessions;
// turns within a session are serialized, sessions run concurrently.
type Engine struct {
	db      *gorm.DB
	events  *event.Store
	convs   *conversation.Store
	ai      AIClient
	search  Searcher
	geo     Geocoder
	pages   PageReader
	locks   *sessionLocks
	nowFunc func() time.Time
}

func NewEngine(db *gorm.DB, events *event.Store, convs *conversation.Store, aiClient AIClient, searcher Searcher, geo Geocoder, pages PageReader) *Engine {
	return &Engine{
		db:      db,
		events:  events,
		convs:   convs,
		ai:      aiClient,
		search:  searcher,
		geo:     geo,
		pages:   pages,
		locks:   newSessionLocks(),
		nowFunc: time.Now,
	}
}

// turn bundles the per-turn state handed through the flow handlers.
type turn struct {
	ctx     context.Context
	user    *user.User
	conv    *conversation.Conversation
	bag     *conversation.Context
	message string
	history []ai.Turn
	result  *TurnResult
}

// ProcessTurn runs one user message through the state machine and returns the
// assistant's reply. Turns on the same session are strictly ordered.
func (e *Engine) ProcessTurn(ctx context.Context, u *user.User, sessionID, message string) (*TurnResult, error) {
	release := e.locks.acquire(sessionID)
	defer release()

	conv, bag, err := e.convs.LoadOrCreate(u.ID, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := e.convs.AppendMessage(conv.ID, "user", message); err != nil {
		return nil, err
	}

	t := &turn{
		ctx:     ctx,
		user:    u,
		conv:    conv,
		bag:     bag,
		message: strings.TrimSpace(message),
		history: e.recentHistory(conv.ID),
		result:  &TurnResult{SessionID: sessionID},
	}

	e.dispatch(t)

	if _, err := e.convs.AppendMessage(conv.ID, "assistant", t.result.Reply); err != nil {
		log.Printf("[Dialog] failed to record assistant reply (session %s): %v", sessionID, err)
	}
	if err := e.convs.SaveContextWithRetry(conv, bag); err != nil {
		// The reply already stands; a lost context write costs at most one
		// turn of working memory.
		log.Printf("[Dialog] context save failed (session %s): %v", sessionID, err)
	}
	t.result.Suggestions = e.suggestions(ctx, string(bag.LastIntent), t.result.Reply)
	return t.result, nil
}

// dispatch routes the message to a flow. An active confirmation always wins:
// while a draft card is on screen the message is an answer to it, whatever it
// looks like.
func (e *Engine) dispatch(t *turn) {
	if t.bag.Creating != nil && t.bag.Creating.WaitingForConfirmation {
		e.handleConfirmation(t)
		return
	}
	if t.bag.Creating != nil && t.bag.Creating.Title == "" {
		e.handleTitleAnswer(t)
		return
	}

	ex, err := e.ai.ExtractEventQuery(t.ctx, t.history, t.message)
	if err != nil {
		t.result.Reply = unavailableReply
		return
	}
	intent := e.resolveAmbiguity(t, ex.Intent)

	switch intent {
	case ai.IntentCreate:
		t.bag.LastIntent = conversation.IntentCreate
		e.handleCreate(t, ex)
	case ai.IntentDiscovery:
		t.bag.LastIntent = conversation.IntentDiscovery
		e.handleDiscovery(t, ex)
	case ai.IntentRegistration:
		t.bag.LastIntent = conversation.IntentRegistration
		e.handleRegistration(t, ex)
	case ai.IntentReminder:
		t.bag.LastIntent = conversation.IntentReminder
		e.handleReminder(t, ex)
	default:
		t.bag.LastIntent = conversation.IntentGeneral
		e.handleGeneral(t)
	}
}

// resolveAmbiguity re-checks a general classification once when the context
// shows an unfinished flow. A fragment like "this weekend", sent right after
// a discovery query, reads as small talk in isolation; one forced-choice
// call decides whether it continues the flow.
func (e *Engine) resolveAmbiguity(t *turn, intent string) string {
	if intent != ai.IntentGeneral {
		return intent
	}
	if t.bag.Creating != nil {
		return e.ai.DisambiguateIntent(t.ctx, t.message, ai.IntentCreate, ai.IntentGeneral)
	}
	if t.bag.LastSearchQuery != "" {
		return e.ai.DisambiguateIntent(t.ctx, t.message, ai.IntentDiscovery, ai.IntentGeneral)
	}
	return intent
}

func (e *Engine) handleGeneral(t *turn) {
	reply, err := e.ai.GenerateReply(t.ctx, t.history, t.message, "")
	if err != nil {
		t.result.Reply = unavailableReply
		return
	}
	t.result.Reply = reply
}

// recentHistory loads the tail of the transcript as model context. The just
// appended user message is excluded; it travels separately.
func (e *Engine) recentHistory(conversationID uint) []ai.Turn {
	msgs, err := e.convs.RecentMessages(conversationID, 5)
	if err != nil {
		return nil
	}
	turns := make([]ai.Turn, 0, len(msgs))
	for _, m := range msgs[:max(0, len(msgs)-1)] {
		turns = append(turns, ai.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// userPlace resolves the user's city, reverse-geocoding stored coordinates
// when no city is cached. Best effort; an empty result just means the search
// query carries no place.
func (e *Engine) userPlace(ctx context.Context, u *user.User) string {
	if u.LastCity != "" {
		return u.LastCity
	}
	if !u.HasLocation() || e.geo == nil {
		return ""
	}
	city, err := e.geo.ReverseGeocode(ctx, *u.LastLat, *u.LastLng)
	if err != nil {
		log.Printf("[Dialog] reverse geocode failed for user %d: %v", u.ID, err)
		return ""
	}
	u.LastCity = city
	if err := e.db.Model(&user.User{}).Where("id = ?", u.ID).Update("last_city", city).Error; err != nil {
		log.Printf("[Dialog] failed to cache user city: %v", err)
	}
	return city
}

var errNoFocus = errors.New("no event in focus")

// focusedEvent resolves which stored event the message is about: a named
// title wins, then the most recently touched event, then nothing.
func (e *Engine) focusedEvent(t *turn, namedTitle string) (*event.Event, error) {
	if namedTitle != "" {
		if ev, err := e.events.FindByTitle(t.user.ID, namedTitle); err == nil {
			return ev, nil
		}
	}
	if id := t.bag.FocusedEventID(); id != 0 {
		if ev, err := e.events.ByID(t.user.ID, id); err == nil {
			return ev, nil
		}
	}
	return nil, errNoFocus
}
