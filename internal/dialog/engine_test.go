package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"eventchat/internal/ai"
	"eventchat/internal/conversation"
	"eventchat/internal/event"
	"eventchat/internal/search"
	"eventchat/internal/user"
)

// fakeAI scripts the model surface per test. Unset hooks return neutral
// values so tests only script what they assert on.
type fakeAI struct {
	extract     func(message string) (ai.Extraction, error)
	facts       ai.EventFacts
	factsErr    error
	classify    string
	classifyErr error
	validate    func([]ai.Candidate) ([]int, error)
	selection   func(message string) int
	reminder    time.Time
	details     ai.RegistrationDetails
	suggest     func() ([]string, error)
}

func (f *fakeAI) ExtractEventQuery(_ context.Context, _ []ai.Turn, message string) (ai.Extraction, error) {
	if f.extract == nil {
		return ai.Extraction{Intent: ai.IntentGeneral}, nil
	}
	return f.extract(message)
}

func (f *fakeAI) ExtractEventFacts(_ context.Context, _ string, _ []string) (ai.EventFacts, error) {
	return f.facts, f.factsErr
}

func (f *fakeAI) DisambiguateIntent(_ context.Context, _, first, _ string) string { return first }

func (f *fakeAI) GenerateReply(_ context.Context, _ []ai.Turn, _, _ string) (string, error) {
	return "How can I help with events?", nil
}

func (f *fakeAI) ClassifyConfirmation(_ context.Context, _ string, _ []ai.Turn, _ string) (string, error) {
	if f.classifyErr != nil {
		return ai.ConfirmUnclear, f.classifyErr
	}
	if f.classify == "" {
		return ai.ConfirmUnclear, nil
	}
	return f.classify, nil
}

func (f *fakeAI) ValidateEventCandidates(_ context.Context, cands []ai.Candidate) ([]int, error) {
	if f.validate == nil {
		all := make([]int, len(cands))
		for i := range cands {
			all[i] = i
		}
		return all, nil
	}
	return f.validate(cands)
}

func (f *fakeAI) SuggestReplies(_ context.Context, _, _ string) ([]string, error) {
	if f.suggest == nil {
		return nil, errors.New("suggestions offline")
	}
	return f.suggest()
}

func (f *fakeAI) ExtractRegistrationDetails(_ context.Context, _ string) (ai.RegistrationDetails, error) {
	return f.details, nil
}

func (f *fakeAI) ExtractSelectionIndex(_ context.Context, _ []string, message string) (int, error) {
	if f.selection == nil {
		return 0, nil
	}
	return f.selection(message), nil
}

func (f *fakeAI) ParseReminderDate(_ context.Context, _ string, _, _ time.Time) (time.Time, error) {
	return f.reminder, nil
}

type fakeSearch struct {
	results []search.Result
	err     error
	calls   int
}

func (f *fakeSearch) Search(_ context.Context, _ string) ([]search.Result, error) {
	f.calls++
	return f.results, f.err
}

func setupEngine(t *testing.T, fa *fakeAI, fs *fakeSearch) (*Engine, *gorm.DB, *user.User) {
	t.Helper()
	dbConn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := dbConn.AutoMigrate(&user.User{}, &conversation.Conversation{}, &conversation.Message{},
		&event.Event{}, &event.Registration{}, &event.Reminder{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	u := &user.User{Username: "jo", Name: "Jo", Email: "jo@example.com", PasswordHash: "x"}
	if err := dbConn.Create(u).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	engine := NewEngine(dbConn, event.NewStore(dbConn), conversation.NewStore(dbConn), fa, fs, nil, nil)
	return engine, dbConn, u
}

func loadBag(t *testing.T, e *Engine, u *user.User, session string) *conversation.Context {
	t.Helper()
	_, bag, err := e.convs.LoadOrCreate(u.ID, session)
	if err != nil {
		t.Fatalf("failed to reload context: %v", err)
	}
	return bag
}

func createExtract(title string) func(string) (ai.Extraction, error) {
	return func(string) (ai.Extraction, error) {
		return ai.Extraction{Intent: ai.IntentCreate, EventTitle: title}, nil
	}
}

func TestCreation_DraftThenPlainNoSavesEvent(t *testing.T) {
	fa := &fakeAI{
		extract:  createExtract("Hack Night"),
		facts:    ai.EventFacts{Date: "2026-09-10", Time: "19:00", Location: "Community Hall"},
		// Classification must never be consulted for a bare refusal.
		classifyErr: errors.New("model must not be called"),
	}
	fs := &fakeSearch{results: []search.Result{
		{Title: "Hack Night", Link: "https://hack.example.com", Snippet: "An evening of hacking."},
	}}
	e, dbConn, u := setupEngine(t, fa, fs)

	res, err := e.ProcessTurn(context.Background(), u, "s1", "I want to host Hack Night")
	if err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	if !strings.Contains(res.Reply, "Hack Night") || !strings.Contains(res.Reply, "adjust") {
		t.Fatalf("expected draft card, got %q", res.Reply)
	}
	bag := loadBag(t, e, u, "s1")
	if bag.Creating == nil || !bag.Creating.WaitingForConfirmation {
		t.Fatalf("expected armed confirmation state, got %+v", bag.Creating)
	}

	res, err = e.ProcessTurn(context.Background(), u, "s1", "no")
	if err != nil {
		t.Fatalf("confirmation turn failed: %v", err)
	}
	if !res.RefreshEvents {
		t.Errorf("expected events refresh after save")
	}
	bag = loadBag(t, e, u, "s1")
	if bag.Creating != nil {
		t.Errorf("creation state should be cleared after save")
	}

	var ev event.Event
	if err := dbConn.Where("user_id = ? AND source = ?", u.ID, event.SourceUserCreated).First(&ev).Error; err != nil {
		t.Fatalf("expected persisted event: %v", err)
	}
	if ev.Title != "Hack Night" || ev.Location != "Community Hall" {
		t.Errorf("unexpected saved event: %+v", ev)
	}
	if ev.StartDate == nil || ev.StartDate.Format("2006-01-02 15:04") != "2026-09-10 19:00" {
		t.Errorf("unexpected start date: %v", ev.StartDate)
	}
	if fs.calls != 1 {
		t.Errorf("creation should search exactly once, searched %d times", fs.calls)
	}
}

func TestCreation_EditRequestUpdatesDraftThenSaves(t *testing.T) {
	fa := &fakeAI{
		classify: ai.ConfirmEdit,
	}
	fa.extract = func(message string) (ai.Extraction, error) {
		if strings.Contains(message, "Berlin") {
			return ai.Extraction{Intent: ai.IntentCreate, Location: "Berlin"}, nil
		}
		return ai.Extraction{Intent: ai.IntentCreate, EventTitle: "Hack Night"}, nil
	}
	fs := &fakeSearch{}
	e, dbConn, u := setupEngine(t, fa, fs)

	if _, err := e.ProcessTurn(context.Background(), u, "s1", "create Hack Night"); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	res, err := e.ProcessTurn(context.Background(), u, "s1", "move it to Berlin")
	if err != nil {
		t.Fatalf("edit turn failed: %v", err)
	}
	// The re-shown draft card never exposes the location; it only lands on
	// the persisted event.
	if !strings.Contains(res.Reply, "adjust") {
		t.Fatalf("expected re-shown draft, got %q", res.Reply)
	}
	if strings.Contains(res.Reply, "Berlin") {
		t.Errorf("draft card must not display the location: %q", res.Reply)
	}
	bag := loadBag(t, e, u, "s1")
	if bag.Creating == nil || bag.Creating.UserLocation != "Berlin" {
		t.Fatalf("expected user location recorded, got %+v", bag.Creating)
	}

	if _, err := e.ProcessTurn(context.Background(), u, "s1", "yes"); err != nil {
		t.Fatalf("save turn failed: %v", err)
	}
	var ev event.Event
	if err := dbConn.Where("user_id = ?", u.ID).First(&ev).Error; err != nil {
		t.Fatalf("expected persisted event: %v", err)
	}
	if ev.Location != "Berlin" {
		t.Errorf("user-entered location should win, got %q", ev.Location)
	}
}

func TestCreation_SavedDraftUsesLastKnownCity(t *testing.T) {
	fa := &fakeAI{extract: createExtract("Hack Night")}
	fs := &fakeSearch{}
	e, dbConn, u := setupEngine(t, fa, fs)
	u.LastCity = "Berlin"
	if err := dbConn.Save(u).Error; err != nil {
		t.Fatalf("failed to store city: %v", err)
	}

	if _, err := e.ProcessTurn(context.Background(), u, "s1", "create Hack Night"); err != nil {
		t.Fatalf("draft turn failed: %v", err)
	}
	if _, err := e.ProcessTurn(context.Background(), u, "s1", "yes"); err != nil {
		t.Fatalf("save turn failed: %v", err)
	}

	var ev event.Event
	if err := dbConn.Where("user_id = ?", u.ID).First(&ev).Error; err != nil {
		t.Fatalf("expected persisted event: %v", err)
	}
	// Neither the user nor the web named a place, so the user's own city
	// fills in.
	if ev.Location != "Berlin" {
		t.Errorf("expected last known city as location, got %q", ev.Location)
	}
}

func TestCreation_MissingTitleAskedThenTakenFromNextMessage(t *testing.T) {
	fa := &fakeAI{}
	fa.extract = func(message string) (ai.Extraction, error) {
		if message == "I want to create an event" {
			return ai.Extraction{Intent: ai.IntentCreate}, nil
		}
		return ai.Extraction{Intent: ai.IntentGeneral}, nil
	}
	fs := &fakeSearch{}
	e, _, u := setupEngine(t, fa, fs)

	res, err := e.ProcessTurn(context.Background(), u, "s1", "I want to create an event")
	if err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	if !strings.Contains(res.Reply, "called") {
		t.Fatalf("expected title question, got %q", res.Reply)
	}

	res, err = e.ProcessTurn(context.Background(), u, "s1", "Garden Party")
	if err != nil {
		t.Fatalf("title turn failed: %v", err)
	}
	bag := loadBag(t, e, u, "s1")
	if bag.Creating == nil || bag.Creating.Title != "Garden Party" {
		t.Fatalf("expected message taken as title, got %+v", bag.Creating)
	}
	if !bag.Creating.WaitingForConfirmation {
		t.Errorf("expected draft shown after title arrived")
	}
}

func TestConfirmation_OverridesOtherIntents(t *testing.T) {
	fa := &fakeAI{extract: createExtract("Hack Night")}
	fs := &fakeSearch{}
	e, _, u := setupEngine(t, fa, fs)

	if _, err := e.ProcessTurn(context.Background(), u, "s1", "create Hack Night"); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	// While the draft card is up, even a discovery-looking message is a
	// confirmation answer, and an unclear one keeps the state armed.
	res, err := e.ProcessTurn(context.Background(), u, "s1", "find me concerts in berlin")
	if err != nil {
		t.Fatalf("confirmation turn failed: %v", err)
	}
	if fs.calls != 1 {
		t.Errorf("no new search may run during confirmation, got %d calls", fs.calls)
	}
	if !strings.Contains(res.Reply, "save the event") {
		t.Errorf("expected clarifying question, got %q", res.Reply)
	}
	bag := loadBag(t, e, u, "s1")
	if bag.Creating == nil || !bag.Creating.WaitingForConfirmation {
		t.Errorf("confirmation state must survive an unclear answer")
	}
}

func discoveryExtract(message string) (ai.Extraction, error) {
	return ai.Extraction{Intent: ai.IntentDiscovery, Category: "tech", Location: "Berlin"}, nil
}

func TestDiscovery_ValidatorFailureFallsBackPermissively(t *testing.T) {
	fa := &fakeAI{
		extract: discoveryExtract,
		validate: func([]ai.Candidate) ([]int, error) {
			return nil, errors.New("validator offline")
		},
	}
	fs := &fakeSearch{results: []search.Result{
		{Title: "AI Expo Berlin", Link: "https://expo.example.com", Snippet: "expo"},
		{Title: "ok", Link: "https://short.example.com", Snippet: "too short to be real"},
		{Title: "Tech Summit 2026", Link: "https://summit.example.com", Snippet: "summit"},
	}}
	e, dbConn, u := setupEngine(t, fa, fs)

	res, err := e.ProcessTurn(context.Background(), u, "s1", "tech events in berlin")
	if err != nil {
		t.Fatalf("discovery failed: %v", err)
	}
	if len(res.Events) != 2 {
		t.Fatalf("expected 2 events after fallback filter, got %d", len(res.Events))
	}
	var count int64
	dbConn.Model(&event.Event{}).Where("user_id = ? AND source = ?", u.ID, event.SourceDiscovered).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 discovered rows, got %d", count)
	}
	bag := loadBag(t, e, u, "s1")
	if len(bag.RegistrationCandidates) != 2 {
		t.Errorf("expected candidates mirroring shown list, got %d", len(bag.RegistrationCandidates))
	}
}

func TestDiscovery_ReplyShowsTitleSnippetLinkOnly(t *testing.T) {
	fa := &fakeAI{extract: discoveryExtract}
	fs := &fakeSearch{results: []search.Result{
		{Title: "AI Expo", Link: "https://expo.example.com", Snippet: "Annual tech expo"},
	}}
	e, _, u := setupEngine(t, fa, fs)
	// Pre-existing row for the same event carrying a location.
	seed := &event.Event{Title: "AI Expo", Source: event.SourceDiscovered, UserID: u.ID,
		SourceURL: "https://expo.example.com", Snippet: "Annual tech expo", Location: "Springfield"}
	if _, _, err := e.events.FindOrCreate(seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	res, err := e.ProcessTurn(context.Background(), u, "s1", "tech events")
	if err != nil {
		t.Fatalf("discovery failed: %v", err)
	}
	if !strings.Contains(res.Reply, "AI Expo") ||
		!strings.Contains(res.Reply, "Annual tech expo") ||
		!strings.Contains(res.Reply, "https://expo.example.com") {
		t.Errorf("expected title, snippet and link in the listing: %q", res.Reply)
	}
	if strings.Contains(res.Reply, "Springfield") {
		t.Errorf("stored location must not leak into the listing: %q", res.Reply)
	}
}

func TestDiscovery_RepeatSearchDoesNotDuplicateEvents(t *testing.T) {
	fa := &fakeAI{extract: discoveryExtract}
	fs := &fakeSearch{results: []search.Result{
		{Title: "AI Expo Berlin", Link: "https://expo.example.com", Snippet: "expo"},
	}}
	e, dbConn, u := setupEngine(t, fa, fs)

	for i := 0; i < 2; i++ {
		if _, err := e.ProcessTurn(context.Background(), u, "s1", "tech events in berlin"); err != nil {
			t.Fatalf("discovery %d failed: %v", i, err)
		}
	}
	var count int64
	dbConn.Model(&event.Event{}).Where("user_id = ?", u.ID).Count(&count)
	if count != 1 {
		t.Errorf("repeat discovery must reuse the stored event, got %d rows", count)
	}
}

func TestRegistration_PickFromListThenDuplicateIsSurfaced(t *testing.T) {
	fa := &fakeAI{
		extract: func(message string) (ai.Extraction, error) {
			if strings.Contains(message, "register") {
				return ai.Extraction{Intent: ai.IntentRegistration}, nil
			}
			return discoveryExtract(message)
		},
		selection: func(string) int { return 1 },
		details:   ai.RegistrationDetails{},
	}
	fs := &fakeSearch{results: []search.Result{
		{Title: "AI Expo Berlin", Link: "https://expo.example.com", Snippet: "expo"},
	}}
	e, dbConn, u := setupEngine(t, fa, fs)

	if _, err := e.ProcessTurn(context.Background(), u, "s1", "tech events in berlin"); err != nil {
		t.Fatalf("discovery failed: %v", err)
	}
	res, err := e.ProcessTurn(context.Background(), u, "s1", "register me for the first one")
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	card, ok := res.Data.(*RegistrationCard)
	if !ok {
		t.Fatalf("expected registration card, got %T", res.Data)
	}
	if card.Reference == "" || !strings.HasPrefix(card.QRPayload, "eventchat:registration:") {
		t.Errorf("unexpected card: %+v", card)
	}
	var reg event.Registration
	if err := dbConn.Where("user_id = ?", u.ID).First(&reg).Error; err != nil {
		t.Fatalf("expected registration row: %v", err)
	}
	if reg.Name != "Jo" || reg.Email != "jo@example.com" {
		t.Errorf("profile details should back-fill registration, got %+v", reg)
	}

	// Same request again: the candidate list is gone, the focused event
	// resolves, and the duplicate is reported instead of re-created.
	res, err = e.ProcessTurn(context.Background(), u, "s1", "register me for the first one")
	if err != nil {
		t.Fatalf("repeat registration failed: %v", err)
	}
	if !strings.Contains(res.Reply, "already registered") {
		t.Errorf("expected duplicate surfaced, got %q", res.Reply)
	}
	var count int64
	dbConn.Model(&event.Registration{}).Where("user_id = ?", u.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected a single registration row, got %d", count)
	}
}

func TestRegistration_NamedUnknownEventOffersCandidates(t *testing.T) {
	fa := &fakeAI{
		extract: func(string) (ai.Extraction, error) {
			return ai.Extraction{Intent: ai.IntentRegistration, EventTitle: "Jazz Fest"}, nil
		},
		selection: func(string) int { return 1 },
	}
	fs := &fakeSearch{results: []search.Result{
		{Title: "Jazz Fest Open Air", Link: "https://jazz.example.com", Snippet: "open air jazz"},
		{Title: "Jazz Fest Club Night", Link: "https://club.example.com", Snippet: "club night"},
	}}
	e, dbConn, u := setupEngine(t, fa, fs)

	res, err := e.ProcessTurn(context.Background(), u, "s1", "register me for Jazz Fest")
	if err != nil {
		t.Fatalf("registration turn failed: %v", err)
	}
	if !strings.Contains(res.Reply, "1. Jazz Fest Open Air") || !strings.Contains(res.Reply, "register you for") {
		t.Fatalf("expected numbered candidate list, got %q", res.Reply)
	}
	// Offering candidates must not persist anything yet.
	var count int64
	dbConn.Model(&event.Event{}).Count(&count)
	if count != 0 {
		t.Fatalf("candidates must stay ephemeral until one is picked, got %d rows", count)
	}
	bag := loadBag(t, e, u, "s1")
	if len(bag.RegistrationCandidates) != 2 {
		t.Fatalf("expected 2 stored candidates, got %d", len(bag.RegistrationCandidates))
	}

	res, err = e.ProcessTurn(context.Background(), u, "s1", "the first one")
	if err != nil {
		t.Fatalf("selection turn failed: %v", err)
	}
	if _, ok := res.Data.(*RegistrationCard); !ok {
		t.Fatalf("expected registration card, got %T", res.Data)
	}
	var ev event.Event
	if err := dbConn.Where("user_id = ?", u.ID).First(&ev).Error; err != nil {
		t.Fatalf("picked candidate should be persisted: %v", err)
	}
	if ev.Title != "Jazz Fest Open Air" {
		t.Errorf("wrong candidate persisted: %q", ev.Title)
	}
}

func TestReminder_DefaultsToDayBeforeStart(t *testing.T) {
	start := time.Now().Add(10 * 24 * time.Hour).Truncate(time.Hour)
	fa := &fakeAI{
		extract: func(string) (ai.Extraction, error) {
			return ai.Extraction{Intent: ai.IntentReminder, EventTitle: "Hack Night"}, nil
		},
	}
	e, dbConn, u := setupEngine(t, fa, &fakeSearch{})
	seed := &event.Event{Title: "Hack Night", Source: event.SourceUserCreated, UserID: u.ID, StartDate: &start}
	if err := e.events.Create(seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	res, err := e.ProcessTurn(context.Background(), u, "s1", "remind me about Hack Night")
	if err != nil {
		t.Fatalf("reminder turn failed: %v", err)
	}
	if !strings.Contains(res.Reply, "remind you") {
		t.Errorf("unexpected reply: %q", res.Reply)
	}
	var rem event.Reminder
	if err := dbConn.Where("user_id = ?", u.ID).First(&rem).Error; err != nil {
		t.Fatalf("expected reminder row: %v", err)
	}
	want := start.Add(-24 * time.Hour)
	if !rem.ReminderDate.Equal(want) {
		t.Errorf("expected default %v, got %v", want, rem.ReminderDate)
	}
	if rem.ReminderType != event.ReminderBeforeEvent {
		t.Errorf("expected before_event type, got %q", rem.ReminderType)
	}
}

func TestReminder_UndatedEventAsksInsteadOfGuessing(t *testing.T) {
	fa := &fakeAI{
		extract: func(string) (ai.Extraction, error) {
			return ai.Extraction{Intent: ai.IntentReminder, EventTitle: "Mystery Meetup"}, nil
		},
	}
	e, dbConn, u := setupEngine(t, fa, &fakeSearch{})
	if err := e.events.Create(&event.Event{Title: "Mystery Meetup", Source: event.SourceUserCreated, UserID: u.ID}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	res, err := e.ProcessTurn(context.Background(), u, "s1", "remind me about Mystery Meetup")
	if err != nil {
		t.Fatalf("reminder turn failed: %v", err)
	}
	if !strings.Contains(res.Reply, "doesn't have a date") {
		t.Errorf("expected date question, got %q", res.Reply)
	}
	var count int64
	dbConn.Model(&event.Reminder{}).Count(&count)
	if count != 0 {
		t.Errorf("no reminder may be stored without a date, got %d", count)
	}
}

func TestReminder_SecondPendingReminderRejected(t *testing.T) {
	start := time.Now().Add(5 * 24 * time.Hour)
	fa := &fakeAI{
		extract: func(string) (ai.Extraction, error) {
			return ai.Extraction{Intent: ai.IntentReminder, EventTitle: "Hack Night"}, nil
		},
	}
	e, dbConn, u := setupEngine(t, fa, &fakeSearch{})
	if err := e.events.Create(&event.Event{Title: "Hack Night", Source: event.SourceUserCreated, UserID: u.ID, StartDate: &start}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if _, err := e.ProcessTurn(context.Background(), u, "s1", "remind me about Hack Night"); err != nil {
		t.Fatalf("first reminder failed: %v", err)
	}
	res, err := e.ProcessTurn(context.Background(), u, "s1", "remind me about Hack Night")
	if err != nil {
		t.Fatalf("second reminder failed: %v", err)
	}
	if !strings.Contains(res.Reply, "already have a reminder") {
		t.Errorf("expected duplicate reminder surfaced, got %q", res.Reply)
	}
	var count int64
	dbConn.Model(&event.Reminder{}).Count(&count)
	if count != 1 {
		t.Errorf("expected one pending reminder, got %d", count)
	}
}

func TestReminder_FallsBackToLatestRegistration(t *testing.T) {
	start := time.Now().Add(7 * 24 * time.Hour).Truncate(time.Hour)
	fa := &fakeAI{
		extract: func(string) (ai.Extraction, error) {
			return ai.Extraction{Intent: ai.IntentReminder}, nil
		},
	}
	e, dbConn, u := setupEngine(t, fa, &fakeSearch{})
	seed := &event.Event{Title: "Signed Up Summit", Source: event.SourceDiscovered, UserID: u.ID, StartDate: &start}
	if err := e.events.Create(seed); err != nil {
		t.Fatalf("seed event failed: %v", err)
	}
	reg := &event.Registration{UserID: u.ID, EventID: seed.ID, Name: "Jo", Email: "jo@example.com", Status: "confirmed", Reference: "ref-1"}
	if err := e.events.CreateRegistration(reg); err != nil {
		t.Fatalf("seed registration failed: %v", err)
	}

	// Fresh session: no focused event in context, so the latest registration
	// decides which event the reminder is about.
	res, err := e.ProcessTurn(context.Background(), u, "s2", "remind me")
	if err != nil {
		t.Fatalf("reminder turn failed: %v", err)
	}
	if !strings.Contains(res.Reply, "Signed Up Summit") {
		t.Fatalf("expected registered event picked up, got %q", res.Reply)
	}
	var rem event.Reminder
	if err := dbConn.Where("user_id = ?", u.ID).First(&rem).Error; err != nil {
		t.Fatalf("expected reminder row: %v", err)
	}
	if rem.EventID != seed.ID {
		t.Errorf("reminder bound to wrong event: %d", rem.EventID)
	}
}

func TestReminder_NoContextAsksForEvent(t *testing.T) {
	fa := &fakeAI{
		extract: func(string) (ai.Extraction, error) {
			return ai.Extraction{Intent: ai.IntentReminder}, nil
		},
	}
	e, dbConn, u := setupEngine(t, fa, &fakeSearch{})

	res, err := e.ProcessTurn(context.Background(), u, "s1", "remind me")
	if err != nil {
		t.Fatalf("reminder turn failed: %v", err)
	}
	if !strings.Contains(res.Reply, "Which event") {
		t.Errorf("expected clarifying question, got %q", res.Reply)
	}
	var count int64
	dbConn.Model(&event.Reminder{}).Count(&count)
	if count != 0 {
		t.Errorf("no reminder may be stored without a target, got %d", count)
	}
}

func TestGeneralTurn_FallbackSuggestionsAlwaysPresent(t *testing.T) {
	fa := &fakeAI{}
	e, _, u := setupEngine(t, fa, &fakeSearch{})

	res, err := e.ProcessTurn(context.Background(), u, "s1", "hello there")
	if err != nil {
		t.Fatalf("general turn failed: %v", err)
	}
	if len(res.Suggestions) == 0 {
		t.Errorf("expected fallback suggestions when the model offers none")
	}
}

func TestSuggestions_ModelWinsOverFallbackTable(t *testing.T) {
	fa := &fakeAI{
		extract: discoveryExtract,
		suggest: func() ([]string, error) {
			return []string{"Only free events", "Anything tonight?"}, nil
		},
	}
	fs := &fakeSearch{results: []search.Result{
		{Title: "AI Expo Berlin", Link: "https://expo.example.com", Snippet: "expo"},
	}}
	e, _, u := setupEngine(t, fa, fs)

	res, err := e.ProcessTurn(context.Background(), u, "s1", "tech events in berlin")
	if err != nil {
		t.Fatalf("discovery failed: %v", err)
	}
	if len(res.Suggestions) != 2 || res.Suggestions[0] != "Only free events" {
		t.Errorf("model suggestions should be used when available, got %v", res.Suggestions)
	}
}

func TestProcessTurn_TranscriptRecordsBothSides(t *testing.T) {
	fa := &fakeAI{}
	e, dbConn, u := setupEngine(t, fa, &fakeSearch{})

	if _, err := e.ProcessTurn(context.Background(), u, "s1", "hello"); err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	var msgs []conversation.Message
	if err := dbConn.Order("id asc").Find(&msgs).Error; err != nil {
		t.Fatalf("failed to read transcript: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("unexpected transcript: %+v", msgs)
	}
}
