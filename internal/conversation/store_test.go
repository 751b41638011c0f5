package conversation

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupConvDB(t *testing.T) *Store {
	dbConn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := dbConn.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewStore(dbConn)
}

func TestLoadOrCreate_NewAndExisting(t *testing.T) {
	store := setupConvDB(t)
	conv, ctx, err := store.LoadOrCreate(1, "sess-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if conv.ID == 0 || ctx == nil {
		t.Fatalf("expected fresh conversation, got %+v", conv)
	}

	again, _, err := store.LoadOrCreate(1, "sess-1")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.ID != conv.ID {
		t.Errorf("expected same conversation, got %d vs %d", again.ID, conv.ID)
	}
}

func TestMessages_AppendOnlyOrder(t *testing.T) {
	store := setupConvDB(t)
	conv, _, _ := store.LoadOrCreate(1, "sess-m")
	for _, content := range []string{"first", "second", "third"} {
		if _, err := store.AppendMessage(conv.ID, RoleUser, content); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	msgs, err := store.Messages(conv.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 3 || msgs[0].Content != "first" || msgs[2].Content != "third" {
		t.Errorf("transcript order broken: %+v", msgs)
	}

	recent, err := store.RecentMessages(conv.ID, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "second" || recent[1].Content != "third" {
		t.Errorf("recent window wrong: %+v", recent)
	}
}

func TestSaveContext_RoundTrip(t *testing.T) {
	store := setupConvDB(t)
	conv, ctx, _ := store.LoadOrCreate(2, "sess-c")

	ctx.LastIntent = IntentCreate
	ctx.Creating = &CreatingEvent{Title: "Tech Summit 2025", WaitingForConfirmation: true, ShownEventCard: true}
	ctx.PushEventID(11)
	if err := store.SaveContext(conv, ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, loaded, err := store.LoadOrCreate(2, "sess-c")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Creating == nil || !loaded.Creating.WaitingForConfirmation {
		t.Errorf("creating state lost: %+v", loaded)
	}
	if loaded.LastIntent != IntentCreate || loaded.FocusedEventID() != 11 {
		t.Errorf("context fields lost: %+v", loaded)
	}
}

func TestSaveContext_VersionConflict(t *testing.T) {
	store := setupConvDB(t)
	conv, ctx, _ := store.LoadOrCreate(3, "sess-race")

	// Two turns load the same version.
	convB, ctxB, _ := store.LoadOrCreate(3, "sess-race")

	if err := store.SaveContext(conv, ctx); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.SaveContext(convB, ctxB); err != ErrVersionConflict {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}
}

func TestSaveContextWithRetry_DoesNotRetryConflicts(t *testing.T) {
	store := setupConvDB(t)
	conv, ctx, _ := store.LoadOrCreate(4, "sess-nr")
	convB, ctxB, _ := store.LoadOrCreate(4, "sess-nr")

	if err := store.SaveContext(conv, ctx); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.SaveContextWithRetry(convB, ctxB); err != ErrVersionConflict {
		t.Errorf("conflict must surface unretried, got %v", err)
	}
}

func TestPushEventID_BoundedMostRecentFirst(t *testing.T) {
	ctx := &Context{}
	for id := uint(1); id <= 7; id++ {
		ctx.PushEventID(id)
	}
	if len(ctx.LastEventIDs) != 5 {
		t.Fatalf("expected 5 tracked ids, got %d", len(ctx.LastEventIDs))
	}
	if ctx.LastEventIDs[0] != 7 || ctx.LastEventIDs[4] != 3 {
		t.Errorf("unexpected order: %v", ctx.LastEventIDs)
	}

	// Re-pushing an existing id moves it to the front without duplicating.
	ctx.PushEventID(5)
	if ctx.LastEventIDs[0] != 5 {
		t.Errorf("expected 5 at front, got %v", ctx.LastEventIDs)
	}
	seen := map[uint]bool{}
	for _, id := range ctx.LastEventIDs {
		if seen[id] {
			t.Errorf("duplicate id in %v", ctx.LastEventIDs)
		}
		seen[id] = true
	}
}

func TestDecodeContext_CorruptBlobDegrades(t *testing.T) {
	ctx := DecodeContext([]byte("{not json"))
	if ctx == nil || ctx.Creating != nil {
		t.Errorf("corrupt blob must decode to empty context, got %+v", ctx)
	}
}

func TestClearCreating_Atomic(t *testing.T) {
	ctx := &Context{Creating: &CreatingEvent{Title: "X", WaitingForConfirmation: true, Snippets: []string{"a"}}}
	ctx.ClearCreating()
	if ctx.Creating != nil {
		t.Errorf("creating state must be fully cleared")
	}
}

func TestDeleteBySession(t *testing.T) {
	store := setupConvDB(t)
	conv, _, _ := store.LoadOrCreate(5, "sess-del")
	store.AppendMessage(conv.ID, RoleUser, "hello")
	if err := store.DeleteBySession(5, "sess-del"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var count int64
	store.db.Model(&Message{}).Where("conversation_id = ?", conv.ID).Count(&count)
	if count != 0 {
		t.Errorf("messages not removed: %d", count)
	}
}
