package conversation

import (
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrVersionConflict = errors.New("conversation modified concurrently")

const (
	saveRetries   = 2
	retryBaseWait = 250 * time.Millisecond
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// LoadOrCreate fetches the conversation for a session, creating it on the
// first message of the session.
func (s *Store) LoadOrCreate(userID uint, sessionID string) (*Conversation, *Context, error) {
	var conv Conversation
	err := s.db.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		conv = Conversation{
			SessionID: sessionID,
			UserID:    userID,
			Context:   datatypes.JSON([]byte("{}")),
		}
		if err := s.db.Create(&conv).Error; err != nil {
			// A concurrent first turn may have created it already.
			if err2 := s.db.Where("session_id = ? AND user_id = ?", sessionID, userID).
				First(&conv).Error; err2 != nil {
				return nil, nil, err
			}
		}
	} else if err != nil {
		return nil, nil, err
	}
	return &conv, DecodeContext(conv.Context), nil
}

// AppendMessage adds one transcript entry.
func (s *Store) AppendMessage(conversationID uint, role, content string) (*Message, error) {
	msg := Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// Messages returns the full transcript, oldest first.
func (s *Store) Messages(conversationID uint) ([]Message, error) {
	var msgs []Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at asc, id asc").Find(&msgs).Error
	return msgs, err
}

// RecentMessages returns the last n transcript entries, oldest first.
func (s *Store) RecentMessages(conversationID uint, n int) ([]Message, error) {
	var msgs []Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at desc, id desc").Limit(n).Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// SaveContext persists the full next context in one write, guarded by an
// optimistic version check. A lost race returns ErrVersionConflict; the
// caller re-reads rather than overwriting a newer turn's state.
func (s *Store) SaveContext(conv *Conversation, ctx *Context) error {
	raw := EncodeContext(ctx)
	res := s.db.Model(&Conversation{}).
		Where("id = ? AND version = ?", conv.ID, conv.Version).
		Updates(map[string]interface{}{
			"context":     datatypes.JSON(raw),
			"last_intent": string(ctx.LastIntent),
			"version":     conv.Version + 1,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	conv.Version++
	conv.Context = datatypes.JSON(raw)
	conv.LastIntent = string(ctx.LastIntent)
	return nil
}

// SaveContextWithRetry retries transient save failures with exponential
// backoff (2 retries, capped around 1s total). Version conflicts and
// duplicate-key errors are structural and never retried. A failure after
// retries is logged and returned; callers still reply to the user.
func (s *Store) SaveContextWithRetry(conv *Conversation, ctx *Context) error {
	var err error
	wait := retryBaseWait
	for attempt := 0; attempt <= saveRetries; attempt++ {
		err = s.SaveContext(conv, ctx)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		if attempt < saveRetries {
			time.Sleep(wait)
			wait *= 2
		}
	}
	log.Printf("[ConversationStore] save failed after retries (session %s): %v", conv.SessionID, err)
	return err
}

// DeleteBySession removes a conversation and its transcript (explicit user
// action only).
func (s *Store) DeleteBySession(userID uint, sessionID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var conv Conversation
		if err := tx.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&conv).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&conv).Error
	})
}

// ListForUser returns the user's conversations, newest first.
func (s *Store) ListForUser(userID uint) ([]Conversation, error) {
	var convs []Conversation
	err := s.db.Where("user_id = ?", userID).Order("updated_at desc").Find(&convs).Error
	return convs, err
}

func isTransient(err error) bool {
	if errors.Is(err, ErrVersionConflict) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, structural := range []string{"unique", "duplicate", "constraint"} {
		if strings.Contains(msg, structural) {
			return false
		}
	}
	return true
}
