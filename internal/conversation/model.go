package conversation

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is one dialog thread, keyed by an opaque session id.
// Context holds the serialized working memory (see context.go); Version backs
// optimistic concurrency so overlapping turns on the same session cannot both
// finalize state.
type Conversation struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	SessionID  string         `gorm:"uniqueIndex;size:64;not null" json:"sessionId"`
	UserID     uint           `gorm:"not null;index" json:"userId"`
	LastIntent string         `gorm:"size:32" json:"lastIntent"`
	Context    datatypes.JSON `gorm:"type:jsonb" json:"-"`
	Version    int            `gorm:"not null;default:0" json:"-"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	Messages   []Message      `json:"-" gorm:"foreignKey:ConversationID"`
}

// Message is one transcript entry. The transcript is append-only; rows are
// never reordered or edited.
type Message struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ConversationID uint           `gorm:"not null;index" json:"conversationId"`
	Role           string         `gorm:"size:16;not null" json:"role"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time      `json:"createdAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}
