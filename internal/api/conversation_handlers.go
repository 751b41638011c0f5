package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"eventchat/internal/conversation"
	"eventchat/internal/db"
)

// GET /conversations
func ListConversationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		convs, err := conversation.NewStore(db.DB).ListForUser(userId.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
			return
		}
		out := make([]gin.H, 0, len(convs))
		for _, conv := range convs {
			out = append(out, gin.H{
				"sessionId":  conv.SessionID,
				"lastIntent": conv.LastIntent,
				"updatedAt":  conv.UpdatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"conversations": out})
	}
}

// GET /conversations/:session/messages
func ListConversationMessagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		session := c.Param("session")

		store := conversation.NewStore(db.DB)
		var conv conversation.Conversation
		if err := db.DB.Where("session_id = ? AND user_id = ?", session, userId.(uint)).First(&conv).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		msgs, err := store.Messages(conv.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessionId": session, "messages": msgs})
	}
}

// DELETE /conversations/:session
func DeleteConversationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		session := c.Param("session")
		if err := conversation.NewStore(db.DB).DeleteBySession(userId.(uint), session); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete conversation"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted"})
	}
}
