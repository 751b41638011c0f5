package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eventchat/internal/db"
	"eventchat/internal/dialog"
	"eventchat/internal/user"
)

// TurnProcessor is the dialog surface the chat endpoints need. *dialog.Engine
// satisfies it; tests substitute a stub.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, u *user.User, sessionID, message string) (*dialog.TurnResult, error)
}

type ChatRequest struct {
	SessionID string   `json:"sessionId"`
	Message   string   `json:"message"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}

// POST /chat runs one dialog turn. A missing session id starts a new
// conversation; the generated id comes back in the response and must be
// echoed on subsequent turns.
func ChatHandler(engine TurnProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		var req ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		req.Message = strings.TrimSpace(req.Message)
		if req.Message == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message required"})
			return
		}
		if req.SessionID == "" {
			req.SessionID = uuid.NewString()
		}

		var u user.User
		if err := db.DB.First(&u, userId.(uint)).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found"})
			return
		}

		// Coordinates sent with the message update the user's location before
		// the turn runs, so "near me" resolves against where they are now.
		if req.Lat != nil && req.Lon != nil {
			updates := map[string]interface{}{"last_lat": *req.Lat, "last_lng": *req.Lon, "last_city": ""}
			if err := db.DB.Model(&user.User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
				log.Printf("[Chat] failed to update user location: %v", err)
			} else {
				u.LastLat, u.LastLng, u.LastCity = req.Lat, req.Lon, ""
			}
		}

		result, err := engine.ProcessTurn(c.Request.Context(), &u, req.SessionID, req.Message)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"reply":         result.Reply,
			"sessionId":     result.SessionID,
			"suggestions":   result.Suggestions,
			"refreshEvents": result.RefreshEvents,
			"events":        result.Events,
			"eventData":     result.Data,
		})
	}
}
