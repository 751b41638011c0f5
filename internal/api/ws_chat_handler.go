package api

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"eventchat/internal/auth"
	"eventchat/internal/config"
	"eventchat/internal/db"
	"eventchat/internal/user"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket connection wrapper with mutex for thread-safe writes
type safeWSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWSConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *safeWSConn) ReadJSON(v interface{}) error {
	return s.conn.ReadJSON(v)
}

func (s *safeWSConn) Close() error {
	return s.conn.Close()
}

type WSChatMessage struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// GET /ws/chat holds a socket open for a whole chat session. Each inbound
// message runs one dialog turn; the turn result is written back as JSON.
// Turns on the same session are serialized by the engine, so a fast client
// can't interleave its own messages.
func WSChatHandler(cfg *config.Config, rdb *redis.Client, engine TurnProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing JWT"})
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")
		claims, err := auth.ParseJWT(cfg.Server.JWTSecret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid JWT"})
			return
		}
		if stored, err := auth.GetSession(rdb, claims.UserID); err != nil || stored != token {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		var u user.User
		if err := db.DB.First(&u, claims.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		rawConn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("WebSocket upgrade failed:", err)
			return
		}
		conn := &safeWSConn{conn: rawConn}
		defer conn.Close()

		sessionID := uuid.NewString()
		for {
			var req WSChatMessage
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.SessionID != "" {
				sessionID = req.SessionID
			}
			if strings.TrimSpace(req.Message) == "" {
				conn.WriteJSON(gin.H{"error": "message required"})
				continue
			}
			result, err := engine.ProcessTurn(c.Request.Context(), &u, sessionID, req.Message)
			if err != nil {
				log.Printf("[WS] turn failed for user %d: %v", u.ID, err)
				conn.WriteJSON(gin.H{"error": "failed to process message"})
				continue
			}
			if err := conn.WriteJSON(result); err != nil {
				return
			}
		}
	}
}
