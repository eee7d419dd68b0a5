package websocket

import (
	"errors"
	"net/http"
	"strings"

	"codegalaxy/db"
	"codegalaxy/internal/logger"
	"codegalaxy/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades authenticated requests onto the activity feed. The token
// comes from the Authorization header or the token query parameter.
func Handler(store db.Store, hub *Hub, log *zap.Logger) gin.HandlerFunc {
	log = logger.OrNop(log)

	return func(c *gin.Context) {
		var token string
		if parts := strings.Split(c.GetHeader("Authorization"), " "); len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
		if token == "" {
			token = c.Query("token")
		}

		session, err := middlewares.SessionFromToken(c.Request.Context(), store, token)
		switch {
		case errors.Is(err, middlewares.ErrMissingToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			return
		case errors.Is(err, middlewares.ErrSessionSuspended):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account suspended"})
			return
		case err != nil:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := NewActivityClient(conn, session.UserID.Hex())
		client.enqueue(map[string]interface{}{
			"type":    "connected",
			"message": "Connected to activity feed",
			"userId":  client.UserID,
		})
		hub.Register(client)
		defer hub.Unregister(client)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("activity websocket closed", zap.Error(err))
				}
				return
			}
		}
	}
}
