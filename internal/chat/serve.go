package chat

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"counseling-app-server/internal/config"
	"counseling-app-server/internal/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the HTTP connection to a WebSocket, authenticates the
// user via JWT (Authorization header, or ?token= for browser clients),
// registers the connection with the hub, and starts the pumps.
func ServeWS(h *Hub, g *Gateway, cfg *config.Config, c *gin.Context) {
	token := ""
	if auth := c.GetHeader("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}
		token = parts[1]
	} else {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}

	claims, err := utils.ValidateToken(token, cfg.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("chat: upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:     h,
		gateway: g,
		conn:    conn,
		send:    make(chan []byte, 256),
		done:    make(chan struct{}),
		userID:  claims.UserID,
	}

	h.RegisterClient(client)
	go client.Serve()
}
