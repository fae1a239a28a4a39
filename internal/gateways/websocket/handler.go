package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (h *Hub) ServeWS(c *gin.Context) {
	sessionKey := c.Query("session_key")
	if sessionKey == "" {
		h.logger.Warnw("WebSocket connection rejected: session_key missing",
			"client_ip", c.ClientIP(),
			"user_agent", c.GetHeader("User-Agent"),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_key is required"})
		return
	}

	user, err := h.sessionSvc.GetUserBySessionKey(c.Request.Context(), sessionKey)
	if err != nil {
		h.logger.Warnw("WebSocket connection rejected: session not valid",
			"client_ip", c.ClientIP(),
			"error", err,
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorw("Failed to upgrade connection",
			"client_ip", c.ClientIP(),
			"error", err,
		)
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		ID:       generateClientID(),
		UserID:   user.ID,
		Username: user.Username,
		send:     make(chan []byte, sendBuffer),
	}

	h.logger.Infow("WebSocket connection established",
		"client_id", client.ID,
		"user_id", client.UserID,
		"username", client.Username,
		"client_ip", c.ClientIP(),
	)

	go client.writePump()
	client.readPump(c)
}

// readPump consumes frames until the connection drops. Any read error,
// clean close included, resolves to an unconditional leave so the roster
// never holds a dead connection.
func (c *Client) readPump(g *gin.Context) {
	defer func() {
		c.hub.leave(c)
		close(c.send)
		c.closeConn()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.hub.logger.Warnw("Malformed frame dropped",
				"client_id", c.ID,
				"error", err,
			)
			continue
		}
		c.handleEvent(g.Request.Context(), env)
	}
}

func (c *Client) writePump() {
	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.hub.logger.Debugw("Write failed, closing connection",
				"client_id", c.ID,
				"error", err,
			)
			c.closeConn()
			// Keep draining so the read loop's close of the channel is
			// never blocked behind a dead peer.
		}
	}
}

func (c *Client) closeConn() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}
