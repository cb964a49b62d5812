package chat

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"counseling-app-server/internal/appointment"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second

	maxMessageSize = 4096
)

// Client is one websocket connection of one user. A user may hold several
// clients at once; the hub keys them by identity, not connection.
//
// send is written by both the hub and the client's own read pump and is
// never closed; the hub signals shutdown by closing done instead, so a
// reply racing a slow-consumer drop cannot hit a closed channel.
type Client struct {
	hub     *Hub
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	userID  string
}

// inbound is the client-to-server envelope.
type inbound struct {
	Type          string `json:"type"`
	AppointmentID string `json:"appointmentId"`
	To            string `json:"to"`
	Content       string `json:"content"`
	TempID        string `json:"tempId"`
}

// readPump handles each inbound frame to completion before reading the
// next, so per-sender ordering holds on one connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { _ = c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("chat: read error: %v", err)
			}
			break
		}
		var env inbound
		if err := json.Unmarshal(raw, &env); err != nil {
			c.reply(map[string]interface{}{"type": "error", "error": "invalid_json"})
			continue
		}
		switch env.Type {
		case "message":
			c.handleSend(env)
		case "mark_read":
			if env.AppointmentID == "" {
				c.reply(map[string]interface{}{"type": "error", "error": "missing_fields", "tempId": env.TempID})
				continue
			}
			if _, err := c.gateway.MarkRead(c.userID, env.AppointmentID); err != nil {
				c.replyError(env, err)
			}
		default:
			c.reply(map[string]interface{}{"type": "error", "error": "unsupported_type"})
		}
	}
}

func (c *Client) handleSend(env inbound) {
	if env.AppointmentID == "" || env.To == "" || env.Content == "" {
		c.reply(map[string]interface{}{"type": "error", "error": "missing_fields", "tempId": env.TempID})
		return
	}
	msg, err := c.gateway.Send(env.AppointmentID, c.userID, env.To, env.Content)
	if err != nil {
		c.replyError(env, err)
		return
	}
	// ack only; the sender renders its own optimistic copy
	c.reply(map[string]interface{}{
		"type":          "message_ack",
		"tempId":        env.TempID,
		"messageId":     msg.ID,
		"appointmentId": msg.AppointmentID,
		"time":          msg.CreatedAt,
	})
}

// replyError translates domain errors into envelopes the client can act
// on. A closed gate is a soft condition carrying the countdown, not a
// failure.
func (c *Client) replyError(env inbound, err error) {
	var gateErr *appointment.GateClosedError
	var notFound *appointment.NotFoundError
	var invalid *appointment.ValidationError
	switch {
	case errors.As(err, &gateErr):
		payload := map[string]interface{}{
			"type":          "error",
			"error":         "gate_closed",
			"tempId":        env.TempID,
			"appointmentId": gateErr.AppointmentID,
		}
		if gateErr.OpensAt.IsZero() {
			// conversation ended; no countdown to render
			payload["closed"] = true
		} else {
			payload["opensInSeconds"] = appointment.SecondsUntilOpen(gateErr.OpensAt, time.Now())
		}
		c.reply(payload)
	case errors.As(err, &notFound):
		c.reply(map[string]interface{}{"type": "error", "error": "not_found", "tempId": env.TempID})
	case errors.As(err, &invalid):
		c.reply(map[string]interface{}{"type": "error", "error": "invalid_request", "tempId": env.TempID})
	default:
		log.Printf("chat: send failed for %s: %v", c.userID, err)
		c.reply(map[string]interface{}{"type": "error", "error": "send_failed", "tempId": env.TempID})
	}
}

func (c *Client) reply(payload map[string]interface{}) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker((pongWait * 9) / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			// hub detached this connection (unregister or slow consumer)
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Serve starts the pumps and blocks until the connection drops.
func (c *Client) Serve() {
	go c.writePump()
	c.readPump()
}
