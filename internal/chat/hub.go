package chat

import (
	"context"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

const userChannelPrefix = "chatuser:"

// Hub is the channel-membership registry: userID -> set of live
// connections. All mutation happens on the run goroutine via the
// register/unregister/broadcast channels, so no lock is needed. A user
// with several open connections receives every payload on each of them.
//
// When a Redis client is supplied the hub also relays payloads through
// pub/sub so that every instance sharing the store fans out to its own
// local connections. Without Redis delivery stays in-process.
type Hub struct {
	rdb *redis.Client

	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *delivery
}

type delivery struct {
	UserID  string
	Payload []byte
}

func NewHub(rdb *redis.Client) *Hub {
	h := &Hub{
		rdb:        rdb,
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *delivery, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	if h.rdb != nil {
		pubsub := h.rdb.PSubscribe(context.Background(), userChannelPrefix+"*")
		ch := pubsub.Channel()
		go func() {
			for msg := range ch {
				userID := strings.TrimPrefix(msg.Channel, userChannelPrefix)
				h.broadcast <- &delivery{UserID: userID, Payload: []byte(msg.Payload)}
			}
		}()
	}

	for {
		select {
		case c := <-h.register:
			if _, ok := h.clients[c.userID]; !ok {
				h.clients[c.userID] = make(map[*Client]bool)
			}
			h.clients[c.userID][c] = true
			log.Printf("chat: client registered: %s", c.userID)
		case c := <-h.unregister:
			if conns, ok := h.clients[c.userID]; ok {
				if _, exists := conns[c]; exists {
					delete(conns, c)
					close(c.done)
				}
				if len(conns) == 0 {
					delete(h.clients, c.userID)
				}
			}
		case d := <-h.broadcast:
			conns, ok := h.clients[d.UserID]
			if !ok {
				continue
			}
			for c := range conns {
				select {
				case c.send <- d.Payload:
				default:
					// slow consumer, detach the connection; it recovers by
					// pull. Only done is closed: the client's pumps may still
					// be sending on send, so that channel stays open.
					delete(conns, c)
					close(c.done)
				}
			}
			if len(conns) == 0 {
				delete(h.clients, d.UserID)
			}
		}
	}
}

// RegisterClient associates a connection with its user's channel.
// Idempotent per connection; repeated registration of the same client is a
// map re-insert.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// SendToUser delivers a payload to every live connection of one user.
// Push is at-most-once: a user with no connections simply misses it and
// catches up through the conversation list on reconnect.
func (h *Hub) SendToUser(userID string, payload []byte) {
	if h.rdb != nil {
		if err := h.rdb.Publish(context.Background(), userChannelPrefix+userID, payload).Err(); err == nil {
			return
		}
		// fall through to local delivery if Redis is unreachable
	}
	h.broadcast <- &delivery{UserID: userID, Payload: payload}
}
