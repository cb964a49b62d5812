package chat

import (
	"encoding/json"
	"testing"
	"time"

	"counseling-app-server/internal/appointment"
)

func replyPayload(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case raw := <-c.send:
		var payload map[string]interface{}
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("unmarshal reply: %v", err)
		}
		return payload
	case <-time.After(time.Second):
		t.Fatal("no reply buffered")
		return nil
	}
}

func TestReplyErrorDistinguishesEndedConversations(t *testing.T) {
	c := &Client{send: make(chan []byte, 1), done: make(chan struct{}), userID: "user-1"}
	env := inbound{TempID: "t1"}

	// ended conversation: no OpensAt, no countdown
	c.replyError(env, &appointment.GateClosedError{AppointmentID: "a1"})
	payload := replyPayload(t, c)
	if payload["error"] != "gate_closed" {
		t.Fatalf("error = %v, want gate_closed", payload["error"])
	}
	if payload["closed"] != true {
		t.Errorf("closed = %v, want true", payload["closed"])
	}
	if _, ok := payload["opensInSeconds"]; ok {
		t.Errorf("ended conversation must not carry a countdown: %v", payload["opensInSeconds"])
	}

	// not yet open: countdown, no closed flag
	c.replyError(env, &appointment.GateClosedError{
		AppointmentID: "a1",
		OpensAt:       time.Now().Add(10 * time.Minute),
	})
	payload = replyPayload(t, c)
	if secs, ok := payload["opensInSeconds"].(float64); !ok || secs <= 0 {
		t.Errorf("expected positive countdown, got %v", payload["opensInSeconds"])
	}
	if _, ok := payload["closed"]; ok {
		t.Errorf("pending conversation must not carry the closed flag")
	}
}
