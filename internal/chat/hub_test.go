package chat

import (
	"testing"
	"time"
)

func TestHubFansOutToAllConnectionsOfOneUser(t *testing.T) {
	hub := NewHub(nil)

	first := listen(t, hub, "user-1")
	second := listen(t, hub, "user-1")
	other := listen(t, hub, "user-2")

	hub.SendToUser("user-1", []byte(`{"type":"ping"}`))

	for i, c := range []*Client{first, second} {
		select {
		case got := <-c.send:
			if string(got) != `{"type":"ping"}` {
				t.Errorf("connection %d got %s", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("connection %d missed the payload", i)
		}
	}

	select {
	case got := <-other.send:
		t.Fatalf("user-2 received user-1's payload: %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(nil)

	c := listen(t, hub, "user-1")
	hub.UnregisterClient(c)

	// the hub signals detachment by closing done, never send
	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("done not closed after unregister")
	}

	// delivery to a user with no connections is dropped, not queued
	hub.SendToUser("user-1", []byte("late"))

	select {
	case got := <-c.send:
		t.Fatalf("unregistered client received %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDetachesSlowConsumerWithoutClosingSend(t *testing.T) {
	hub := NewHub(nil)

	slow := &Client{hub: hub, send: make(chan []byte, 1), done: make(chan struct{}), userID: "user-1"}
	hub.RegisterClient(slow)
	healthy := listen(t, hub, "user-1")

	slow.send <- []byte("backlog") // fill the buffer so the next delivery overflows

	hub.SendToUser("user-1", []byte("overflow"))

	select {
	case <-slow.done:
	case <-time.After(time.Second):
		t.Fatal("slow consumer not detached")
	}

	// the read pump may still be replying after the hub dropped the
	// connection; send must stay open so this cannot panic
	<-slow.send
	slow.reply(map[string]interface{}{"type": "message_ack"})
	select {
	case got := <-slow.send:
		if string(got) != `{"type":"message_ack"}` {
			t.Errorf("reply after detach got %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("reply after detach not buffered")
	}

	// the healthy connection of the same user keeps receiving
	select {
	case got := <-healthy.send:
		if string(got) != "overflow" {
			t.Errorf("healthy connection got %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("healthy connection missed the payload")
	}

	// detached clients get nothing further
	hub.SendToUser("user-1", []byte("later"))
	select {
	case got := <-healthy.send:
		if string(got) != "later" {
			t.Errorf("healthy connection got %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("healthy connection missed the follow-up payload")
	}
	select {
	case got := <-slow.send:
		t.Fatalf("detached client received %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDropsUnknownUserPayloads(t *testing.T) {
	hub := NewHub(nil)
	c := listen(t, hub, "user-1")

	hub.SendToUser("nobody", []byte("lost"))
	hub.SendToUser("user-1", []byte("kept"))

	select {
	case got := <-c.send:
		if string(got) != "kept" {
			t.Errorf("got %s, want kept", got)
		}
	case <-time.After(time.Second):
		t.Fatal("payload not delivered")
	}
}
