package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	appended []persistRequest
	fail     bool
}

func (s *fakeStore) Append(_ context.Context, a, b, senderID uuid.UUID, text string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, assert.AnError
	}
	s.appended = append(s.appended, persistRequest{a: a, b: b, sender: senderID, text: text})
	return &Message{ID: int64(len(s.appended)), SenderID: senderID, Text: text}, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}

func newTestClient(userID uuid.UUID, name string) *Client {
	return &Client{
		id:        uuid.New(),
		send:      make(chan []byte, 16),
		userID:    userID,
		firstName: name,
	}
}

func startHub(t *testing.T, store MessageStore) *Hub {
	t.Helper()
	hub := NewHub(nil, store, nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func recv(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case payload := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
		return Event{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("unexpected delivery: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastAndPersist(t *testing.T) {
	store := &fakeStore{}
	hub := startHub(t, store)

	userA, userB := uuid.New(), uuid.New()
	client1 := newTestClient(userA, "Alice")
	client2 := newTestClient(userB, "Bob")

	hub.register <- client1
	hub.register <- client2
	room := RoomID(userA, userB)
	hub.join <- joinRequest{client: client1, roomID: room}
	hub.join <- joinRequest{client: client2, roomID: room}

	hub.inbound <- inboundMessage{client: client1, targetID: userB, text: "hi"}

	for _, c := range []*Client{client1, client2} {
		ev := recv(t, c)
		assert.Equal(t, EventReceiveMessage, ev.Type)
		assert.Equal(t, "Alice", ev.FirstName)
		assert.Equal(t, userA, ev.UserID)
		assert.Equal(t, "hi", ev.Text)
	}

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 10*time.Millisecond)
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, userA, store.appended[0].sender)
	assert.Equal(t, "hi", store.appended[0].text)
}

func TestHubJoinIsIdempotent(t *testing.T) {
	hub := startHub(t, &fakeStore{})

	userA, userB := uuid.New(), uuid.New()
	client1 := newTestClient(userA, "Alice")
	client2 := newTestClient(userB, "Bob")

	hub.register <- client1
	hub.register <- client2
	room := RoomID(userA, userB)
	hub.join <- joinRequest{client: client2, roomID: room}
	hub.join <- joinRequest{client: client2, roomID: room}
	hub.join <- joinRequest{client: client2, roomID: room}

	hub.inbound <- inboundMessage{client: client1, targetID: userB, text: "once"}

	ev := recv(t, client2)
	assert.Equal(t, "once", ev.Text)
	assertSilent(t, client2)
}

func TestHubMessageOrderPerRoom(t *testing.T) {
	hub := startHub(t, &fakeStore{})

	userA, userB := uuid.New(), uuid.New()
	client1 := newTestClient(userA, "Alice")
	client2 := newTestClient(userB, "Bob")

	hub.register <- client1
	hub.register <- client2
	room := RoomID(userA, userB)
	hub.join <- joinRequest{client: client2, roomID: room}

	texts := []string{"one", "two", "three", "four"}
	for _, text := range texts {
		hub.inbound <- inboundMessage{client: client1, targetID: userB, text: text}
	}
	for _, want := range texts {
		assert.Equal(t, want, recv(t, client2).Text)
	}
}

func TestHubDisconnectRemovesMemberships(t *testing.T) {
	hub := startHub(t, &fakeStore{})

	userA, userB := uuid.New(), uuid.New()
	client1 := newTestClient(userA, "Alice")
	client2 := newTestClient(userB, "Bob")

	hub.register <- client1
	hub.register <- client2
	room := RoomID(userA, userB)
	hub.join <- joinRequest{client: client1, roomID: room}
	hub.join <- joinRequest{client: client2, roomID: room}

	hub.unregister <- client2

	hub.inbound <- inboundMessage{client: client1, targetID: userB, text: "anyone there"}
	assert.Equal(t, "anyone there", recv(t, client1).Text)

	// client2's send channel was closed by the hub
	select {
	case _, open := <-client2.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("expected client2 channel to be closed")
	}
}

func TestHubPersistFailureDoesNotBlockDelivery(t *testing.T) {
	store := &fakeStore{fail: true}
	hub := startHub(t, store)

	userA, userB := uuid.New(), uuid.New()
	client1 := newTestClient(userA, "Alice")
	client2 := newTestClient(userB, "Bob")

	hub.register <- client1
	hub.register <- client2
	room := RoomID(userA, userB)
	hub.join <- joinRequest{client: client2, roomID: room}

	hub.inbound <- inboundMessage{client: client1, targetID: userB, text: "still delivered"}
	assert.Equal(t, "still delivered", recv(t, client2).Text)
}

func TestHubWithoutEcho(t *testing.T) {
	hub := NewHub(nil, &fakeStore{}, nil, zerolog.Nop(), WithoutEcho())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	userA, userB := uuid.New(), uuid.New()
	client1 := newTestClient(userA, "Alice")
	client2 := newTestClient(userB, "Bob")

	hub.register <- client1
	hub.register <- client2
	room := RoomID(userA, userB)
	hub.join <- joinRequest{client: client1, roomID: room}
	hub.join <- joinRequest{client: client2, roomID: room}

	hub.inbound <- inboundMessage{client: client1, targetID: userB, text: "no echo"}

	assert.Equal(t, "no echo", recv(t, client2).Text)
	assertSilent(t, client1)
}
