package websockets

import (
	"errors"
	"testing"
	"time"

	"avroviewer/internal/events"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens struct {
	enabled bool
}

func (s stubTokens) Enabled() bool { return s.enabled }

func (s stubTokens) Validate(token string) (string, error) {
	if token == "good" {
		return "viewer", nil
	}
	return "", errors.New("invalid token")
}

func newTestManager(t *testing.T) (*Manager, *events.EventBus) {
	t.Helper()

	bus := events.New(nil)
	manager, err := New(bus, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		manager.Close()
		_ = bus.Close()
	})

	return manager, bus
}

func registerFake(t *testing.T, m *Manager, authenticated bool) *Client {
	t.Helper()

	client := newClient(m, nil)
	if authenticated {
		client.status.set(STATUS_AUTHENTICATED)
	}
	m.hub.register <- client

	require.Eventually(t, func() bool {
		m.hub.mutex.RLock()
		defer m.hub.mutex.RUnlock()
		_, ok := m.hub.clients[client.ID]
		return ok
	}, time.Second, 5*time.Millisecond)

	return client
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()

	select {
	case message := <-client.send:
		return message
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestManager_ForwardsDecodeProgress(t *testing.T) {
	manager, bus := newTestManager(t)
	client := registerFake(t, manager, true)

	require.NoError(t, bus.Publish(events.DECODE_CHANNEL, events.Event{
		Type: events.DECODE_PROGRESS,
		Data: map[string]any{"index": 2, "filename": "a.avro", "count": 300},
	}))

	message := receive(t, client)
	assert.Equal(t, MESSAGE_TYPE_DECODE_PROGRESS, message.Type)
	assert.Equal(t, DECODE_CHANNEL, message.Channel)
	assert.Equal(t, 300, message.Data["count"])
}

func TestManager_ForwardsCompletionAndBatch(t *testing.T) {
	manager, bus := newTestManager(t)
	client := registerFake(t, manager, true)

	require.NoError(t, bus.Publish(events.DECODE_CHANNEL, events.Event{Type: events.DECODE_COMPLETE}))
	assert.Equal(t, MESSAGE_TYPE_DECODE_COMPLETE, receive(t, client).Type)

	require.NoError(t, bus.Publish(events.BATCH_CHANNEL, events.Event{Type: events.BATCH_COMPLETE}))
	assert.Equal(t, MESSAGE_TYPE_BATCH_COMPLETE, receive(t, client).Type)
}

func TestManager_SkipsUnauthenticatedClients(t *testing.T) {
	manager, _ := newTestManager(t)
	pending := registerFake(t, manager, false)
	ready := registerFake(t, manager, true)

	manager.BroadcastMessage(newMessage(MESSAGE_TYPE_BROADCAST, SYSTEM_CHANNEL, "", nil))

	assert.Equal(t, MESSAGE_TYPE_BROADCAST, receive(t, ready).Type)
	assert.Empty(t, pending.send)
}

func TestManager_UnregisterClosesSend(t *testing.T) {
	manager, _ := newTestManager(t)
	client := registerFake(t, manager, true)

	manager.release(client)

	require.Eventually(t, func() bool {
		return manager.hub.clientCount() == 0
	}, time.Second, 5*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open)

	// a second release is a no-op
	manager.release(client)
}

func TestClient_RouteMessage(t *testing.T) {
	bus := events.New(nil)
	defer bus.Close()

	manager, err := New(bus, stubTokens{enabled: true})
	require.NoError(t, err)
	defer manager.Close()

	require.True(t, manager.authRequired())

	client := newClient(manager, nil)

	client.routeMessage(Message{Type: MESSAGE_TYPE_PING})
	blocked := receive(t, client)
	assert.Equal(t, MESSAGE_TYPE_AUTH_FAILURE, blocked.Type)
	assert.Equal(t, "authentication_required", blocked.Action)

	client.routeMessage(Message{Type: MESSAGE_TYPE_AUTH_RESPONSE, Data: map[string]any{"token": "good"}})
	success := receive(t, client)
	assert.Equal(t, MESSAGE_TYPE_AUTH_SUCCESS, success.Type)
	assert.True(t, client.Authenticated())
	assert.Equal(t, "viewer", client.Subject)

	client.routeMessage(Message{Type: MESSAGE_TYPE_PING})
	assert.Equal(t, MESSAGE_TYPE_PONG, receive(t, client).Type)
}

func fillQueue(client *Client) {
	for i := 0; i < cap(client.send); i++ {
		client.send <- newMessage(MESSAGE_TYPE_DECODE_PROGRESS, DECODE_CHANNEL, "", map[string]any{"count": i * 100})
	}
}

func TestManager_FullClientDropsProgressOnly(t *testing.T) {
	manager, _ := newTestManager(t)
	client := registerFake(t, manager, true)
	fillQueue(client)

	manager.BroadcastMessage(newMessage(MESSAGE_TYPE_DECODE_PROGRESS, DECODE_CHANNEL, "", nil))

	// progress alone never costs a client its connection
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, manager.hub.clientCount())
	assert.Len(t, client.send, SEND_CHANNEL_SIZE)
}

func TestManager_FullClientIsDisconnectedOnCompletion(t *testing.T) {
	manager, _ := newTestManager(t)
	slow := registerFake(t, manager, true)
	ready := registerFake(t, manager, true)
	fillQueue(slow)

	manager.BroadcastMessage(newMessage(MESSAGE_TYPE_DECODE_COMPLETE, DECODE_CHANNEL, "", map[string]any{"count": 6400}))

	assert.Equal(t, MESSAGE_TYPE_DECODE_COMPLETE, receive(t, ready).Type)

	require.Eventually(t, func() bool {
		return manager.hub.clientCount() == 1
	}, time.Second, 5*time.Millisecond)

	drained := 0
	for range slow.send {
		drained++
	}
	assert.Equal(t, SEND_CHANNEL_SIZE, drained)
}

func TestManager_BroadcastWaitsForRoomOnCompletion(t *testing.T) {
	manager := &Manager{
		hub: &Hub{
			broadcast: make(chan Message, 1),
			done:      make(chan struct{}),
		},
		log: logger.New("websockets_test"),
	}

	manager.BroadcastMessage(newMessage(MESSAGE_TYPE_DECODE_PROGRESS, DECODE_CHANNEL, "", nil))
	manager.BroadcastMessage(newMessage(MESSAGE_TYPE_DECODE_PROGRESS, DECODE_CHANNEL, "", nil))
	assert.Len(t, manager.hub.broadcast, 1)

	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		manager.BroadcastMessage(newMessage(MESSAGE_TYPE_BATCH_COMPLETE, DECODE_CHANNEL, "", nil))
	}()

	select {
	case <-delivered:
		t.Fatal("completion should wait for room in the hub queue")
	case <-time.After(20 * time.Millisecond):
	}

	assert.Equal(t, MESSAGE_TYPE_DECODE_PROGRESS, (<-manager.hub.broadcast).Type)
	<-delivered
	assert.Equal(t, MESSAGE_TYPE_BATCH_COMPLETE, (<-manager.hub.broadcast).Type)
}

func TestManager_CompletionAfterStopDoesNotBlock(t *testing.T) {
	manager := &Manager{
		hub: &Hub{
			broadcast: make(chan Message),
			done:      make(chan struct{}),
		},
		log: logger.New("websockets_test"),
	}
	manager.hub.stop()

	manager.BroadcastMessage(newMessage(MESSAGE_TYPE_DECODE_COMPLETE, DECODE_CHANNEL, "", nil))
}
