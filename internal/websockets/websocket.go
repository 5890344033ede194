package websockets

import (
	"time"

	"avroviewer/internal/events"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	MESSAGE_TYPE_PING            = "ping"
	MESSAGE_TYPE_PONG            = "pong"
	MESSAGE_TYPE_BROADCAST       = "broadcast"
	MESSAGE_TYPE_ERROR           = "error"
	MESSAGE_TYPE_AUTH_REQUEST    = "auth_request"
	MESSAGE_TYPE_AUTH_RESPONSE   = "auth_response"
	MESSAGE_TYPE_AUTH_SUCCESS    = "auth_success"
	MESSAGE_TYPE_AUTH_FAILURE    = "auth_failure"
	MESSAGE_TYPE_DECODE_PROGRESS = "decode_progress"
	MESSAGE_TYPE_DECODE_COMPLETE = "decode_complete"
	MESSAGE_TYPE_BATCH_COMPLETE  = "batch_complete"
	PING_INTERVAL                = 30 * time.Second
	PONG_TIMEOUT                 = 60 * time.Second
	WRITE_TIMEOUT                = 10 * time.Second
	MAX_MESSAGE_SIZE             = 64 * 1024
	SEND_CHANNEL_SIZE            = 64
	SYSTEM_CHANNEL               = "system"
	DECODE_CHANNEL               = "decode"
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	Action    string         `json:"action,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// TokenValidator checks a bearer token and returns its subject.
type TokenValidator interface {
	Enabled() bool
	Validate(token string) (string, error)
}

type Client struct {
	ID         string
	Subject    string
	Connection *websocket.Conn
	Manager    *Manager
	status     statusFlag
	send       chan Message
}

type Manager struct {
	hub      *Hub
	log      logger.Logger
	eventBus *events.EventBus
	tokens   TokenValidator
}

func New(eventBus *events.EventBus, tokens TokenValidator) (*Manager, error) {
	log := logger.New("websockets")

	manager := &Manager{
		hub: &Hub{
			broadcast:  make(chan Message, SEND_CHANNEL_SIZE),
			register:   make(chan *Client),
			unregister: make(chan *Client),
			clients:    make(map[string]*Client),
			done:       make(chan struct{}),
		},
		log:      log,
		eventBus: eventBus,
		tokens:   tokens,
	}

	log.Function("New").Info("Starting websocket hub", "auth", manager.authRequired())
	go manager.hub.run(manager)

	if err := manager.subscribeToDecodeEvents(); err != nil {
		manager.Close()
		return nil, err
	}

	return manager, nil
}

func (m *Manager) Close() {
	m.hub.stop()
}

func (m *Manager) release(client *Client) {
	select {
	case m.hub.unregister <- client:
	case <-m.hub.done:
	}
}

func (m *Manager) authRequired() bool {
	return m.tokens != nil && m.tokens.Enabled()
}

func newClient(m *Manager, conn *websocket.Conn) *Client {
	return &Client{
		ID:         uuid.New().String(),
		Connection: conn,
		Manager:    m,
		send:       make(chan Message, SEND_CHANNEL_SIZE),
	}
}

func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")

	client := newClient(m, c)

	var greeting Message
	if m.authRequired() {
		client.status.set(STATUS_UNAUTHENTICATED)
		greeting = newMessage(MESSAGE_TYPE_AUTH_REQUEST, SYSTEM_CHANNEL, "authenticate", nil)
	} else {
		client.status.set(STATUS_AUTHENTICATED)
		greeting = newMessage(MESSAGE_TYPE_AUTH_SUCCESS, SYSTEM_CHANNEL, "authenticated", nil)
	}

	if err := c.WriteJSON(greeting); err != nil {
		log.Er("failed to send greeting", err, "clientID", client.ID)
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err)
		}
		return
	}

	m.hub.register <- client
	defer func() {
		log.Debug("Client disconnected", "clientID", client.ID)
		m.release(client)
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err)
		}
	}()

	if m.authRequired() {
		client.startAuthTimeout()
	}

	go client.readPump()
	client.writePump()
}

// BroadcastMessage queues a message for every authenticated client. Progress
// is dropped when the hub queue is full; completion messages wait for room.
func (m *Manager) BroadcastMessage(message Message) {
	log := m.log.Function("BroadcastMessage")

	if isTerminal(message) {
		select {
		case m.hub.broadcast <- message:
		case <-m.hub.done:
			log.Warn("Hub stopped, dropping message", "messageID", message.ID, "type", message.Type)
		}
		return
	}

	select {
	case m.hub.broadcast <- message:
	default:
		log.Warn("Broadcast channel is full, dropping message", "messageID", message.ID, "type", message.Type)
	}
}

func isTerminal(message Message) bool {
	return message.Type == MESSAGE_TYPE_DECODE_COMPLETE || message.Type == MESSAGE_TYPE_BATCH_COMPLETE
}

func (m *Manager) subscribeToDecodeEvents() error {
	log := m.log.Function("subscribeToDecodeEvents")

	forward := func(messageType string) events.EventHandler {
		return func(event events.Event) error {
			m.BroadcastMessage(Message{
				ID:        event.ID,
				Type:      messageType,
				Channel:   DECODE_CHANNEL,
				Action:    string(event.Type),
				Data:      event.Data,
				Timestamp: event.Timestamp,
			})
			return nil
		}
	}

	if err := m.eventBus.Subscribe(events.DECODE_CHANNEL, func(event events.Event) error {
		switch event.Type {
		case events.DECODE_COMPLETE:
			return forward(MESSAGE_TYPE_DECODE_COMPLETE)(event)
		default:
			return forward(MESSAGE_TYPE_DECODE_PROGRESS)(event)
		}
	}); err != nil {
		return log.Err("failed to subscribe to decode events", err)
	}

	if err := m.eventBus.Subscribe(events.BATCH_CHANNEL, forward(MESSAGE_TYPE_BATCH_COMPLETE)); err != nil {
		return log.Err("failed to subscribe to batch events", err)
	}

	return nil
}

func newMessage(messageType, channel, action string, data map[string]any) Message {
	return Message{
		ID:        uuid.New().String(),
		Type:      messageType,
		Channel:   channel,
		Action:    action,
		Data:      data,
		Timestamp: time.Now(),
	}
}
