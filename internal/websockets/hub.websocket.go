package websockets

import (
	"sync"
)

const (
	STATUS_UNAUTHENTICATED int32 = iota
	STATUS_AUTHENTICATED
)

type Hub struct {
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	clients    map[string]*Client
	mutex      sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once
}

func (h *Hub) run(m *Manager) {
	for {
		select {
		case client := <-h.register:
			m.registerClient(client)

		case client := <-h.unregister:
			m.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message, m)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

func (h *Hub) clientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (m *Manager) registerClient(client *Client) {
	m.hub.mutex.Lock()
	m.hub.clients[client.ID] = client
	m.hub.mutex.Unlock()

	m.log.Function("registerClient").Debug("Client registered", "clientID", client.ID)
}

// unregisterClient closes send exactly once; the writer pump exits on the
// closed channel.
func (m *Manager) unregisterClient(client *Client) {
	m.hub.mutex.Lock()
	defer m.hub.mutex.Unlock()

	if _, ok := m.hub.clients[client.ID]; !ok {
		return
	}

	delete(m.hub.clients, client.ID)
	close(client.send)

	m.log.Function("unregisterClient").Debug("Client unregistered", "clientID", client.ID)
}

// broadcastMessage never stalls every other client behind one slow reader.
// A full queue drops progress; a client that cannot take a completion message
// is disconnected so it never silently misses one.
func (h *Hub) broadcastMessage(message Message, m *Manager) {
	log := m.log.Function("broadcastMessage")

	terminal := isTerminal(message)

	h.mutex.RLock()
	sent, dropped := 0, 0
	var slow []*Client
	for _, client := range h.clients {
		if !client.Authenticated() {
			continue
		}

		select {
		case client.send <- message:
			sent++
		default:
			if terminal {
				slow = append(slow, client)
			} else {
				dropped++
			}
		}
	}
	h.mutex.RUnlock()

	for _, client := range slow {
		log.Warn("Client too slow for completion message, disconnecting",
			"clientID", client.ID,
			"messageID", message.ID,
			"type", message.Type,
		)
		m.unregisterClient(client)
	}

	if dropped > 0 {
		log.Warn("Dropped message for slow clients", "messageID", message.ID, "type", message.Type, "dropped", dropped)
	}
	log.Debug("Broadcast complete", "messageID", message.ID, "sentTo", sent)
}
