package websockets

import (
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
)

const AUTH_HANDSHAKE_TIMEOUT = 10 * time.Second

type statusFlag struct {
	value atomic.Int32
}

func (s *statusFlag) set(status int32) {
	s.value.Store(status)
}

func (s *statusFlag) get() int32 {
	return s.value.Load()
}

func (c *Client) Authenticated() bool {
	return c.status.get() == STATUS_AUTHENTICATED
}

func (c *Client) readPump() {
	log := c.Manager.log.Function("readPump")
	defer func() {
		c.Manager.release(c)
		_ = c.Connection.Close()
	}()

	c.Connection.SetReadLimit(MAX_MESSAGE_SIZE)
	if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
		log.Er("failed to set read deadline", err, "clientID", c.ID)
	}
	c.Connection.SetPongHandler(func(string) error {
		if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
			log.Er("failed to set read deadline in pong handler", err, "clientID", c.ID)
		}
		return nil
	})

	for {
		var message Message
		if err := c.Connection.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				log.Er("Unexpected close error", err, "clientID", c.ID)
			}
			return
		}

		c.routeMessage(message)
	}
}

func (c *Client) routeMessage(message Message) {
	log := c.Manager.log.Function("routeMessage")

	if message.Type == MESSAGE_TYPE_AUTH_RESPONSE {
		c.handleAuthResponse(message)
		return
	}

	if !c.Authenticated() {
		log.Warn("Blocking message from unauthenticated client", "clientID", c.ID, "messageType", message.Type)
		c.trySend(newMessage(
			MESSAGE_TYPE_AUTH_FAILURE,
			SYSTEM_CHANNEL,
			"authentication_required",
			map[string]any{"reason": "Authentication required"},
		))
		return
	}

	switch message.Type {
	case MESSAGE_TYPE_PING:
		c.trySend(newMessage(MESSAGE_TYPE_PONG, SYSTEM_CHANNEL, "", nil))
	default:
		log.Debug("Ignoring client message", "clientID", c.ID, "type", message.Type)
	}
}

func (c *Client) handleAuthResponse(message Message) {
	log := c.Manager.log.Function("handleAuthResponse")

	if c.Authenticated() {
		log.Warn("Auth response from already authenticated client", "clientID", c.ID)
		return
	}

	token, ok := message.Data["token"].(string)
	if !ok || token == "" {
		c.sendAuthFailure("Invalid token format")
		return
	}

	subject, err := c.Manager.tokens.Validate(token)
	if err != nil {
		log.Info("WebSocket token validation failed", "clientID", c.ID, "error", err.Error())
		c.sendAuthFailure("Authentication failed")
		return
	}

	c.Subject = subject
	c.status.set(STATUS_AUTHENTICATED)

	log.Info("WebSocket client authenticated", "clientID", c.ID, "subject", subject)

	c.trySend(newMessage(
		MESSAGE_TYPE_AUTH_SUCCESS,
		SYSTEM_CHANNEL,
		"authenticated",
		map[string]any{"subject": subject},
	))
}

func (c *Client) sendAuthFailure(reason string) {
	log := c.Manager.log.Function("sendAuthFailure")

	c.trySend(newMessage(
		MESSAGE_TYPE_AUTH_FAILURE,
		SYSTEM_CHANNEL,
		"authentication_failed",
		map[string]any{"reason": reason},
	))

	log.Info("Auth failure sent, closing connection", "clientID", c.ID, "reason", reason)

	time.AfterFunc(100*time.Millisecond, func() {
		_ = c.Connection.Close()
	})
}

func (c *Client) startAuthTimeout() {
	log := c.Manager.log.Function("startAuthTimeout")

	time.AfterFunc(AUTH_HANDSHAKE_TIMEOUT, func() {
		if c.Authenticated() {
			return
		}

		log.Warn("Client failed to authenticate within timeout, disconnecting", "clientID", c.ID)
		c.sendAuthFailure("Authentication timeout")
	})
}

// trySend never blocks the reader. The hub may already have closed send.
func (c *Client) trySend(message Message) {
	defer func() {
		_ = recover()
	}()

	select {
	case c.send <- message:
	default:
		c.Manager.log.Function("trySend").Warn("Client send channel full, dropping message", "clientID", c.ID)
	}
}

func (c *Client) writePump() {
	log := c.Manager.log.Function("writePump")

	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		_ = c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline", err, "clientID", c.ID)
			}
			if !ok {
				_ = c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Connection.WriteJSON(message); err != nil {
				log.Er("WebSocket write error", err, "clientID", c.ID)
				return
			}

		case <-ticker.C:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline for ping", err, "clientID", c.ID)
			}
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
