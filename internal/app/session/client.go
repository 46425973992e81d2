/*
Package session binds one authenticated WebSocket connection to its presence
tracker and chat roster.

This file defines the Client struct, the thin transport layer over one
WebSocket connection: read and write pumps, heartbeat pings, the outbound
send queue, and the replaced-session kick.
*/
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"seotracker/internal/pkg/errs"
	"seotracker/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of an inbound event frame.
	maxFrameSize = 16384

	// WsCloseCodeSessionReplaced is a custom WebSocket Close Code (4000-4999
	// range) signalling that a newer connection took over the session.
	WsCloseCodeSessionReplaced = 4001
)

// Client is the transport half of a Session: one WebSocket connection with
// its pumps and outbound queue. Inbound frames are handed to the session.
type Client struct {
	conn    *websocket.Conn
	session *Session

	// a buffered channel used to queue events waiting to be sent to the browser.
	send chan []byte

	logger zerolog.Logger
}

func newClient(conn *websocket.Conn, session *Session) *Client {
	clientLogger := logx.Logger().With().
		Str("component", "SessionClient").
		Str("user_id", session.user.ID).
		Logger()

	return &Client{
		conn:    conn,
		session: session,
		send:    make(chan []byte, 256),
		logger:  clientLogger,
	}
}

// readPump reads inbound event frames until the connection drops. It handles
// heartbeats (Pong) and hands every frame to the session dispatcher.
func (c *Client) readPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading event (client close/going away)")
			}
			break
		}

		c.session.handleInbound(frame)
	}
}

// cleanupOnDisconnect tears the session down when the read pump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.session.shutdown()

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// writePump drains the send queue to the WebSocket and keeps the heartbeat
// alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in writePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one queued frame to the WebSocket. Returns true if
// the write pump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing event")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping to maintain the heartbeat.
// Returns false if the write pump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// sendEvent marshals an outbound event and queues it for the write pump.
func (c *Client) sendEvent(eventType EventType, payload any) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Error marshaling outbound payload")
		return err
	}

	frame, err := json.Marshal(Envelope{Type: eventType, Payload: payloadBytes})
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Error marshaling outbound envelope")
		return err
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping event")
		return fmt.Errorf("client send queue full")
	}
}

// sendError sends an ERROR event to the browser.
func (c *Client) sendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = fmt.Sprintf("Internal server error: %v", err)
	}

	if sendErr := c.sendEvent(EventError, ErrorPayload{Code: code, Message: message}); sendErr != nil {
		c.logger.Error().Err(sendErr).Msg("Failed to queue error event")
	}
}

// kick gracefully closes the connection with a custom WebSocket Close Frame
// (Code 4001) indicating that a newer connection replaced the session.
func (c *Client) kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionReplaced).
		Str("reason", reason).
		Msg("Sending WS kick message and closing connection.")

	closeMessage := websocket.FormatCloseMessage(
		WsCloseCodeSessionReplaced,
		reason,
	)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to send WS 4001 close message.")
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to close kicked connection.")
	}
}
