package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/santoryu/domain"
	"github.com/satriahrh/santoryu/domain/entities"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Size of the outbound queue per client.
	sendBuffer = 16
)

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Turn state. Only touched by readPump.
	session *entities.Session

	// Cancelled when the client is torn down so an in-flight turn stops.
	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	session := entities.NewSession(remoteAddr, hub.config.MaxSessionBytes)
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan WriteData, sendBuffer),
		session: session,
		ctx:     ctx,
		cancel:  cancel,
		logger:  hub.logger.With(zap.String("sessionID", session.ID)),
	}
}

// readPump reads frames and runs turns. Turns run inline so the session is
// never touched by two goroutines.
func (c *Client) readPump() {
	defer func() {
		c.session.Close()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	// Frames above the cap still get a fault reply, anything larger drops the connection.
	c.conn.SetReadLimit(2 * int64(c.hub.config.MaxSessionBytes))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		c.handleFrame(messageType, message)
	}
}

// handleFrame dispatches one inbound frame. A panic here is reported to the
// peer and the read loop continues.
func (c *Client) handleFrame(messageType int, message []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered panic while handling frame", zap.Any("panic", r), zap.Stack("stack"))
			if c.session.State == entities.SessionStateProcessing {
				c.session.FinishTurn()
			}
			c.sendError(c.hub.replies.FaultMessage(domain.ErrorKindConnectionFault))
		}
	}()

	switch messageType {
	case websocket.TextMessage:
		if string(message) == DoneSignal {
			c.hub.metrics.FrameReceived("done")
			c.handleTurn()
			return
		}
		c.hub.metrics.FrameReceived("text")
		c.appendChunk(string(message))
	case websocket.BinaryMessage:
		c.hub.metrics.FrameReceived("binary")
		c.appendChunk(base64.StdEncoding.EncodeToString(message))
	default:
		c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
	}
}

func (c *Client) appendChunk(chunk string) {
	err := c.session.Append(chunk)
	switch {
	case errors.Is(err, entities.ErrChunkDropped):
		c.logger.Debug("Dropped audio chunk after overflow", zap.Int("size", len(chunk)))
		return
	case err != nil:
		kind := domain.KindOf(err)
		c.logger.Warn("Rejected audio chunk",
			zap.Int("size", len(chunk)),
			zap.Error(err))
		c.hub.metrics.TurnRejected(string(kind))
		c.sendError(c.hub.replies.FaultMessage(kind))
		return
	}

	c.logger.Debug("Accumulated audio chunk",
		zap.Int("chunks", c.session.ChunkCount()),
		zap.Int("size", c.session.Size()))
}

func (c *Client) handleTurn() {
	chunks, err := c.session.TakeChunks()
	if err != nil {
		kind := domain.KindOf(err)
		if kind == domain.ErrorKindAudioTooLarge {
			// already answered and counted when the cap was hit
			c.logger.Info("Discarded overflowed turn")
			return
		}
		c.logger.Info("Turn ended without audio", zap.String("kind", string(kind)))
		c.hub.metrics.TurnRejected(string(kind))
		c.sendError(c.hub.replies.FaultMessage(kind))
		return
	}
	defer c.session.FinishTurn()

	ctx := c.ctx
	if c.hub.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.hub.config.TurnTimeout)
		defer cancel()
	}

	turn, err := c.hub.processor.Process(ctx, chunks)

	// The peer's pongs were not read while the turn ran.
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	if err != nil {
		kind := domain.KindOf(err)
		c.logger.Warn("Turn failed", zap.String("kind", string(kind)), zap.Error(err))
		c.sendError(c.hub.replies.FaultMessage(kind))
		return
	}

	c.sendJSON(NewTranscriptionMessage(turn))
}

func (c *Client) sendError(message string) {
	c.sendJSON(NewErrorMessage(message))
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	if err := c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload}); err != nil {
		c.logger.Warn("Dropped outbound message", zap.Error(err))
	}
}

// enqueue hands a frame to writePump without blocking
func (c *Client) enqueue(data WriteData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client closed")
	}

	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// shutdown closes the outbound queue and cancels any in-flight turn.
// Safe to call more than once.
func (c *Client) shutdown() {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
