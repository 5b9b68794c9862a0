package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Send buffer size per client.
	sendBufferSize = 64
)

// Subprotocols offered to clients.
const (
	SubprotocolJSON     = "json.optionbook.v1"
	SubprotocolProtobuf = "protobuf.optionbook.v1"

	protocolJSON     = "json"
	protocolProtobuf = "protobuf"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
	Subprotocols:    []string{SubprotocolProtobuf, SubprotocolJSON},
}

// frame is one outbound message. Control messages are always text.
type frame struct {
	binary bool
	data   []byte
}

// Client represents a WebSocket client connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan frame
	connID   string
	groups   map[string]bool
	logger   *zap.Logger
	protocol string // "protobuf" or "json"

	closeMu sync.RWMutex
	closed  bool
}

// HandleWS upgrades the request and serves chain subscriptions.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	connID := uuid.New().String()

	// Upgrader selects the subprotocol in server preference order
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	protocol := protocolJSON
	if conn.Subprotocol() == SubprotocolProtobuf {
		protocol = protocolProtobuf
	}

	h.logger.Debug("websocket subprotocol negotiated",
		zap.String("protocol", protocol),
		zap.Strings("requested", websocket.Subprotocols(r)),
	)

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan frame, sendBufferSize),
		connID:   connID,
		groups:   make(map[string]bool),
		logger:   h.logger,
		protocol: protocol,
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}
	client.trySend(frame{data: buildConnectedMessage(connID, protocol)})

	// Start read/write pumps
	go client.writePump()
	go client.readPump()
}

// trySend queues f without blocking. It reports false when the buffer is full.
func (c *Client) trySend(f frame) bool {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

// close stops further sends and closes the send channel once.
func (c *Client) close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed, send close message
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			msgType := websocket.TextMessage
			if f.binary {
				msgType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(msgType, f.data); err != nil {
				c.logger.Debug("websocket write error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming upstream message.
func (c *Client) handleMessage(data []byte) {
	msg, err := parseUpstreamMessage(data)
	if err != nil {
		c.logger.Debug("failed to parse upstream message",
			zap.String("connID", c.connID),
			zap.Error(err),
		)
		c.trySend(frame{data: buildErrorMessage(err.Error())})
		return
	}

	switch m := msg.(type) {
	case *joinGroupRequest:
		if _, err := ParseGroup(m.group); err != nil {
			c.logger.Debug("invalid group name",
				zap.String("connID", c.connID),
				zap.String("group", m.group),
			)
			c.ack(m.ackID, false, err.Error())
			return
		}
		c.hub.JoinGroup(c, m.group)
		c.ack(m.ackID, true, "")

	case *leaveGroupRequest:
		c.hub.LeaveGroup(c, m.group)
		c.ack(m.ackID, true, "")

	case *pingRequest:
		c.trySend(frame{data: buildPongMessage()})
	}
}

func (c *Client) ack(ackID *uint64, success bool, reason string) {
	if ackID == nil {
		return
	}
	c.trySend(frame{data: buildAckMessage(*ackID, success, reason)})
}
