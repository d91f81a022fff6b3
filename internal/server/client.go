package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-teamchat/internal/stats"
	"github.com/teris-io/shortid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is one live websocket connection. Events read from it are handled
// one at a time in arrival order.
type Client struct {
	id         string
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *slog.Logger
	authId     string
	userId     string
	userLock   sync.RWMutex
	send       chan *ServerMessage
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewClient wraps conn. authId is the identity verified at upgrade time and
// may be empty.
func NewClient(authId string, conn *websocket.Conn, cs *ChatServer, l *slog.Logger) *Client {
	id := shortid.MustGenerate()

	return &Client{
		id:         id,
		conn:       conn,
		chatServer: cs,
		log:        l.With("conn", id),
		authId:     authId,
		send:       make(chan *ServerMessage, 256),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Id() string {
	return c.id
}

// UserId returns the identity bound by a join event, falling back to the
// verified identity of the connection.
func (c *Client) UserId() string {
	c.userLock.RLock()
	defer c.userLock.RUnlock()

	if c.userId != "" {
		return c.userId
	}
	return c.authId
}

func (c *Client) bindUser(userId string) {
	c.userLock.Lock()
	defer c.userLock.Unlock()

	c.userId = userId
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("write exiting")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := c.serializeMessage(msg)
			if err != nil {
				c.log.Error("failed to serialize message", "event", msg.Event, "error", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Debug("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Warn("ws: read", "error", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Warn("error parsing message", "error", err)
			c.chatServer.stats.Incr(stats.EventsMalformed)
			continue
		}

		c.chatServer.handle(c, &msg)
	}
}

// queueMessage hands msg to the write pump without blocking. A full buffer
// drops the message.
func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Warn("failed to send message to client, channel is full", "event", msg.Event)
		return false
	}

	return true
}

func (c *Client) serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Warn("write message", "error", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cleanup releases the connection's rooms before the hub forgets it, so no
// later emission can target it.
func (c *Client) cleanup() {
	n := c.chatServer.registry.OnDisconnect(c)
	c.log.Debug("released rooms", "count", n)

	c.chatServer.deregister(c)
	c.stopClient()
}
