package signaling

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	DefaultSendBuffer     = 256
	DefaultMaxMessageSize = 64 * 1024 // enough for SDP offers with many candidates
)

// ClientOptions configure a new Client.
type ClientOptions struct {
	// UserID, when set, joins the connection to the user's personal room as
	// soon as it is registered.
	UserID string

	Codec          Codec
	SendBuffer     int
	MaxMessageSize int64
	Logger         *slog.Logger
}

// Client is a wrapper for a single websocket connection.
type Client struct {
	id  string
	hub *Hub

	conn  *websocket.Conn
	codec Codec

	// userID is the identity from the last join. Only the hub touches it
	// after registration.
	userID string

	// send is a buffered channel of outbound messages. The hub writes to it
	// and closes it; WritePump drains it to the websocket.
	send chan *Message

	maxMessageSize int64
	log            *slog.Logger
}

// NewClient wraps conn. The caller registers it with the hub and starts the
// pumps.
func NewClient(hub *Hub, conn *websocket.Conn, opts ClientOptions) *Client {
	if opts.Codec == nil {
		opts.Codec = JSONCodec
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		hub:            hub,
		conn:           conn,
		codec:          opts.Codec,
		userID:         opts.UserID,
		send:           make(chan *Message, opts.SendBuffer),
		maxMessageSize: opts.MaxMessageSize,
		log:            opts.Logger.With("conn", id),
	}
}

// ID returns the opaque connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Deliver queues msg for WritePump without blocking.
func (c *Client) Deliver(msg *Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump pumps frames from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. It is the only
// reader of the connection, so frames reach the hub in the order they were
// sent.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("read failed", "err", err)
			}
			return
		}

		in, err := c.codec.Decode(data)
		if err != nil {
			// A broken frame only costs the frame.
			c.hub.stats.rejected.Inc()
			c.log.Debug("dropping undecodable frame", "err", err)
			continue
		}
		in.client = c

		if !c.hub.Dispatch(in) {
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. It is the
// only writer of the connection.
func (c *Client) WritePump() {
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
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := c.codec.Encode(message)
			if err != nil {
				c.log.Error("encode failed", "event", message.Type, "err", err)
				continue
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.log.Debug("write failed", "err", err)
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
