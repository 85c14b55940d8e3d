package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	pingPeriod  = 30 * time.Second
	readTimeout = 60 * time.Second
	maxFrame    = 1 << 20 // 1MB payload cap
)

// Connection wraps one persistent duplex websocket and coordinates outbound
// writes via a buffered channel. It owns the connection lifecycle only; frame
// contents are opaque here and interpreted by the session layer.
type Connection struct {
	ID string

	ws     *websocket.Conn
	send   chan []byte
	frames chan []byte
	once   sync.Once
	close  chan struct{}
}

// Dial opens a websocket to rawURL and starts the read and write loops.
func Dial(ctx context.Context, rawURL string, header http.Header) (*Connection, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	conn := NewConnection(ws)
	conn.Start()
	return conn, nil
}

// NewConnection wraps an already-established websocket.
func NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:     uuid.NewString(),
		ws:     ws,
		send:   make(chan []byte, 128),
		frames: make(chan []byte, 128),
		close:  make(chan struct{}),
	}
}

// Start launches the read and write loops. It must be called exactly once per
// connection; Dial does it for you.
func (c *Connection) Start() {
	go c.writeLoop()
	go c.readLoop()
}

// Frames delivers raw inbound frames in arrival order. The channel is closed
// when the connection dies; consumers observe that as end of stream.
func (c *Connection) Frames() <-chan []byte {
	return c.frames
}

// Send enqueues payload for delivery. If the peer is slow and the buffer is
// full, the connection is closed to keep backpressure bounded.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.close:
		return errors.New("connection closed")
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("connection buffer exceeded")
	}
}

// Close terminates the connection and stops both loops.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *Connection) readLoop() {
	defer close(c.frames)
	defer c.Close(websocket.CloseNormalClosure, "read loop done")

	c.ws.SetReadLimit(maxFrame)
	_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	})
	c.ws.SetPingHandler(func(appData string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		return c.ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		select {
		case c.frames <- data:
		case <-c.close:
			return
		}
	}
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.writeMessage(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				return
			}
		}
	}
}

func (c *Connection) writeMessage(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Connection) writePing() error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}
