package ws

import (
	"sync"
	"time"

	"github.com/fathima-sithara/realtime-service/internal/domain"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Conn is the part of *websocket.Conn the client uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type Options struct {
	SendBuffer      int
	RateLimitPerSec int
	MaxMessageSize  int64
	PingInterval    time.Duration
	WriteDeadline   time.Duration
}

// Client represents a single websocket connection.
type Client struct {
	id      string
	profile domain.UserProfile
	conn    Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	opts    Options
}

func NewClient(conn Conn, profile domain.UserProfile, opts Options) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.RateLimitPerSec <= 0 {
		opts.RateLimitPerSec = 20
	}
	return &Client{
		id:      uuid.NewString(),
		profile: profile,
		conn:    conn,
		send:    make(chan []byte, opts.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateLimitPerSec),
		opts:    opts,
	}
}

func (c *Client) ID() string       { return c.id }
func (c *Client) UserID() string   { return c.profile.ID }
func (c *Client) Username() string { return c.profile.Username }

// Enqueue queues msg for the write pump without blocking.
func (c *Client) Enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close is safe to call more than once and from any goroutine.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump blocks until the connection fails or is closed, handing every
// frame to dispatch. Frames over the rate limit are passed with limited set.
func (c *Client) readPump(dispatch func(data []byte, limited bool)) {
	if c.opts.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.opts.MaxMessageSize)
	}
	if c.opts.PingInterval > 0 {
		wait := c.opts.PingInterval * 2
		_ = c.conn.SetReadDeadline(time.Now().Add(wait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(wait))
		})
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if c.opts.PingInterval > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PingInterval * 2))
		}
		dispatch(data, !c.limiter.Allow())
	}
}

// writePump writes messages from send channel to websocket.
func (c *Client) writePump() {
	var tick <-chan time.Time
	if c.opts.PingInterval > 0 {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.Close()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.setWriteDeadline()
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-tick:
			c.setWriteDeadline()
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) setWriteDeadline() {
	if c.opts.WriteDeadline > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteDeadline))
	}
}
