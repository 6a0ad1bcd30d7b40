// Package channel implements a realtime WebSocket connection that drops
// outbound payloads while disconnected and reconnects after a fixed delay.
package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// State of a channel connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Open
	ClosedPendingRetry
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case ClosedPendingRetry:
		return "closed-pending-retry"
	}
	return "unknown"
}

// Handler receives every inbound JSON payload verbatim, in arrival order.
type Handler func(msg json.RawMessage)

// Options configures one channel.
type Options struct {
	Name           string
	URL            string
	MessageType    int // websocket.TextMessage or websocket.BinaryMessage
	ReconnectDelay time.Duration
	WriteTimeout   time.Duration
	Dialer         *websocket.Dialer
	Header         http.Header
	Logger         zerolog.Logger

	// OnState observes state transitions in order. It runs without the
	// channel lock held and may call back into the channel.
	OnState func(State)
}

// Stats counts channel activity since creation.
type Stats struct {
	Sent       uint64
	Dropped    uint64
	Reconnects uint64
	Malformed  uint64
}

// Channel is one outbound realtime connection. It shares no state with other
// channels.
type Channel struct {
	opts    Options
	handler Handler
	log     zerolog.Logger

	mu         sync.Mutex
	state      State
	conn       *websocket.Conn
	gen        uint64
	cancelDial context.CancelFunc
	retry      *time.Timer
	pending    []State
	notifying  bool

	sent       atomic.Uint64
	dropped    atomic.Uint64
	reconnects atomic.Uint64
	malformed  atomic.Uint64
}

// New creates a disconnected channel.
func New(opts Options, handler Handler) *Channel {
	if opts.MessageType == 0 {
		opts.MessageType = websocket.TextMessage
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 2 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.Dialer == nil {
		d := *websocket.DefaultDialer
		d.HandshakeTimeout = 10 * time.Second
		opts.Dialer = &d
	}
	if handler == nil {
		handler = func(json.RawMessage) {}
	}
	return &Channel{
		opts:    opts,
		handler: handler,
		log:     opts.Logger.With().Str("component", "channel").Str("channel", opts.Name).Logger(),
	}
}

// Connect starts dialing in the background. It is a no-op while a
// connection is open or being established.
func (c *Channel) Connect() {
	defer c.notify()
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Connecting, Open:
		return
	}
	c.stopRetryLocked()
	c.gen++
	c.dialLocked(c.gen)
}

// Send writes payload if the connection is open and reports whether it was
// written. Payloads are never queued.
func (c *Channel) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Open || c.conn == nil {
		c.dropped.Add(1)
		return false
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := c.conn.WriteMessage(c.opts.MessageType, payload); err != nil {
		// the reader observes the broken connection and schedules the retry
		c.log.Debug().Err(err).Msg("Write failed")
		c.dropped.Add(1)
		return false
	}
	c.sent.Add(1)
	return true
}

// Close disconnects and suppresses any pending reconnect. Safe to call
// repeatedly.
func (c *Channel) Close() {
	defer c.notify()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.stopRetryLocked()
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
		c.conn = nil
		c.log.Info().Msg("Closed")
	}
	c.setStateLocked(Disconnected)
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns activity counters.
func (c *Channel) Stats() Stats {
	return Stats{
		Sent:       c.sent.Load(),
		Dropped:    c.dropped.Load(),
		Reconnects: c.reconnects.Load(),
		Malformed:  c.malformed.Load(),
	}
}

func (c *Channel) dialLocked(gen uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	c.setStateLocked(Connecting)

	go func() {
		defer cancel()
		defer c.notify()
		conn, resp, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		if gen != c.gen {
			if conn != nil {
				conn.Close()
			}
			return
		}
		c.cancelDial = nil

		if err != nil {
			c.log.Debug().Err(err).Str("url", c.opts.URL).Msg("Dial failed")
			c.scheduleRetryLocked(gen)
			return
		}

		c.conn = conn
		c.setStateLocked(Open)
		c.log.Info().Str("url", c.opts.URL).Msg("Connected")
		go c.readLoop(conn, gen)
	}()
}

func (c *Channel) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if gen == c.gen && c.conn == conn {
				c.log.Info().Err(err).Msg("Connection lost")
				conn.Close()
				c.conn = nil
				c.scheduleRetryLocked(gen)
			}
			c.mu.Unlock()
			c.notify()
			return
		}

		if !c.current(gen) {
			return
		}
		if !json.Valid(data) {
			c.malformed.Add(1)
			c.log.Warn().Int("bytes", len(data)).Msg("Dropping malformed message")
			continue
		}
		c.handler(json.RawMessage(data))
	}
}

func (c *Channel) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

// scheduleRetryLocked arms exactly one reconnect attempt for gen.
func (c *Channel) scheduleRetryLocked(gen uint64) {
	c.stopRetryLocked()
	c.setStateLocked(ClosedPendingRetry)
	c.retry = time.AfterFunc(c.opts.ReconnectDelay, func() {
		defer c.notify()
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen || c.state != ClosedPendingRetry {
			return
		}
		c.retry = nil
		c.reconnects.Add(1)
		c.log.Debug().Msg("Reconnecting")
		c.dialLocked(gen)
	})
}

func (c *Channel) stopRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

func (c *Channel) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.opts.OnState != nil {
		c.pending = append(c.pending, s)
	}
}

// notify delivers queued transitions outside c.mu. Only one goroutine
// delivers at a time; others leave their transitions to it.
func (c *Channel) notify() {
	c.mu.Lock()
	if c.notifying {
		c.mu.Unlock()
		return
	}
	c.notifying = true
	for len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil
		c.mu.Unlock()
		for _, s := range pending {
			c.opts.OnState(s)
		}
		c.mu.Lock()
	}
	c.notifying = false
	c.mu.Unlock()
}
