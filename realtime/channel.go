// Package realtime keeps the one websocket a logged-in user has with the
// backend and hands inbound message frames to subscribers through a Bus.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"ivar-client/metrics"
	"ivar-client/models"
)

// ErrNotConnected is returned by Send while the socket is down.
var ErrNotConnected = errors.New("realtime: not connected")

type Channel struct {
	url    string
	bus    *Bus
	dialer *websocket.Dialer

	minDelay     time.Duration
	maxDelay     time.Duration
	writeTimeout time.Duration
	onState      func(connected bool)

	mu        sync.Mutex
	conn      *websocket.Conn
	writeMu   sync.Mutex
	connected atomic.Bool
}

type Option func(*Channel)

// WithBackoff sets the reconnect delay range.
func WithBackoff(min, max time.Duration) Option {
	return func(c *Channel) {
		if min > 0 {
			c.minDelay = min
		}
		if max > 0 {
			c.maxDelay = max
		}
	}
}

// WithStateHook is called every time the socket goes up or down.
func WithStateHook(fn func(connected bool)) Option {
	return func(c *Channel) { c.onState = fn }
}

// New prepares the channel for userID against wsBase (e.g. ws://localhost:8080).
// Nothing is dialed until Run.
func New(wsBase, userID string, opts ...Option) *Channel {
	c := &Channel{
		url:          strings.TrimRight(wsBase, "/") + "/ws/" + url.PathEscape(userID),
		bus:          NewBus(),
		dialer:       websocket.DefaultDialer,
		minDelay:     500 * time.Millisecond,
		maxDelay:     30 * time.Second,
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Channel) URL() string { return c.url }

// Subscribe registers on the channel's bus. Subscriptions end when Run returns.
func (c *Channel) Subscribe(filter Filter) *Subscription {
	return c.bus.Subscribe(filter)
}

func (c *Channel) Connected() bool {
	return c.connected.Load()
}

// Run connects and reconnects until ctx is cancelled, then closes the bus.
func (c *Channel) Run(ctx context.Context) error {
	defer c.bus.Close()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.minDelay
	bo.MaxInterval = c.maxDelay
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		conn, err := c.dial(ctx)
		if err == nil {
			bo.Reset()
			c.serve(ctx, conn)
		} else if ctx.Err() == nil {
			log.Printf("realtime: %v", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			wait = c.maxDelay
		}
		metrics.IncReconnect()
		log.Printf("realtime: reconnecting in %s", wait.Round(time.Millisecond))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Send writes one JSON frame on the live connection.
func (c *Channel) Send(ctx context.Context, msg models.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	metrics.IncFrame("out")
	return nil
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to websocket: %v, status: %s", err, resp.Status)
		}
		return nil, fmt.Errorf("failed to connect to websocket: %w", err)
	}
	return conn, nil
}

// serve reads frames until the connection fails or ctx ends.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn) {
	c.setConn(conn)
	defer func() {
		c.setConn(nil)
		_ = conn.Close()
	}()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("realtime: read: %v", err)
			}
			return
		}

		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			metrics.IncFrame("malformed")
			log.Printf("realtime: invalid message format: %v", err)
			continue
		}
		metrics.IncFrame("in")
		c.bus.Publish(msg)
	}
}

func (c *Channel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	up := conn != nil
	c.connected.Store(up)
	metrics.SetConnected(up)
	if c.onState != nil {
		c.onState(up)
	}
}
