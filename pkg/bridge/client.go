// Package bridge implements the websocket client for the robot middleware
// bridge and the motor services called over it.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotReady is returned when a call is attempted before the connection
// has been established.
var ErrNotReady = errors.New("bridge: not connected")

// ServiceError is an application-level failure: the bridge answered, but
// the service reported success=false.
type ServiceError struct {
	Service string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

func newServiceError(service, message string) *ServiceError {
	if message == "" {
		message = "unknown error"
	}
	return &ServiceError{Service: service, Message: message}
}

// EventKind classifies connection events.
type EventKind int

const (
	EventConnected EventKind = iota
	EventError
	EventClosed
)

// Event is a connection lifecycle notification.
type Event struct {
	Kind EventKind
	Err  error
}

// Config holds connection settings for a bridge client.
type Config struct {
	// URL is the websocket endpoint of the bridge gateway.
	URL string
	// Namespace prefixes every service name. Defaults to /motor_control.
	Namespace string
	// CallTimeout bounds each service call. Defaults to 3s.
	CallTimeout time.Duration
}

// Client owns a single connection to the bridge. Connection events surface
// on Events(), log lines on Logs(); both channels are buffered and drop
// the oldest entry when nobody is listening. There is no automatic
// reconnection: after an error or close the client is spent and a new one
// must be dialed.
type Client struct {
	cfg   Config
	calls *callTable

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	writeMu sync.Mutex

	events    chan Event
	logs      chan string
	closeOnce sync.Once
}

// New creates a client for the given endpoint. Dial must be called before
// any service call.
func New(cfg Config) *Client {
	if cfg.Namespace == "" {
		cfg.Namespace = "/motor_control"
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 3 * time.Second
	}
	return &Client{
		cfg:    cfg,
		calls:  newCallTable(),
		events: make(chan Event, 4),
		logs:   make(chan string, 10),
	}
}

// Events returns the channel of connection lifecycle events.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Logs returns a channel that receives log messages.
func (c *Client) Logs() <-chan string {
	return c.logs
}

// Endpoint returns the configured bridge URL.
func (c *Client) Endpoint() string {
	return c.cfg.URL
}

// Connected reports whether the connection is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Dial opens the websocket connection and starts the read pump. On success
// an EventConnected is emitted; the read pump later emits exactly one
// EventError or EventClosed when the connection ends.
func (c *Client) Dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logf("Connected to %s", c.cfg.URL)
	c.emit(Event{Kind: EventConnected})

	go c.readPump(conn)
	return nil
}

// Close shuts the connection down. Safe to call more than once and on a
// client that never connected.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.connected = false
		c.mu.Unlock()
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

func (c *Client) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			c.calls.failAll()

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, net.ErrClosed) {
				c.logf("Connection closed")
				c.emit(Event{Kind: EventClosed})
			} else {
				c.logf("Connection error: %v", err)
				c.emit(Event{Kind: EventError, Err: err})
			}
			return
		}

		var resp responseFrame
		if err := json.Unmarshal(data, &resp); err != nil {
			c.logf("Discarding malformed frame: %v", err)
			continue
		}
		if resp.Op != opServiceResponse {
			continue
		}
		if !c.calls.resolve(resp.ID, resp) {
			c.logf("Discarding response for unknown call %s", resp.ID)
		}
	}
}

// Call issues a single request/response service call and decodes the
// response values into out. An error return is a transport failure; an
// application-level failure is reported by the typed wrappers on top.
func (c *Client) Call(ctx context.Context, service string, args, out any) error {
	if c == nil {
		return ErrNotReady
	}
	c.mu.Lock()
	conn, connected := c.conn, c.connected
	c.mu.Unlock()
	if !connected || conn == nil {
		return ErrNotReady
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode args for %s: %w", service, err)
	}

	id, ch := c.calls.register()
	frame := callFrame{Op: opCallService, ID: id, Service: service, Args: payload}

	c.writeMu.Lock()
	err = conn.WriteJSON(frame)
	c.writeMu.Unlock()
	if err != nil {
		c.calls.drop(id)
		return fmt.Errorf("call %s: %w", service, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("call %s: connection lost", service)
		}
		if !resp.ok() {
			return fmt.Errorf("call %s: rejected by bridge", service)
		}
		if out != nil && len(resp.Values) > 0 {
			if err := json.Unmarshal(resp.Values, out); err != nil {
				return fmt.Errorf("decode response for %s: %w", service, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.calls.drop(id)
		return fmt.Errorf("call %s: %w", service, ctx.Err())
	}
}

func (c *Client) service(name string) string {
	return c.cfg.Namespace + name
}

func (c *Client) logf(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logs <- msg:
	default:
		// Drop if channel full
	}
}

func (c *Client) emit(e Event) {
	select {
	case c.events <- e:
	default:
		// Drop oldest event if nobody is draining
		select {
		case <-c.events:
		default:
		}
		c.events <- e
	}
}
