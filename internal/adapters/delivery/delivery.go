// Package delivery carries alerts to the emergency backend and responder
// events back.
//
// The wire protocol is JSON frames over a single websocket: the client
// ships alert_create/alert_location/alert_status frames out, the backend
// ships response frames in, and ping/pong frames answer reachability
// probes. The connection is dialed lazily and dropped on any write or
// read failure; the next call redials, so the alert machine's retry
// budget doubles as the reconnect schedule.
//
// Conventions:
//   - A send error means the frame may not have left the device; callers
//     retry. A nil error means the frame was handed to the transport.
//   - Response subscriptions are client-side: the backend routes events
//     for the authenticated device, not per socket.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 90 * time.Second
)

// Frame kinds understood by both ends.
const (
	kindAlertCreate   = "alert_create"
	kindAlertLocation = "alert_location"
	kindAlertStatus   = "alert_status"
	kindResponse      = "response"
	kindPing          = "ping"
	kindPong          = "pong"
)

// frame is the wire envelope for every message in either direction.
type frame struct {
	Kind    string          `json:"kind"`
	AlertID string          `json:"alert_id,omitempty"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is the websocket transport to the alert backend.
type Client struct {
	endpoint string
	header   http.Header
	dialer   *websocket.Dialer

	writeTimeout time.Duration
	idleTimeout  time.Duration

	// mu serializes dialing and writing; the websocket allows one
	// concurrent writer.
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	subsMu  sync.RWMutex
	subs    map[string]map[int]func(model.Response)
	nextSub int

	pongMu  sync.Mutex
	pingSeq uint64
	pongs   map[uint64]chan struct{}

	logger logger.Logger
}

// NewClient creates a client for the backend websocket endpoint. No
// connection is made until the first call needs one.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:     endpoint,
		dialer:       websocket.DefaultDialer,
		writeTimeout: defaultWriteTimeout,
		idleTimeout:  defaultIdleTimeout,
		subs:         make(map[string]map[int]func(model.Response)),
		pongs:        make(map[uint64]chan struct{}),
		logger:       logger.Get().Named("delivery"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Connect dials the backend eagerly so startup can surface a bad endpoint
// immediately. Calls that need the connection dial on their own either way.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	_, err := c.ensureLocked(ctx)
	return err
}

// CreateAlert ships a freshly triggered alert to the backend.
func (c *Client) CreateAlert(ctx context.Context, a model.Alert) error {
	payload, err := json.Marshal(encodeAlert(a))
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	return c.send(ctx, frame{Kind: kindAlertCreate, AlertID: a.ID, Payload: payload})
}

// UpdateAlertLocation ships one trail sample.
func (c *Client) UpdateAlertLocation(ctx context.Context, alertID string, sample model.LocationSample) error {
	payload, err := json.Marshal(encodeSample(sample))
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}
	return c.send(ctx, frame{Kind: kindAlertLocation, AlertID: alertID, Payload: payload})
}

// UpdateAlertStatus ships a lifecycle transition.
func (c *Client) UpdateAlertStatus(ctx context.Context, alertID string, status model.AlertStatus) error {
	payload, err := json.Marshal(statusPayload{Status: string(status)})
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return c.send(ctx, frame{Kind: kindAlertStatus, AlertID: alertID, Payload: payload})
}

// PushResponse ships a responder event from this device, as the guardian
// side of the protocol does when acknowledging someone else's alert.
func (c *Client) PushResponse(ctx context.Context, alertID string, r model.Response) error {
	payload, err := json.Marshal(encodeResponse(r))
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return c.send(ctx, frame{Kind: kindResponse, AlertID: alertID, Payload: payload})
}

// SubscribeResponses registers fn for responder events on one alert. The
// registration is local; it survives reconnects.
func (c *Client) SubscribeResponses(_ context.Context, alertID string, fn func(model.Response)) (func(), error) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.subs[alertID] == nil {
		c.subs[alertID] = make(map[int]func(model.Response))
	}
	id := c.nextSub
	c.nextSub++
	c.subs[alertID][id] = fn

	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if set, ok := c.subs[alertID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(c.subs, alertID)
			}
		}
	}, nil
}

// Ping answers the connectivity monitor's reachability probe with an
// application-level round-trip: a ping frame out, the matching pong back.
func (c *Client) Ping(ctx context.Context) error {
	c.pongMu.Lock()
	c.pingSeq++
	seq := c.pingSeq
	waiter := make(chan struct{})
	c.pongs[seq] = waiter
	c.pongMu.Unlock()

	defer func() {
		c.pongMu.Lock()
		delete(c.pongs, seq)
		c.pongMu.Unlock()
	}()

	if err := c.send(ctx, frame{Kind: kindPing, Seq: seq}); err != nil {
		return err
	}

	select {
	case <-waiter:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drops the connection and rejects further sends.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = c.conn.Close()
		c.conn = nil
	}
	return nil
}

// send writes one frame, dialing first if needed. Any write failure drops
// the connection so the next send redials.
func (c *Client) send(ctx context.Context, f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	conn, err := c.ensureLocked(ctx)
	if err != nil {
		return err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteJSON(f); err != nil {
		c.dropLocked(conn)
		metrics.RecordErrorByComponent("delivery", "write_failed")
		return fmt.Errorf("write %s frame: %w", f.Kind, err)
	}
	return nil
}

// ensureLocked returns the live connection, dialing when there is none.
// Callers hold c.mu.
func (c *Client) ensureLocked(ctx context.Context) (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, c.header)
	if err != nil {
		metrics.RecordErrorByComponent("delivery", "dial_failed")
		return nil, fmt.Errorf("dial alert backend: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
	})

	c.conn = conn
	go c.readPump(conn)

	c.logger.Info(ctx, "connected to alert backend", logger.String("endpoint", c.endpoint))
	return conn, nil
}

// dropLocked closes conn and forgets it if it is still the current one.
// Callers hold c.mu.
func (c *Client) dropLocked(conn *websocket.Conn) {
	_ = conn.Close()
	if c.conn == conn {
		c.conn = nil
	}
}

// readPump consumes backend frames for one connection until it breaks.
func (c *Client) readPump(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		c.dropLocked(conn)
		c.mu.Unlock()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug(context.Background(), "backend connection dropped", logger.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.idleTimeout))

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			metrics.RecordErrorByComponent("delivery", "decode_failed")
			c.logger.Warn(context.Background(), "undecodable backend frame", logger.Error(err))
			continue
		}
		c.handle(f)
	}
}

// handle routes one inbound frame.
func (c *Client) handle(f frame) {
	switch f.Kind {
	case kindPong:
		c.pongMu.Lock()
		if waiter, ok := c.pongs[f.Seq]; ok {
			delete(c.pongs, f.Seq)
			close(waiter)
		}
		c.pongMu.Unlock()

	case kindPing:
		// Backend keepalive; answer on the shared writer.
		_ = c.send(context.Background(), frame{Kind: kindPong, Seq: f.Seq})

	case kindResponse:
		var p responsePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			metrics.RecordErrorByComponent("delivery", "decode_failed")
			c.logger.Warn(context.Background(), "undecodable response payload", logger.Error(err))
			return
		}
		c.dispatch(f.AlertID, decodeResponse(p))

	default:
		c.logger.Debug(context.Background(), "ignoring backend frame", logger.String("kind", f.Kind))
	}
}

// dispatch fans a responder event out to the alert's subscribers.
func (c *Client) dispatch(alertID string, r model.Response) {
	c.subsMu.RLock()
	fns := make([]func(model.Response), 0, len(c.subs[alertID]))
	for _, fn := range c.subs[alertID] {
		fns = append(fns, fn)
	}
	c.subsMu.RUnlock()

	for _, fn := range fns {
		fn(r)
	}
}
