// Package cdp implements the CDP Channel (spec §4.1): a send/on/off/close
// facade over one Chrome DevTools Protocol debugging target, reached over a
// single gorilla/websocket connection. Request/response correlation and the
// single-writer-goroutine discipline are grounded on the teacher's
// internal/browser relay.go; event fan-out reuses the teacher's
// internal/events pub/sub Subject instead of relay.go's per-client map,
// since this Channel serves exactly one target with no multiplexing.
//
// Channel implements cdproto/cdp.Executor, so any cdproto command object's
// generated Do(ctx) method works against it directly once the Channel is
// installed in ctx via cdproto/cdp.WithExecutor — the same mechanism
// chromedp itself uses to drive a target.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"

	"github.com/chromedp/cdproto"
	cdpcore "github.com/chromedp/cdproto/cdp"

	"github.com/sgreen7979/browser-stream/internal/bserr"
	"github.com/sgreen7979/browser-stream/internal/events"
	"github.com/sgreen7979/browser-stream/internal/logging"
)

// Channel is the CDP Channel described in spec §4.1.
type Channel struct {
	conn   *websocket.Conn
	log    logging.Logger
	events *events.Subject

	writeMu sync.Mutex // serializes writes onto conn, per gorilla/websocket's single-writer requirement

	mu      sync.Mutex
	pending map[int64]*pendingRequest
	nextID  int64

	crashed atomic.Bool
	closed  atomic.Bool

	doneCh chan struct{}
}

// Dial connects to a CDP debugging target WebSocket URL and enables the
// domains the rest of the core depends on.
func Dial(ctx context.Context, wsURL string) (*Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, bserr.Wrap(bserr.CDPDisconnected, "dial CDP websocket", err)
	}

	ch := &Channel{
		conn:    conn,
		log:     logging.WithComponent("cdp"),
		events:  events.NewSubject(events.WithBufferSize(1024)),
		pending: make(map[int64]*pendingRequest),
		doneCh:  make(chan struct{}),
	}

	go ch.readLoop()

	ch.subscribeInternal()

	if err := ch.enableDomains(ctx); err != nil {
		ch.Close()
		return nil, err
	}

	return ch, nil
}

// Send issues a CDP command and decodes its result into res (which may be
// nil if the caller doesn't need the result, or an easyjson.Unmarshaler to
// support cdproto return types directly).
func (c *Channel) Send(ctx context.Context, method string, params any, res any) error {
	if c.crashed.Load() {
		return bserr.New(bserr.PageCrashed, "channel crashed")
	}
	if c.closed.Load() {
		return bserr.New(bserr.CDPDisconnected, "channel closed")
	}

	id := atomic.AddInt64(&c.nextID, 1)
	pr := &pendingRequest{resolve: make(chan json.RawMessage, 1), reject: make(chan error, 1)}

	c.mu.Lock()
	c.pending[id] = pr
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	frame := commandFrame{ID: id, Method: method, Params: params}
	payload, err := json.Marshal(frame)
	if err != nil {
		return bserr.Wrap(bserr.ActionFailed, "encode command", err)
	}

	c.writeMu.Lock()
	writeErr := c.conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if writeErr != nil {
		return bserr.Wrap(bserr.CDPDisconnected, "write command", writeErr)
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()

	select {
	case raw := <-pr.resolve:
		if res == nil || len(raw) == 0 {
			return nil
		}
		return decodeResult(raw, res)
	case err := <-pr.reject:
		return bserr.Wrap(bserr.ScriptError, method, err)
	case <-timer.C:
		return bserr.New(bserr.CDPDisconnected, method+" timed out waiting for response")
	case <-ctx.Done():
		return bserr.Wrap(bserr.CDPDisconnected, method+" canceled", ctx.Err())
	case <-c.doneCh:
		return bserr.New(bserr.CDPDisconnected, "channel closed")
	}
}

// Execute implements cdproto/cdp.Executor so generated cdproto command
// types' Do(ctx) methods can run directly against this Channel.
func (c *Channel) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	var raw json.RawMessage
	if params != nil {
		encoded, err := easyjson.Marshal(params)
		if err != nil {
			return bserr.Wrap(bserr.ActionFailed, "marshal params", err)
		}
		raw = encoded
	}

	if res == nil {
		return c.sendRaw(ctx, method, raw, nil)
	}
	return c.sendRaw(ctx, method, raw, res)
}

func (c *Channel) sendRaw(ctx context.Context, method string, params json.RawMessage, res easyjson.Unmarshaler) error {
	if c.crashed.Load() {
		return bserr.New(bserr.PageCrashed, "channel crashed")
	}
	if c.closed.Load() {
		return bserr.New(bserr.CDPDisconnected, "channel closed")
	}

	id := atomic.AddInt64(&c.nextID, 1)
	pr := &pendingRequest{resolve: make(chan json.RawMessage, 1), reject: make(chan error, 1)}

	c.mu.Lock()
	c.pending[id] = pr
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	var rawParams json.RawMessage = params
	if rawParams == nil {
		rawParams = json.RawMessage(`{}`)
	}
	frame := commandFrame{ID: id, Method: method, Params: rawParams}
	payload, err := json.Marshal(frame)
	if err != nil {
		return bserr.Wrap(bserr.ActionFailed, "encode command", err)
	}

	c.writeMu.Lock()
	writeErr := c.conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if writeErr != nil {
		return bserr.Wrap(bserr.CDPDisconnected, "write command", writeErr)
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()

	select {
	case raw := <-pr.resolve:
		if res == nil || len(raw) == 0 {
			return nil
		}
		return easyjson.Unmarshal(raw, res)
	case err := <-pr.reject:
		return bserr.Wrap(bserr.ScriptError, method, err)
	case <-timer.C:
		return bserr.New(bserr.CDPDisconnected, method+" timed out waiting for response")
	case <-ctx.Done():
		return bserr.Wrap(bserr.CDPDisconnected, method+" canceled", ctx.Err())
	case <-c.doneCh:
		return bserr.New(bserr.CDPDisconnected, "channel closed")
	}
}

func decodeResult(raw json.RawMessage, res any) error {
	if err := json.Unmarshal(raw, res); err != nil {
		return bserr.Wrap(bserr.ActionFailed, "decode result", err)
	}
	return nil
}

// On subscribes a handler to the raw json.RawMessage params of a CDP
// event by method name. The returned Subscription must be unsubscribed
// on every exit path (spec §9's "Observer-style subscriptions" note).
func On(c *Channel, method string, handler func(context.Context, json.RawMessage) error) events.Subscription {
	return events.Subscribe(c.events, events.MethodTopic(method), handler)
}

// OnTyped subscribes a handler to a CDP event's cdproto-decoded struct
// (e.g. *dom.EventChildNodeInserted), for callers that need typed field
// access rather than raw JSON.
func OnTyped[T any](c *Channel, method string, handler func(context.Context, T) error) events.Subscription {
	return events.Subscribe(c.events, events.MethodTopic(method)+".typed", handler)
}

// Close shuts down the channel: closes the websocket and rejects every
// pending request.
func (c *Channel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.doneCh)

	c.mu.Lock()
	for _, pr := range c.pending {
		select {
		case pr.reject <- bserr.New(bserr.CDPDisconnected, "channel closed"):
		default:
		}
	}
	c.mu.Unlock()

	events.Complete(c.events)
	return c.conn.Close()
}

// Crashed reports whether Inspector.targetCrashed has ever fired.
func (c *Channel) Crashed() bool {
	return c.crashed.Load()
}

func (c *Channel) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debug("read loop exiting", "error", err)
			c.Close()
			return
		}
		c.dispatch(data)
	}
}

func (c *Channel) dispatch(data []byte) {
	var probe struct {
		ID     int64  `json:"id"`
		Method string `json:"method"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		c.log.Warn("failed to decode frame", "error", err)
		return
	}

	if probe.ID != 0 {
		var resp responseFrame
		if err := json.Unmarshal(data, &resp); err != nil {
			return
		}
		c.mu.Lock()
		pr, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if !ok {
			return
		}
		if resp.Error != nil {
			pr.reject <- fmt.Errorf("%s (code %d)", resp.Error.Message, resp.Error.Code)
			return
		}
		pr.resolve <- resp.Result
		return
	}

	if probe.Method == "" {
		return
	}

	var evt eventFrame
	if err := json.Unmarshal(data, &evt); err != nil {
		return
	}
	events.Emit(c.events, events.MethodTopic(evt.Method), evt.Params)

	// Give cdproto a chance to decode into its typed event structs for
	// handlers that subscribed with a cdproto event type instead of raw
	// json.RawMessage.
	if decoded, err := cdproto.UnmarshalMessage(&cdproto.Message{
		Method: cdproto.MethodType(evt.Method),
		Params: easyjson.RawMessage(evt.Params),
	}); err == nil && decoded != nil {
		events.Emit(c.events, events.MethodTopic(evt.Method)+".typed", decoded)
	}
}

var _ cdpcore.Executor = (*Channel)(nil)
