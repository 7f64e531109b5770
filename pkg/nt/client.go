// Package nt is a NetworkTables 4 client: JSON control messages and
// MessagePack value frames over a WebSocket.
package nt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-hyperlib/internal/log"
)

// Subprotocols offered during the handshake, newest first.
var Subprotocols = []string{"v4.1.networktables.first.wpi.edu", "networktables.first.wpi.edu"}

// Config holds client settings.
type Config struct {
	// URL of the server, e.g. ws://10.0.0.2:5810/nt/hyperlib.
	URL string

	// RetryInterval is the pause between reconnect attempts.
	RetryInterval time.Duration

	// HandshakeTimeout bounds each dial.
	HandshakeTimeout time.Duration

	// SyncInterval is how often the server clock offset is refreshed.
	SyncInterval time.Duration
}

// ClientName returns prefix with a short random suffix. NetworkTables servers
// reject a second client with the same name.
func ClientName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// DefaultConfig returns settings for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		RetryInterval:    time.Second,
		HandshakeTimeout: 3 * time.Second,
		SyncInterval:     3 * time.Second,
	}
}

// Client keeps a connection to a NetworkTables server, reconnecting when it
// drops. Values received for subscribed topics are cached and read without I/O.
type Client struct {
	cfg Config

	// Connection, replaced on reconnect
	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	// Topic state
	mu        sync.RWMutex
	topics    map[int64]string       // announced id → name
	values    map[string]interface{} // name → latest value
	prefixes  []string               // subscribed prefixes, replayed on reconnect
	pubs      map[string]int64       // name → pubuid
	nextPubID int64
	nextSubID int64

	offset    atomic.Int64 // server time minus local time, µs
	connected atomic.Bool
	closed    atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient returns a client that connects once Start is called.
func NewClient(cfg Config) *Client {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 3 * time.Second
	}
	return &Client{
		cfg:    cfg,
		topics: make(map[int64]string),
		values: make(map[string]interface{}),
		pubs:   make(map[string]int64),
		done:   make(chan struct{}),
	}
}

// Start runs the connection loop in the background until ctx is cancelled or
// Close is called.
func (c *Client) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

// Close disconnects and stops reconnecting.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	return nil
}

// Connected reports whether the server connection is up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	for ctx.Err() == nil {
		if err := c.session(ctx); err != nil && ctx.Err() == nil {
			log.Warn("networktables connection lost", "url", c.cfg.URL, "error", err)
		}

		select {
		case <-ctx.Done():
		case <-time.After(c.cfg.RetryInterval):
		}
	}
}

// session dials, replays subscriptions and publishers, then reads until the
// connection fails.
func (c *Client) session(ctx context.Context) error {
	dialer := websocket.Dialer{
		Subprotocols:     Subprotocols,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	// Unblock the read when the context ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	defer func() {
		c.connected.Store(false)
		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
		conn.Close()

		// Topic ids are per connection.
		c.mu.Lock()
		c.topics = make(map[int64]string)
		c.mu.Unlock()
	}()

	if err := c.replay(conn); err != nil {
		return err
	}
	c.connected.Store(true)
	log.Info("networktables connected", "url", c.cfg.URL, "protocol", conn.Subprotocol())
	c.syncTime()

	go c.syncLoop(stop)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		switch kind {
		case websocket.TextMessage:
			c.handleControl(data)
		case websocket.BinaryMessage:
			c.handleValues(data)
		}
	}
}

func (c *Client) syncLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.syncTime()
		}
	}
}

// replay attaches conn and resends subscriptions, publisher announcements and
// cached published values. Anything registered after the snapshot is written
// by its caller on the new connection.
func (c *Client) replay(conn *websocket.Conn) error {
	c.mu.RLock()
	prefixes := append([]string(nil), c.prefixes...)
	pubs := make(map[string]int64, len(c.pubs))
	values := make(map[string]float64, len(c.pubs))
	for name, id := range c.pubs {
		pubs[name] = id
		if f, ok := toFloat(c.values[name]); ok {
			values[name] = f
		}
	}
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.mu.RUnlock()

	for i, p := range prefixes {
		if err := c.sendSubscribe(int64(i+1), p); err != nil {
			return err
		}
	}
	for name, id := range pubs {
		if err := c.sendPublish(name, id); err != nil {
			return err
		}
		if f, ok := values[name]; ok {
			if err := c.sendValue(id, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Client) handleControl(data []byte) {
	msgs, err := decodeControl(data)
	if err != nil {
		log.Debug("networktables bad text frame", "error", err)
		return
	}

	for _, m := range msgs {
		switch m.Method {
		case "announce":
			var p announceParams
			if err := json.Unmarshal(m.Params, &p); err != nil {
				continue
			}
			c.mu.Lock()
			c.topics[p.ID] = p.Name
			c.mu.Unlock()
		case "unannounce":
			var p unannounceParams
			if err := json.Unmarshal(m.Params, &p); err != nil {
				continue
			}
			c.mu.Lock()
			delete(c.topics, p.ID)
			c.mu.Unlock()
		}
	}
}

func (c *Client) handleValues(data []byte) {
	frames, err := decodeValues(data)
	if err != nil {
		log.Debug("networktables bad binary frame", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range frames {
		if f.ID == timeSyncID {
			c.applyTimeSync(f)
			continue
		}
		if name, ok := c.topics[f.ID]; ok {
			c.values[name] = f.Value
		}
	}
}

// applyTimeSync uses a round-trip reply: the value is our send time and the
// timestamp is the server time when it answered.
func (c *Client) applyTimeSync(f valueFrame) {
	sent, ok := toFloat(f.Value)
	if !ok {
		return
	}
	now := nowMicros()
	rtt2 := (now - int64(sent)) / 2
	c.offset.Store(f.Time + rtt2 - now)
}

func (c *Client) syncTime() {
	msg, err := encodeValues(valueFrame{ID: timeSyncID, Time: 0, Type: typeInt, Value: nowMicros()})
	if err != nil {
		return
	}
	if err := c.write(websocket.BinaryMessage, msg); err != nil {
		log.Debug("networktables time sync", "error", err)
	}
}

// ServerTime returns the estimated server clock in microseconds.
func (c *Client) ServerTime() int64 {
	return nowMicros() + c.offset.Load()
}

// Subscribe requests every topic under prefix. It is remembered and replayed
// after reconnects.
func (c *Client) Subscribe(prefix string) error {
	c.mu.Lock()
	for _, p := range c.prefixes {
		if p == prefix {
			c.mu.Unlock()
			return nil
		}
	}
	c.prefixes = append(c.prefixes, prefix)
	c.nextSubID++
	id := c.nextSubID
	c.mu.Unlock()

	return c.sendSubscribe(id, prefix)
}

// Table returns a view of the topics under /name/ and subscribes to them.
func (c *Client) Table(name string) Table {
	prefix := topicPrefix(name)
	if err := c.Subscribe(prefix); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Warn("networktables subscribe", "prefix", prefix, "error", err)
	}
	return &remoteTable{client: c, prefix: prefix}
}

// GetDouble returns the cached value of topic, or def when absent or not numeric.
func (c *Client) GetDouble(topic string, def float64) float64 {
	c.mu.RLock()
	v, ok := c.values[topic]
	c.mu.RUnlock()
	if !ok {
		return def
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return def
}

// SetNumber publishes a double topic. The value is cached even when the
// connection is down and sent on reconnect; ErrNotConnected reports that case.
func (c *Client) SetNumber(topic string, v float64) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.mu.Lock()
	c.values[topic] = v
	id, published := c.pubs[topic]
	if !published {
		c.nextPubID++
		id = c.nextPubID
		c.pubs[topic] = id
	}
	c.mu.Unlock()

	if !published {
		if err := c.sendPublish(topic, id); err != nil {
			return err
		}
	}
	return c.sendValue(id, v)
}

func (c *Client) sendSubscribe(id int64, prefix string) error {
	msg, err := encodeControl("subscribe", subscribeParams{
		Topics:  []string{prefix},
		SubUID:  id,
		Options: subscribeOptions{Prefix: true},
	})
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, msg)
}

func (c *Client) sendPublish(topic string, id int64) error {
	msg, err := encodeControl("publish", publishParams{
		Name:       topic,
		PubUID:     id,
		Type:       typeNames[typeDouble],
		Properties: map[string]interface{}{},
	})
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, msg)
}

func (c *Client) sendValue(id int64, v float64) error {
	msg, err := encodeValues(valueFrame{ID: id, Time: c.ServerTime(), Type: typeDouble, Value: v})
	if err != nil {
		return err
	}
	return c.write(websocket.BinaryMessage, msg)
}

func (c *Client) write(kind int, data []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := conn.WriteMessage(kind, data); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

func nowMicros() int64 {
	return time.Now().UnixMicro()
}
