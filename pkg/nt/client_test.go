package nt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal NetworkTables server. On subscribe it announces
// /limelight/tx as topic 5 and sends its value.
type fakeServer struct {
	upgrader  websocket.Upgrader
	dropFirst bool

	connections atomic.Int32
	subscribes  atomic.Int32

	mu        sync.Mutex
	published []publishParams
	values    []valueFrame
}

func newFakeServer(t *testing.T, dropFirst bool) (*fakeServer, string) {
	t.Helper()
	s := &fakeServer{
		upgrader:  websocket.Upgrader{Subprotocols: Subprotocols},
		dropFirst: dropFirst,
	}
	srv := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(srv.Close)
	return s, "ws" + strings.TrimPrefix(srv.URL, "http") + "/nt/test"
}

func (s *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	n := s.connections.Add(1)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if kind == websocket.BinaryMessage {
			frames, _ := decodeValues(data)
			for _, f := range frames {
				if f.ID == timeSyncID {
					reply, _ := encodeValues(valueFrame{ID: timeSyncID, Time: 5_000_000, Type: typeInt, Value: f.Value})
					conn.WriteMessage(websocket.BinaryMessage, reply)
					continue
				}
				s.mu.Lock()
				s.values = append(s.values, f)
				s.mu.Unlock()
			}
			continue
		}

		msgs, _ := decodeControl(data)
		for _, m := range msgs {
			switch m.Method {
			case "subscribe":
				s.subscribes.Add(1)
				if s.dropFirst && n == 1 {
					return
				}
				announce, _ := encodeControl("announce", announceParams{Name: "/limelight/tx", ID: 5, Type: "double"})
				conn.WriteMessage(websocket.TextMessage, announce)
				value, _ := encodeValues(valueFrame{ID: 5, Time: 1000, Type: typeDouble, Value: 12.5})
				conn.WriteMessage(websocket.BinaryMessage, value)
			case "publish":
				var p publishParams
				if err := json.Unmarshal(m.Params, &p); err == nil {
					s.mu.Lock()
					s.published = append(s.published, p)
					s.mu.Unlock()
				}
			}
		}
	}
}

func (s *fakeServer) snapshot() ([]publishParams, []valueFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]publishParams(nil), s.published...), append([]valueFrame(nil), s.values...)
}

func startClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := DefaultConfig(url)
	cfg.RetryInterval = 10 * time.Millisecond
	c := NewClient(cfg)
	c.Start(context.Background())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_ReceivesSubscribedValues(t *testing.T) {
	_, url := newFakeServer(t, false)
	c := startClient(t, url)
	require.Eventually(t, c.Connected, 2*time.Second, time.Millisecond)

	table := c.Table("limelight")
	require.Eventually(t, func() bool {
		return table.GetDouble("tx", -1) == 12.5
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, -1.0, table.GetDouble("ty", -1), "unknown key returns default")
}

func TestClient_PublishesNumbers(t *testing.T) {
	srv, url := newFakeServer(t, false)
	c := startClient(t, url)
	require.Eventually(t, c.Connected, 2*time.Second, time.Millisecond)

	table := c.Table("limelight")
	require.NoError(t, table.SetNumber("pipeline", 2))
	require.NoError(t, table.SetNumber("pipeline", 3))
	assert.Equal(t, 3.0, table.GetDouble("pipeline", 0), "local writes are readable")

	require.Eventually(t, func() bool {
		_, values := srv.snapshot()
		return len(values) == 2
	}, 2*time.Second, time.Millisecond)

	pubs, values := srv.snapshot()
	require.Len(t, pubs, 1, "topic announced once")
	assert.Equal(t, "/limelight/pipeline", pubs[0].Name)
	assert.Equal(t, "double", pubs[0].Type)

	for i, want := range []float64{2, 3} {
		assert.Equal(t, pubs[0].PubUID, values[i].ID)
		assert.Equal(t, typeDouble, values[i].Type)
		assert.Equal(t, want, values[i].Value)
	}
}

func TestClient_ResubscribesAfterReconnect(t *testing.T) {
	srv, url := newFakeServer(t, true)
	c := startClient(t, url)
	require.Eventually(t, c.Connected, 2*time.Second, time.Millisecond)

	table := c.Table("limelight")
	require.Eventually(t, func() bool {
		return table.GetDouble("tx", 0) == 12.5
	}, 2*time.Second, time.Millisecond)

	assert.GreaterOrEqual(t, srv.connections.Load(), int32(2))
	assert.GreaterOrEqual(t, srv.subscribes.Load(), int32(2))
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient(DefaultConfig("ws://127.0.0.1:1/nt/test"))

	err := c.SetNumber("/limelight/pipeline", 1)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 1.0, c.GetDouble("/limelight/pipeline", 0), "value kept for replay")

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.SetNumber("/limelight/pipeline", 2), ErrClosed)
}

func TestClient_TimeSync(t *testing.T) {
	_, url := newFakeServer(t, false)
	c := startClient(t, url)
	require.Eventually(t, c.Connected, 2*time.Second, time.Millisecond)

	// The fake server always answers with 5 s, so the estimate lands near it.
	require.Eventually(t, func() bool {
		st := c.ServerTime()
		return st > 4_000_000 && st < 10_000_000
	}, 2*time.Second, time.Millisecond)
}
