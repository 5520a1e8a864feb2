package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newEchoServer starts a local WebSocket server that answers every
// received frame containing "SUBSCRIBE" with one fixed quote-shaped JSON
// frame, simulating a venue that immediately starts streaming after a
// subscribe request.
func newEchoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if strings.Contains(string(msg), "SUBSCRIBE") {
				reply := []byte(`{"e":"bookTicker","s":"BTCUSDT","b":"1.0","B":"1.0","a":"1.1","A":"1.0","T":1}`)
				if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
					return
				}
			}
		}
	}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

func TestClientConnectSubscribeRun(t *testing.T) {
	srv, wsURL := newEchoServer(t)
	defer srv.Close()

	var mu sync.Mutex
	var frames [][]byte
	done := make(chan struct{}, 1)

	cfg := Config{
		Endpoint:             wsURL,
		BuildSubscribeFrames: BuildPrimarySubscribeFrames,
		IdleTimeout:          2 * time.Second,
		OnFrame: func(data []byte, _ uint64) {
			// OnFrame's data aliases a buffer readLoop returns to its pool
			// as soon as this call returns; callers that keep the bytes
			// around (as this test does, for later assertions) must copy.
			cp := append([]byte(nil), data...)
			mu.Lock()
			frames = append(frames, cp)
			mu.Unlock()
			select {
			case done <- struct{}{}:
			default:
			}
		},
	}
	client := New(cfg)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !client.IsConnected() {
		t.Error("expected IsConnected after Connect (state=Subscribing)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	var runErr error
	go func() { runErr = client.Run(ctx) }()

	if err := client.Subscribe(context.Background(), []string{"BTCUSDT"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for streamed frame")
	}

	cancel()
	client.Disconnect()
	_ = runErr

	mu.Lock()
	n := len(frames)
	mu.Unlock()
	if n == 0 {
		t.Error("expected at least one frame delivered to OnFrame")
	}
}

// TestRunDoesNotRedialAnAlreadyConnectedClient guards the startVenue
// sequence (Connect, then Run in its own goroutine, then Subscribe): Run's
// first iteration must recognize the connection Connect already
// established and must not dial a second one out from under the caller's
// Subscribe call.
func TestRunDoesNotRedialAnAlreadyConnectedClient(t *testing.T) {
	var dials int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&dials, 1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	client := New(Config{
		Endpoint:             wsURL,
		BuildSubscribeFrames: BuildPrimarySubscribeFrames,
		IdleTimeout:          2 * time.Second,
		OnFrame:              func([]byte, uint64) {},
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	if err := client.Subscribe(context.Background(), []string{"BTCUSDT"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	cancel()
	client.Disconnect()

	if got := atomic.LoadInt32(&dials); got != 1 {
		t.Errorf("server saw %d dial(s), want exactly 1 (Run redialed a live connection)", got)
	}
}

func TestClientSubscribeIdempotent(t *testing.T) {
	srv, wsURL := newEchoServer(t)
	defer srv.Close()

	var writeCount int
	cfg := Config{
		Endpoint:             wsURL,
		BuildSubscribeFrames: func(symbols []string) [][]byte { writeCount += len(symbols); return BuildPrimarySubscribeFrames(symbols) },
		OnFrame:              func([]byte, uint64) {},
		SubscribeSpacing:     time.Millisecond,
	}
	client := New(cfg)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Disconnect()

	if err := client.Subscribe(context.Background(), []string{"BTCUSDT", "ETHUSDT"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := client.Subscribe(context.Background(), []string{"BTCUSDT", "ETHUSDT"}); err != nil {
		t.Fatalf("second Subscribe: %v", err)
	}
	if writeCount != 2 {
		t.Errorf("BuildSubscribeFrames invoked with %d total symbols across calls, want 2 (second call should be a no-op)", writeCount)
	}
}

func TestClientLastActivityUpdatesOnConnect(t *testing.T) {
	srv, wsURL := newEchoServer(t)
	defer srv.Close()

	client := New(Config{
		Endpoint:             wsURL,
		BuildSubscribeFrames: BuildPrimarySubscribeFrames,
		OnFrame:              func([]byte, uint64) {},
	})
	before := time.Now().Add(-time.Hour)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Disconnect()

	if !client.LastActivity().After(before) {
		t.Error("expected LastActivity to be updated after Connect")
	}
}

func TestNextBackoffCapsAtMax(t *testing.T) {
	d := time.Second
	for i := 0; i < 10; i++ {
		d = nextBackoff(d, 60*time.Second)
	}
	if d != 60*time.Second {
		t.Errorf("backoff = %v, want capped at 60s", d)
	}
}
