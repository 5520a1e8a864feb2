// Package stream implements the per-venue WebSocket client state machine:
// connect, batched subscribe, frame pump with heartbeat, and reconnection
// with exponential backoff. It is venue-agnostic; venue specifics (endpoint,
// subscribe framing, heartbeat framing, batch size) are supplied by Config.
package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"xvenue/internal/bufpool"
	"xvenue/internal/errs"
)

// defaultReceiveBufferSize comfortably holds a single bookTicker or trade
// frame from either venue without growing; only a pathologically large
// frame (a venue's initial snapshot burst, say) overflows it and falls
// back to an allocation.
const defaultReceiveBufferSize = 8 * 1024

// defaultReceiveBufferPoolSize bounds how many frames can be mid-flight
// (acquired, not yet released) before Acquire starts returning ok=false
// and readLoop falls back to a fresh allocation; one in-flight frame at a
// time is the norm since OnFrame runs synchronously on readLoop's own
// goroutine, so a small pool is enough to absorb bursts.
const defaultReceiveBufferPoolSize = 4

// State is a stream client lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateSubscribing
	StateStreaming
	StateStale
	StateClosed
	StateError
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateStale:
		return "stale"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// FrameHandler receives a raw application frame plus the local receive time
// (nanoseconds since epoch), and is responsible for parsing and routing it.
// data is borrowed from readLoop's receive buffer pool and is only valid
// for the duration of the call; a handler that needs the bytes afterward
// must copy them.
type FrameHandler func(data []byte, recvTimeNs uint64)

// Config carries venue-specific parameters for a Client.
type Config struct {
	// Venue labels errors this client returns (e.g. "primary", "secondary").
	Venue    string
	Endpoint string

	// SubscribeBatchSize bounds how many symbols are packed into a single
	// subscribe frame (primary: 50, secondary: 10).
	SubscribeBatchSize int
	// SubscribeSpacing is the delay between consecutive subscribe frames.
	SubscribeSpacing time.Duration

	// IdleTimeout is the read deadline; exceeding it without any frame
	// (data or control) is treated as staleness and triggers reconnection.
	IdleTimeout time.Duration

	// PingInterval is the application-level heartbeat cadence. Zero means
	// the venue relies on transport-level control pings instead (the
	// client still answers them, it just never originates its own).
	PingInterval time.Duration
	// PingFrame is the literal bytes sent each PingInterval when non-nil.
	PingFrame []byte
	// IsApplicationPong reports whether a received data frame is an
	// application-level pong that must not be forwarded to the handler.
	IsApplicationPong func(data []byte) bool

	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	// BuildSubscribeFrames renders one or more symbols into wire frames,
	// already split into venue-sized batches.
	BuildSubscribeFrames func(symbols []string) [][]byte

	OnFrame FrameHandler
}

// Client is a reconnecting, heartbeating WebSocket stream consumer for one
// venue. All exported methods are safe for concurrent use.
type Client struct {
	cfg Config

	state atomic.Int32

	mu   sync.RWMutex
	conn *websocket.Conn

	writeMu sync.Mutex

	lastActivityNs atomic.Int64

	subMu     sync.Mutex
	subscribed map[string]struct{}

	recvPool *bufpool.Pool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Client for one venue. cfg.OnFrame and
// cfg.BuildSubscribeFrames must be non-nil.
func New(cfg Config) *Client {
	if cfg.ReconnectBaseDelay == 0 {
		cfg.ReconnectBaseDelay = time.Second
	}
	if cfg.ReconnectMaxDelay == 0 {
		cfg.ReconnectMaxDelay = 60 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 30 * time.Second
	}
	if cfg.SubscribeSpacing == 0 {
		cfg.SubscribeSpacing = 100 * time.Millisecond
	}
	return &Client{
		cfg:        cfg,
		subscribed: make(map[string]struct{}),
		recvPool:   bufpool.New(defaultReceiveBufferPoolSize, defaultReceiveBufferSize),
	}
}

func (c *Client) setState(s State) { c.state.Store(int32(s)) }

// State returns the client's current lifecycle state.
func (c *Client) State() State { return State(c.state.Load()) }

// IsConnected reports whether the client currently believes it has a live
// stream (Streaming or Subscribing).
func (c *Client) IsConnected() bool {
	switch c.State() {
	case StateSubscribing, StateStreaming:
		return true
	default:
		return false
	}
}

// LastActivity returns the local time of the last frame (data or control)
// received from the venue.
func (c *Client) LastActivity() time.Time {
	return time.Unix(0, c.lastActivityNs.Load())
}

func (c *Client) touchActivity() {
	c.lastActivityNs.Store(time.Now().UnixNano())
}

func (c *Client) getConn() *websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Connect dials the venue endpoint, disables per-message compression,
// applies TCP_NODELAY, and installs liveness handlers. It does not
// subscribe or start reading; call Subscribe and Run afterward.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	dialer := websocket.Dialer{
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: false,
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.Endpoint, nil)
	if err != nil {
		c.setState(StateError)
		return errs.NewStreamError(c.cfg.Venue, "dial", err)
	}

	c.setState(StateHandshaking)
	conn.SetCompressionLevel(0)
	if tcpConn, ok := conn.UnderlyingConn().(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
		_ = tcpConn.SetReadBuffer(1 << 20)
	}

	conn.SetPongHandler(func(string) error {
		c.touchActivity()
		return nil
	})
	conn.SetPingHandler(func(appData string) error {
		c.touchActivity()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.touchActivity()

	c.setState(StateSubscribing)
	return nil
}

// Subscribe batches symbols into venue-sized subscribe frames and writes
// them with inter-frame spacing. Symbols already subscribed in a prior
// call are skipped, making repeated calls idempotent.
func (c *Client) Subscribe(ctx context.Context, symbols []string) error {
	c.subMu.Lock()
	fresh := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, already := c.subscribed[s]; !already {
			fresh = append(fresh, s)
		}
	}
	c.subMu.Unlock()

	if len(fresh) == 0 {
		return nil
	}

	for _, frame := range c.cfg.BuildSubscribeFrames(fresh) {
		if err := c.writeMessage(websocket.TextMessage, frame); err != nil {
			return fmt.Errorf("stream: subscribe write: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.SubscribeSpacing):
		}
	}

	c.subMu.Lock()
	for _, s := range fresh {
		c.subscribed[s] = struct{}{}
	}
	c.subMu.Unlock()
	return nil
}

func (c *Client) subscribedSymbols() []string {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	out := make([]string, 0, len(c.subscribed))
	for s := range c.subscribed {
		out = append(out, s)
	}
	return out
}

// resubscribeAll re-issues subscribe frames for every symbol recorded
// before the connection dropped, bypassing the idempotent dedupe so the
// venue actually receives the frame again after a fresh handshake.
func (c *Client) resubscribeAll(ctx context.Context, symbols []string) error {
	c.subMu.Lock()
	c.subscribed = make(map[string]struct{})
	c.subMu.Unlock()
	return c.Subscribe(ctx, symbols)
}

func (c *Client) writeMessage(msgType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn := c.getConn()
	if conn == nil {
		return fmt.Errorf("stream: not connected")
	}
	return conn.WriteMessage(msgType, data)
}

// Run drives the connect/subscribe/read/reconnect cycle until ctx is
// cancelled. It blocks for the lifetime of the stream. If the caller has
// already called Connect (and, optionally, Subscribe) before starting Run
// in its own goroutine, Run's first iteration recognizes the live
// connection via IsConnected and skips straight to streaming instead of
// dialing a second connection out from under the caller's.
func (c *Client) Run(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	defer c.wg.Done()

	backoff := c.cfg.ReconnectBaseDelay
	reuseInitialConn := c.IsConnected()
	for {
		select {
		case <-ctx.Done():
			c.setState(StateClosed)
			return ctx.Err()
		default:
		}

		if reuseInitialConn {
			reuseInitialConn = false
		} else {
			if err := c.Connect(ctx); err != nil {
				c.setState(StateReconnecting)
				select {
				case <-ctx.Done():
					c.setState(StateClosed)
					return ctx.Err()
				case <-time.After(backoff):
				}
				backoff = nextBackoff(backoff, c.cfg.ReconnectMaxDelay)
				continue
			}

			if symbols := c.subscribedSymbols(); len(symbols) > 0 {
				if err := c.resubscribeAll(ctx, symbols); err != nil {
					c.closeConn()
					c.setState(StateReconnecting)
					select {
					case <-ctx.Done():
						c.setState(StateClosed)
						return ctx.Err()
					case <-time.After(backoff):
					}
					backoff = nextBackoff(backoff, c.cfg.ReconnectMaxDelay)
					continue
				}
			}
		}

		backoff = c.cfg.ReconnectBaseDelay
		c.setState(StateStreaming)

		var hbWg sync.WaitGroup
		hbCtx, hbCancel := context.WithCancel(ctx)
		if c.cfg.PingFrame != nil && c.cfg.PingInterval > 0 {
			hbWg.Add(1)
			go func() {
				defer hbWg.Done()
				c.heartbeatLoop(hbCtx)
			}()
		}

		c.readLoop(ctx)

		hbCancel()
		hbWg.Wait()
		c.closeConn()

		select {
		case <-ctx.Done():
			c.setState(StateClosed)
			return ctx.Err()
		default:
		}
		c.setState(StateReconnecting)
	}
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.writeMessage(websocket.TextMessage, c.cfg.PingFrame)
		}
	}
}

// readLoop pumps frames off the connection using NextReader directly
// instead of ReadMessage, so the common case (a frame that fits in one
// pooled buffer) never allocates: it reads straight into a buffer leased
// from recvPool and returns it once OnFrame has run synchronously on this
// same goroutine. Only a frame larger than the pool's buffer size falls
// back to an allocating read.
func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn := c.getConn()
		if conn == nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))

		_, r, err := conn.NextReader()
		if err != nil {
			c.setState(StateStale)
			return
		}

		buf, pooled := c.recvPool.AcquireCleared()
		if !pooled {
			buf = make([]byte, c.recvPool.Size())
		}

		n, rerr := io.ReadFull(r, buf)

		var msg []byte
		switch rerr {
		case nil:
			// The buffer filled exactly; the frame may run longer than
			// it. Drain the remainder rather than silently truncating.
			rest, _ := io.ReadAll(r)
			msg = append(append([]byte(nil), buf...), rest...)
		case io.ErrUnexpectedEOF, io.EOF:
			msg = buf[:n]
		default:
			if pooled {
				c.recvPool.Release(buf)
			}
			c.setState(StateStale)
			return
		}

		c.touchActivity()
		if c.cfg.IsApplicationPong == nil || !c.cfg.IsApplicationPong(msg) {
			c.cfg.OnFrame(msg, uint64(time.Now().UnixNano()))
		}

		if pooled {
			c.recvPool.Release(buf)
		}
	}
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Disconnect cancels Run and waits for it to exit.
func (c *Client) Disconnect() {
	if c.cancel != nil {
		c.cancel()
	}
	c.closeConn()
	c.wg.Wait()
	c.setState(StateClosed)
}

func nextBackoff(current, maxDelay time.Duration) time.Duration {
	next := current * 2
	if next > maxDelay {
		return maxDelay
	}
	return next
}
