// Package transport maintains the framed duplex stream to the chat server.
//
// Two cooperating workers serve one connection: the writer drains a bounded
// FIFO of pending frames into the socket, the reader decodes inbound frames
// and fans them out on the event bus as "msg:<type>". The pending queue
// outlives the connection so a suspended session can flush it after resume.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/osuripple/fokabot/internal/events"
	"github.com/osuripple/fokabot/pkg/wire"
)

// Events triggered on the bus.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)

// ErrWriterOverflow is reported when the pending queue is full. The
// connection is dropped rather than buffering without bound.
var ErrWriterOverflow = errors.New("transport: writer queue overflow")

// ErrNotConnected is returned by direct writes without a live socket.
var ErrNotConnected = errors.New("transport: not connected")

// socket abstracts the websocket connection so tests can fake it.
type socket interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

type wsSocket struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSocket) Read(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.Read(ctx)
	return data, err
}

func (s *wsSocket) Write(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *wsSocket) Close(code websocket.StatusCode, reason string) error {
	return s.conn.Close(code, reason)
}

func dialWS(ctx context.Context, url string) (socket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	conn.SetReadLimit(1 << 20) // 1MB
	return &wsSocket{conn: conn}, nil
}

// Client is the duplex stream client. One Client lives for the whole
// process; Connect is called again after every disconnect.
type Client struct {
	url   string
	bus   *events.Bus
	queue chan wire.Message
	dial  func(ctx context.Context, url string) (socket, error)

	mu           sync.Mutex
	sock         socket
	writerCancel context.CancelFunc
	writerDone   chan struct{}
	discOnce     *sync.Once
}

// New creates a client. queueSize bounds the pending outbound queue.
func New(url string, bus *events.Bus, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Client{
		url:   url,
		bus:   bus,
		queue: make(chan wire.Message, queueSize),
		dial:  dialWS,
	}
}

// Connect dials the server and starts the reader worker. It returns once
// the stream is usable. The writer is started separately by the session
// once the stream may carry user traffic.
func (c *Client) Connect(ctx context.Context) error {
	sock, err := c.dial(ctx, c.url)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sock = sock
	c.discOnce = &sync.Once{}
	c.mu.Unlock()

	slog.Info("connected to chat server", "url", c.url)
	go c.reader(ctx, sock)
	c.bus.Trigger(ctx, EventConnected, nil)
	return nil
}

// Send enqueues an outbound frame. It never blocks on the network. A full
// queue drops the connection with ErrWriterOverflow instead of buffering
// without bound.
func (c *Client) Send(msg wire.Message) error {
	select {
	case c.queue <- msg:
		return nil
	default:
		slog.Error("writer queue full, dropping connection")
		c.disconnect(context.Background(), ErrWriterOverflow)
		return ErrWriterOverflow
	}
}

// SendNow writes a frame directly to the socket, bypassing the pending
// queue. Used for session control traffic (auth, resume, subscribe, join,
// pong) which must not wait for READY.
func (c *Client) SendNow(ctx context.Context, msg wire.Message) error {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		return ErrNotConnected
	}
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	slog.Debug("<-", "type", msg.Type)
	return sock.Write(ctx, data)
}

// StartWriter starts the writer worker draining the pending queue. A
// writer that is already running is left alone.
func (c *Client) StartWriter(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writerCancel != nil {
		return
	}
	wctx, cancel := context.WithCancel(ctx)
	c.writerCancel = cancel
	c.writerDone = make(chan struct{})
	go c.writer(wctx, c.sock, c.writerDone)
}

// StopWriter cancels the writer worker only. Pending frames stay queued;
// this is the suspend half of the resume protocol.
func (c *Client) StopWriter() {
	c.mu.Lock()
	cancel := c.writerCancel
	done := c.writerDone
	c.writerCancel = nil
	c.writerDone = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Close stops both workers and closes the socket.
func (c *Client) Close() {
	c.StopWriter()
	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.mu.Unlock()
	if sock != nil {
		sock.Close(websocket.StatusNormalClosure, "")
	}
}

// Pending returns the number of queued outbound frames.
func (c *Client) Pending() int { return len(c.queue) }

func (c *Client) writer(ctx context.Context, sock socket, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("writer worker stopped")
			return
		case msg := <-c.queue:
			data, err := msg.Encode()
			if err != nil {
				slog.Error("dropping unencodable frame", "type", msg.Type, "error", err)
				continue
			}
			slog.Debug("<-", "type", msg.Type)
			if err := sock.Write(ctx, data); err != nil {
				if ctx.Err() == nil {
					// Tear down from outside this goroutine: disconnect
					// waits for the writer to exit.
					go c.disconnect(ctx, err)
				}
				return
			}
		}
	}
}

func (c *Client) reader(ctx context.Context, sock socket) {
	for {
		data, err := sock.Read(ctx)
		if err != nil {
			c.disconnect(ctx, err)
			return
		}
		msg, err := wire.Decode(data)
		if err != nil {
			// A malformed frame is logged, not fatal.
			slog.Error("invalid incoming frame", "error", err, "raw", string(data))
			continue
		}
		slog.Debug("->", "type", msg.Type)
		c.bus.Trigger(ctx, "msg:"+msg.Type, msg)
	}
}

// disconnect tears the connection down once: writer first so no further
// outbound traffic is produced, then the socket, then the event.
func (c *Client) disconnect(ctx context.Context, cause error) {
	c.mu.Lock()
	once := c.discOnce
	c.mu.Unlock()
	if once == nil {
		return
	}
	once.Do(func() {
		c.StopWriter()
		c.mu.Lock()
		sock := c.sock
		c.sock = nil
		c.mu.Unlock()
		if sock != nil {
			sock.Close(websocket.StatusNormalClosure, "")
		}
		slog.Warn("disconnected from chat server", "cause", cause)
		c.bus.Trigger(ctx, EventDisconnected, cause)
	})
}
