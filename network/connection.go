// network/connection.go
package network

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnID identifies a connection for its whole lifetime. Ids are never reused.
type ConnID uint64

// ConnState is the readiness interest of a registered connection.
type ConnState int

const (
	StateReading ConnState = iota
	StateReadWrite
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateReadWrite:
		return "read_write"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Transport is a duplex byte stream. Read may block and is only called from
// the connection's reader goroutine. Write must not block for long: it
// returns how many bytes were accepted, possibly fewer than len(p) with a nil
// error.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	RemoteAddr() net.Addr
}

// Connection is the event loop's handle for one transport.
type Connection struct {
	ID        ConnID
	Transport Transport
	Frames    *FrameBuffer
	State     ConnState
}

func NewConnection(id ConnID, t Transport, maxFrame int) *Connection {
	return &Connection{
		ID:        id,
		Transport: t,
		Frames:    NewFrameBuffer(maxFrame),
		State:     StateReading,
	}
}

// Send queues msg and raises write interest.
func (c *Connection) Send(msg Message) error {
	if c.State == StateClosed {
		return net.ErrClosed
	}
	if err := c.Frames.Queue(msg); err != nil {
		return err
	}
	c.State = StateReadWrite
	return nil
}

// Flush writes pending bytes and drops back to read interest once drained.
func (c *Connection) Flush() error {
	if c.State == StateClosed {
		return net.ErrClosed
	}
	if _, err := c.Frames.Flush(c.Transport); err != nil {
		return err
	}
	if c.Frames.Pending() == 0 {
		c.State = StateReading
	}
	return nil
}

// TCPTransport wraps a stream socket. Writes are bounded by a short deadline
// so a stalled peer cannot hold up the caller.
type TCPTransport struct {
	conn       net.Conn
	writeSlice time.Duration
}

func NewTCPTransport(conn net.Conn, writeSlice time.Duration) *TCPTransport {
	return &TCPTransport{conn: conn, writeSlice: writeSlice}
}

func (t *TCPTransport) Read(p []byte) (int, error) {
	return t.conn.Read(p)
}

func (t *TCPTransport) Write(p []byte) (int, error) {
	if t.writeSlice > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeSlice)); err != nil {
			return 0, err
		}
	}
	n, err := t.conn.Write(p)
	var ne net.Error
	if err != nil && errors.As(err, &ne) && ne.Timeout() {
		return n, nil
	}
	return n, err
}

func (t *TCPTransport) Close() error {
	return t.conn.Close()
}

func (t *TCPTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

// WSTransport carries the same byte stream inside WebSocket binary messages.
// Message boundaries carry no meaning; frames may span or share messages.
type WSTransport struct {
	conn    *websocket.Conn
	reader  io.Reader
	send    chan []byte
	done    chan struct{}
	closeMu sync.Once
	timeout time.Duration
}

// NewWSTransport starts the write pump for conn. queue bounds the number of
// buffers waiting to be written.
func NewWSTransport(conn *websocket.Conn, queue int, writeTimeout time.Duration) *WSTransport {
	if queue <= 0 {
		queue = 64
	}
	t := &WSTransport{
		conn:    conn,
		send:    make(chan []byte, queue),
		done:    make(chan struct{}),
		timeout: writeTimeout,
	}
	go t.writePump()
	return t
}

func (t *WSTransport) Read(p []byte) (int, error) {
	for {
		if t.reader == nil {
			_, r, err := t.conn.NextReader()
			if err != nil {
				return 0, err
			}
			t.reader = r
		}
		n, err := t.reader.Read(p)
		if errors.Is(err, io.EOF) {
			t.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Write hands p to the write pump. It accepts all of p or nothing.
func (t *WSTransport) Write(p []byte) (int, error) {
	select {
	case <-t.done:
		return 0, net.ErrClosed
	default:
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case t.send <- buf:
		return len(p), nil
	default:
		return 0, nil
	}
}

func (t *WSTransport) writePump() {
	defer t.conn.Close()
	for {
		select {
		case <-t.done:
			t.drain()
			return
		case buf := <-t.send:
			if err := t.write(buf); err != nil {
				t.Close()
				return
			}
		}
	}
}

// drain writes whatever was queued before Close, best effort.
func (t *WSTransport) drain() {
	for {
		select {
		case buf := <-t.send:
			if err := t.write(buf); err != nil {
				return
			}
		default:
			_ = t.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (t *WSTransport) write(buf []byte) error {
	if t.timeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.timeout))
	}
	return t.conn.WriteMessage(websocket.BinaryMessage, buf)
}

// Close stops the write pump, which flushes queued buffers and closes the socket.
func (t *WSTransport) Close() error {
	t.closeMu.Do(func() {
		close(t.done)
	})
	return nil
}

func (t *WSTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}
