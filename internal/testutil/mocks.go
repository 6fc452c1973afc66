package testutil

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// MockConn is an in-memory net.Conn. Reads drain the request given to
// NewMockConn; writes are captured for inspection. Write errors can be
// injected the same way the acceptor would see a reset peer.
type MockConn struct {
	mu       sync.Mutex
	request  *bytes.Reader
	written  bytes.Buffer
	writeErr error
	closed   bool
}

// NewMockConn creates a MockConn that serves request to the reader.
func NewMockConn(request string) *MockConn {
	return &MockConn{request: bytes.NewReader([]byte(request))}
}

// Read implements net.Conn.
func (c *MockConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	n, err := c.request.Read(p)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Write implements net.Conn.
func (c *MockConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.written.Write(p)
}

// Close implements net.Conn.
func (c *MockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("mock conn: already closed")
	}
	c.closed = true
	return nil
}

// SetWriteError makes every subsequent Write fail with err.
func (c *MockConn) SetWriteError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// Written returns everything written to the connection.
func (c *MockConn) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

// Closed reports whether Close has been called.
func (c *MockConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MockConn) LocalAddr() net.Addr  { return mockAddr("local") }
func (c *MockConn) RemoteAddr() net.Addr { return mockAddr("remote") }

func (c *MockConn) SetDeadline(time.Time) error      { return nil }
func (c *MockConn) SetReadDeadline(time.Time) error  { return nil }
func (c *MockConn) SetWriteDeadline(time.Time) error { return nil }

type mockAddr string

func (a mockAddr) Network() string { return "mock" }
func (a mockAddr) String() string  { return string(a) }
