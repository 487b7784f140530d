package gpionet

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// DefaultPort is the TCP port the peer firmware listens on.
const DefaultPort = 8080

// aLongTimeAgo is a deadline in the past, used to abort blocked I/O.
var aLongTimeAgo = time.Unix(1, 0)

// Connection is the stream socket to a single peer.
//
// Send writes a whole buffer. Receive performs a single read and may return
// fewer bytes than requested; Connection implements io.Reader on top of it
// so that callers can loop with io.ReadFull or the wire readers.
//
// Connection is not safe for concurrent Send/Receive. Close may be called
// at any time from any goroutine and unblocks a pending Receive.
type Connection struct {
	addr   string
	conn   net.Conn
	ctx    context.Context
	closed atomic.Bool
}

// Dial connects to the peer at addr.
// Failures are returned as *ConnectionError.
func Dial(ctx context.Context, addr string, config Config) (*Connection, error) {
	dialer := config.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	d := *dialer
	if config.DialTimeout > 0 {
		d.Timeout = config.DialTimeout
	}
	if config.SingleHop {
		d.Control = singleHopControl
	}

	netConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	return NewConnection(netConn), nil
}

// NewConnection wraps an established stream.
func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		addr: conn.RemoteAddr().String(),
		conn: conn,
	}
}

// Addr returns the remote address.
func (c *Connection) Addr() string {
	return c.addr
}

// Send writes p to the peer in one write.
func (c *Connection) Send(p []byte) error {
	if c.closed.Load() {
		return &TransportError{Op: "send", Err: ErrConnectionClosed}
	}
	if _, err := c.conn.Write(p); err != nil {
		return c.fail("send", err)
	}
	return nil
}

// Receive reads at most len(p) bytes. A short read is not an error.
func (c *Connection) Receive(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, &TransportError{Op: "receive", Err: ErrConnectionClosed}
	}
	n, err := c.conn.Read(p)
	if err != nil {
		return n, c.fail("receive", err)
	}
	return n, nil
}

// Read implements io.Reader.
func (c *Connection) Read(p []byte) (int, error) {
	return c.Receive(p)
}

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// Close closes the socket. Closing an already closed connection is a no-op.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

// bind applies ctx to the I/O of a single operation: its deadline becomes
// the socket deadline and its cancellation aborts blocked reads and writes.
// Without a deadline no timeout applies. The returned func must be called
// once the operation is over.
func (c *Connection) bind(ctx context.Context) (unbind func()) {
	deadline, _ := ctx.Deadline()
	_ = c.conn.SetDeadline(deadline)
	c.ctx = ctx

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(aLongTimeAgo)
	})
	return func() {
		stop()
		c.ctx = nil
	}
}

func (c *Connection) fail(op string, err error) error {
	switch {
	case c.closed.Load():
		err = fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	case c.ctx != nil && c.ctx.Err() != nil:
		err = fmt.Errorf("%w: %w", c.ctx.Err(), err)
	}
	return &TransportError{Op: op, Err: err}
}
