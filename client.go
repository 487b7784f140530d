package gpionet

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pior/gpionet/internal/logging"
	"github.com/pior/gpionet/wire"
)

// FlushMode selects when queued write commands are sent to the peer.
type FlushMode int

const (
	// Batched queues write commands until Flush is called or a read
	// command forces a flush.
	Batched FlushMode = iota

	// Immediate flushes after every write command.
	Immediate
)

func (m FlushMode) String() string {
	switch m {
	case Batched:
		return "batched"
	case Immediate:
		return "immediate"
	default:
		return fmt.Sprintf("FlushMode(%d)", int(m))
	}
}

// ParseFlushMode parses "batched" or "immediate", case-insensitively.
func ParseFlushMode(s string) (FlushMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "batched", "":
		return Batched, nil
	case "immediate":
		return Immediate, nil
	default:
		return Batched, fmt.Errorf("gpionet: unknown flush mode %q", s)
	}
}

// Config holds configuration for a Client.
type Config struct {
	// FlushMode selects batched (default) or immediate flushing.
	FlushMode FlushMode

	// DialTimeout bounds connection establishment. Zero means no limit
	// beyond the context passed to NewClient.
	DialTimeout time.Duration

	// SingleHop restricts the connection to peers on the local link by
	// sending packets with an IP TTL (or IPv6 hop limit) of 1. Routed
	// peers become unreachable.
	SingleHop bool

	// Dialer is the net.Dialer used to connect.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// Logger receives debug logs for flushes and reads, and warnings for
	// commands the peer rejected during an implicit flush.
	// If nil, nothing is logged.
	Logger *slog.Logger

	// shared across reconnects by Device
	stats *clientStatsCollector
}

// Client drives one peer over one connection.
//
// Write commands (SetPin, SetPins, WriteBytes, Delay, WaitForPin) are
// queued and sent together by Flush. Read commands (GetPin, GetPins, Name,
// APIVersion) flush the queue first, so the peer always sees commands in
// call order.
//
// Calls are serialized by an internal mutex; one flush or read is in flight
// at a time. Close may be called concurrently to abort a blocked call.
type Client struct {
	conn   *Connection
	mode   FlushMode
	logger *slog.Logger
	stats  *clientStatsCollector

	mu        sync.Mutex
	queue     queue
	lastFlush FlushResult
}

// NewClient connects to the peer at addr ("host:port", see DefaultPort).
// A connection failure is returned as *ConnectionError.
func NewClient(ctx context.Context, addr string, config Config) (*Client, error) {
	conn, err := Dial(ctx, addr, config)
	if err != nil {
		return nil, err
	}
	return newClient(conn, config), nil
}

func newClient(conn *Connection, config Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	stats := config.stats
	if stats == nil {
		stats = newClientStatsCollector()
	}
	return &Client{
		conn:   conn,
		mode:   config.FlushMode,
		logger: logger.With("peer", conn.Addr()),
		stats:  stats,
	}
}

// Addr returns the peer address.
func (c *Client) Addr() string {
	return c.conn.Addr()
}

// Pending returns the number of queued write commands not yet flushed.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.pending
}

// LastFlush returns the result of the most recent flush that sent
// commands, whether explicit or triggered by Immediate mode or a read.
func (c *Client) LastFlush() FlushResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFlush
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// Close closes the connection. Queued commands are dropped. A call blocked
// in Flush or a read fails with *TransportError. Closing twice is a no-op.
func (c *Client) Close() error {
	return c.conn.Close()
}

// enqueue adds a write command to the queue, flushing right away in
// Immediate mode. Encoding errors leave the queue untouched.
func (c *Client) enqueue(ctx context.Context, cmd wire.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn.IsClosed() {
		return &TransportError{Op: "send", Err: ErrConnectionClosed}
	}
	if err := c.queue.add(cmd); err != nil {
		return err
	}
	c.stats.recordCommand()

	if c.mode == Immediate {
		result, err := c.flushLocked(ctx)
		if err != nil {
			return err
		}
		if !result.OK() {
			c.logger.Debug("peer rejected command", "op", cmd.Op)
		}
	}
	return nil
}
