package gpionet

import (
	"context"
	"io"
	"slices"

	"github.com/pior/gpionet/wire"
)

// FlushResult holds one entry per flushed command, in submission order.
// An entry is true when the peer acknowledged the command with
// wire.AckSuccess.
type FlushResult []bool

// OK reports whether every command succeeded.
func (r FlushResult) OK() bool {
	return !slices.Contains(r, false)
}

// Failed returns the positions of the commands that failed.
func (r FlushResult) Failed() []int {
	var failed []int
	for i, ok := range r {
		if !ok {
			failed = append(failed, i)
		}
	}
	return failed
}

// Err returns a *ProtocolFailure listing the failed commands, or nil.
func (r FlushResult) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &ProtocolFailure{Failed: failed, Total: len(r)}
}

// Flush sends every queued write command in a single write, then waits for
// one acknowledgement byte per command. It blocks until all of them have
// arrived, for as long as a WAIT_FOR_PIN on the peer takes, unless ctx ends
// first.
//
// Commands the peer rejected are reported in the result, not as an error.
// A *TransportError leaves the queue intact. Flushing an empty queue does
// no I/O and returns a nil result.
func (c *Client) Flush(ctx context.Context) (FlushResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked(ctx)
}

func (c *Client) flushLocked(ctx context.Context) (FlushResult, error) {
	if c.queue.pending == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unbind := c.conn.bind(ctx)
	defer unbind()

	count, size := c.queue.pending, c.queue.len()
	c.logger.Debug("flushing", "commands", count, "bytes", size)

	if err := c.conn.Send(c.queue.bytes()); err != nil {
		c.stats.recordError()
		return nil, err
	}
	c.stats.recordSent(size)

	acks, err := wire.ReadAcks(c.conn, count)
	if err != nil {
		c.stats.recordError()
		return nil, transportError("receive", err)
	}
	c.stats.recordReceived(count)

	result := FlushResult(acks)
	c.stats.recordFlush(result)
	c.queue.reset()
	c.lastFlush = result
	return result, nil
}

// performReadRequest flushes pending writes, sends cmd on its own and
// reads the reply with read. Commands rejected during the flush are
// logged; they do not fail the read.
func (c *Client) performReadRequest(ctx context.Context, cmd wire.Command, read func(r io.Reader) error) error {
	encoded, err := wire.Encode(cmd)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn.IsClosed() {
		return &TransportError{Op: "send", Err: ErrConnectionClosed}
	}

	result, err := c.flushLocked(ctx)
	if err != nil {
		return err
	}
	if failed := result.Failed(); len(failed) > 0 {
		c.logger.Warn("peer rejected queued commands", "failed", failed, "flushed", len(result))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	unbind := c.conn.bind(ctx)
	defer unbind()

	c.logger.Debug("read request", "op", cmd.Op)
	if err := c.conn.Send(encoded); err != nil {
		c.stats.recordError()
		return err
	}
	c.stats.recordSent(len(encoded))

	counter := &countingReader{r: c.conn}
	if err := read(counter); err != nil {
		c.stats.recordError()
		return transportError("receive", err)
	}
	c.stats.recordRead(counter.n)
	return nil
}

type countingReader struct {
	r io.Reader
	n int
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.n += n
	return n, err
}
