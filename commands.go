package gpionet

import (
	"context"
	"io"
	"time"

	"github.com/pior/gpionet/wire"
)

// SetPin queues a command driving pin to value.
func (c *Client) SetPin(ctx context.Context, pin, value byte) error {
	return c.enqueue(ctx, wire.SetPin(pin, value))
}

// SetPins queues a command driving several pins at once. At most
// wire.MaxEntries pairs fit in one command; more fail with
// *wire.EncodingError and nothing is queued.
func (c *Client) SetPins(ctx context.Context, pairs []wire.PinValue) error {
	return c.enqueue(ctx, wire.SetPins(pairs...))
}

// WriteBytes queues data for the peer to write on its SPI bus.
func (c *Client) WriteBytes(ctx context.Context, data []byte) error {
	return c.enqueue(ctx, wire.WriteBytes(data))
}

// Delay queues a pause of d on the peer before it handles the next command.
// d must be within [0, 65535ms]. Batching a delay between two commands
// saves a network round trip compared to sleeping on the client.
func (c *Client) Delay(ctx context.Context, d time.Duration) error {
	ms, err := wire.DelayMillis(d)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, wire.Delay(ms))
}

// WaitForPin queues a command making the peer poll pin every interval until
// it reads value. The peer handles nothing else meanwhile, so the
// acknowledgements of this command and of every command after it in the
// same flush can be arbitrarily late.
func (c *Client) WaitForPin(ctx context.Context, pin, value byte, interval time.Duration) error {
	ms, err := wire.DelayMillis(interval)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, wire.WaitForPin(pin, value, ms))
}

// GetPin flushes queued commands and returns the current value of pin.
func (c *Client) GetPin(ctx context.Context, pin byte) (byte, error) {
	var value []byte
	err := c.performReadRequest(ctx, wire.GetPin(pin), func(r io.Reader) (err error) {
		value, err = wire.ReadPayload(r, 1)
		return err
	})
	if err != nil {
		return 0, err
	}
	return value[0], nil
}

// GetPins flushes queued commands and returns the values of pins, in the
// same order. At most wire.MaxEntries pins can be read at once.
func (c *Client) GetPins(ctx context.Context, pins []byte) ([]byte, error) {
	cmd := wire.GetPins(pins...)
	var values []byte
	err := c.performReadRequest(ctx, cmd, func(r io.Reader) (err error) {
		values, err = wire.ReadPayload(r, cmd.ResponseLen())
		return err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Name returns the name the peer was configured with.
// Requires a peer speaking API version 2.
func (c *Client) Name(ctx context.Context) (string, error) {
	var name string
	err := c.performReadRequest(ctx, wire.GetName(), func(r io.Reader) (err error) {
		name, err = wire.ReadName(r)
		return err
	})
	return name, err
}

// APIVersion returns the protocol version of the peer firmware.
//
// Version 1 firmware does not know the command but answers any unknown
// command with an acknowledgement byte of 1, so it reports version 1.
func (c *Client) APIVersion(ctx context.Context) (int, error) {
	var version []byte
	err := c.performReadRequest(ctx, wire.GetAPIVersion(), func(r io.Reader) (err error) {
		version, err = wire.ReadPayload(r, 1)
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(version[0]), nil
}
