package gpionet

import (
	"context"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
	"github.com/sony/gobreaker/v2"
)

// DeviceConfig holds configuration for a Device.
type DeviceConfig struct {
	// Client configures the connections opened by the device.
	Client Config

	// CircuitBreakerSettings enables a circuit breaker around each session.
	// If nil, no circuit breaker is used. See NewCircuitBreakerSettings.
	CircuitBreakerSettings *gobreaker.Settings

	// for testing purposes only
	constructor func(ctx context.Context) (*Client, error)
}

// Device coordinates access to one peer. The peer firmware serves a single
// connection at a time and refuses others, so a Device owns at most one
// Client and hands it to one caller at a time.
//
// The connection is opened on first use and reopened after a transport
// failure. Device is safe for concurrent use.
type Device struct {
	addr    string
	pool    *puddle.Pool[*Client]
	breaker *gobreaker.CircuitBreaker[FlushResult]
	stats   *clientStatsCollector

	createdConns   atomic.Int64
	destroyedConns atomic.Int64
}

// NewDevice creates a device for the peer at addr. No connection is opened
// until the first call to With.
func NewDevice(addr string, config DeviceConfig) (*Device, error) {
	d := &Device{
		addr:    addr,
		breaker: newCircuitBreaker(addr, config.CircuitBreakerSettings),
		stats:   newClientStatsCollector(),
	}

	clientConfig := config.Client
	clientConfig.stats = d.stats

	constructor := config.constructor
	if constructor == nil {
		constructor = func(ctx context.Context) (*Client, error) {
			return NewClient(ctx, addr, clientConfig)
		}
	}

	pool, err := puddle.NewPool(&puddle.Config[*Client]{
		Constructor: func(ctx context.Context) (*Client, error) {
			client, err := constructor(ctx)
			if err == nil {
				d.createdConns.Add(1)
			}
			return client, err
		},
		Destructor: func(client *Client) {
			d.destroyedConns.Add(1)
			_ = client.Close()
		},
		MaxSize: 1,
	})
	if err != nil {
		return nil, err
	}
	d.pool = pool
	return d, nil
}

// Addr returns the peer address.
func (d *Device) Addr() string {
	return d.addr
}

// With runs fn with exclusive use of the device's client, waiting for
// other callers to finish first. Commands fn leaves queued are flushed
// before the client is handed to the next caller, and that flush result
// is returned.
//
// After a transport or connection error the client is closed and the next
// caller reconnects. With a circuit breaker configured, With fails fast
// with gobreaker.ErrOpenState while the breaker is open.
func (d *Device) With(ctx context.Context, fn func(*Client) error) (FlushResult, error) {
	if d.breaker == nil {
		return d.with(ctx, fn)
	}
	return d.breaker.Execute(func() (FlushResult, error) {
		return d.with(ctx, fn)
	})
}

func (d *Device) with(ctx context.Context, fn func(*Client) error) (FlushResult, error) {
	resource, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	client := resource.Value()

	fnErr := fn(client)
	if ShouldReconnect(fnErr) {
		resource.Destroy()
		return nil, fnErr
	}

	result, err := client.Flush(ctx)
	if err != nil {
		if ShouldReconnect(err) {
			resource.Destroy()
		} else {
			resource.Release()
		}
		if fnErr != nil {
			return nil, fnErr
		}
		return nil, err
	}

	resource.Release()
	return result, fnErr
}

// DeviceStats contains stats for a single device.
type DeviceStats struct {
	Addr string

	Connected      bool  // a client is open
	InUse          bool  // a caller holds the client
	AcquireCount   int64 // With calls that obtained the client
	WaitCount      int64 // With calls that had to wait or connect
	CanceledCount  int64 // With calls whose context ended while waiting
	CreatedConns   int64
	DestroyedConns int64

	CircuitBreakerState  gobreaker.State
	CircuitBreakerCounts gobreaker.Counts

	Client ClientStats
}

func (d *Device) Stats() DeviceStats {
	s := d.pool.Stat()
	stats := DeviceStats{
		Addr:           d.addr,
		Connected:      s.TotalResources() > 0,
		InUse:          s.AcquiredResources() > 0,
		AcquireCount:   s.AcquireCount(),
		WaitCount:      s.EmptyAcquireCount(),
		CanceledCount:  s.CanceledAcquireCount(),
		CreatedConns:   d.createdConns.Load(),
		DestroyedConns: d.destroyedConns.Load(),
		Client:         d.stats.snapshot(),
	}
	if d.breaker != nil {
		stats.CircuitBreakerState = d.breaker.State()
		stats.CircuitBreakerCounts = d.breaker.Counts()
	}
	return stats
}

// Close closes the device connection, waiting for a caller holding it to
// finish.
func (d *Device) Close() {
	d.pool.Close()
}
