package gpionet_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pior/gpionet"
	"github.com/sony/gobreaker/v2"
)

// A device reconnects after transport failures. With a circuit breaker it
// stops dialing a peer that keeps failing.
func ExampleNewCircuitBreakerSettings() {
	device, err := gpionet.NewDevice("192.168.1.50:8080", gpionet.DeviceConfig{
		CircuitBreakerSettings: gpionet.NewCircuitBreakerSettings(
			time.Minute,    // interval to reset failure counts
			10*time.Second, // timeout before transitioning to half-open
		),
	})
	if err != nil {
		panic(err)
	}
	defer device.Close()

	ctx := context.Background()

	_, err = device.With(ctx, func(c *gpionet.Client) error {
		return c.SetPin(ctx, 16, 1)
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		fmt.Println("peer unavailable")
	}

	stats := device.Stats()
	fmt.Printf("Peer: %s, Circuit: %s\n", stats.Addr, stats.CircuitBreakerState)
}
