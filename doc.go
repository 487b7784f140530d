// Package gpionet is a client for GPIO and SPI peers driven over TCP.
//
// A peer is a small board running firmware that executes simple commands
// received on a stream socket: set or read pins, write bytes on the SPI
// bus, pause, or wait for a pin to reach a value. Package wire holds the
// binary encoding of those commands.
//
// Write commands are acknowledged with one byte each and are batched: a
// Client queues them and sends the whole queue in one write when Flush is
// called. Read commands flush the queue first, then wait for their reply,
// so the peer always executes commands in call order.
//
//	client, err := gpionet.NewClient(ctx, "192.168.1.50:8080", gpionet.Config{})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	_ = client.SetPin(ctx, 16, 1)
//	_ = client.Delay(ctx, 100*time.Millisecond)
//	_ = client.SetPin(ctx, 16, 0)
//	result, err := client.Flush(ctx)
//
// The firmware serves one connection at a time. Device shares one Client
// between goroutines and reconnects after failures; Fleet spreads work
// over several devices by key.
package gpionet
