package gpionet_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pior/gpionet"
	"github.com/pior/gpionet/wire"
)

// Blink a LED twice in a single round trip, then read a button.
func Example() {
	ctx := context.Background()

	client, err := gpionet.NewClient(ctx, "192.168.1.50:8080", gpionet.Config{})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	for range 2 {
		_ = client.SetPin(ctx, 16, 1)
		_ = client.Delay(ctx, 250*time.Millisecond)
		_ = client.SetPin(ctx, 16, 0)
		_ = client.Delay(ctx, 250*time.Millisecond)
	}

	result, err := client.Flush(ctx)
	if err != nil {
		log.Fatal(err)
	}
	if !result.OK() {
		fmt.Println("commands failed:", result.Failed())
	}

	button, err := client.GetPin(ctx, 21)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("button:", button)
}

// SPI transfers are queued like any other write command. A read flushes
// them first, so the peer sees commands in call order.
func ExampleClient_WriteBytes() {
	ctx := context.Background()

	client, err := gpionet.NewClient(ctx, "192.168.1.50:8080", gpionet.Config{SingleHop: true})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	_ = client.SetPins(ctx, []wire.PinValue{{Pin: 8, Value: 0}, {Pin: 25, Value: 1}})
	_ = client.WriteBytes(ctx, []byte{0x2A, 0x00, 0x00, 0x00, 0xEF})
	_ = client.SetPin(ctx, 8, 1)

	busy, err := client.GetPin(ctx, 24)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("busy:", busy, "last flush ok:", client.LastFlush().OK())
}
