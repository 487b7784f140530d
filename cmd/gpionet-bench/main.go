package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pior/gpionet"
	"github.com/pior/gpionet/wire"
)

type Scenario string

const (
	Toggle Scenario = "toggle" // set a pin then read it back, one round trip each
	Batch  Scenario = "batch"  // queue a batch of pin changes, one flush
	SPI    Scenario = "spi"    // queue SPI writes framed by chip-select changes
	All    Scenario = "all"
)

type BenchmarkResult struct {
	Scenario     Scenario
	Duration     time.Duration
	Sessions     int64
	Commands     int64
	Failures     int64
	AvgLatency   time.Duration
	CmdsPerSec   float64
	Correctness  bool
	ErrorMessage string
}

// session runs one unit of work on the client and returns the number of
// commands it sent.
type session func(ctx context.Context, c *gpionet.Client, worker int) (int, error)

func main() {
	var (
		scenario    = flag.String("scenario", "all", "Scenario: toggle, batch, spi, or all")
		duration    = flag.Duration("duration", 5*time.Second, "Duration of each scenario")
		concurrency = flag.Int("concurrency", 1, "Number of concurrent workers sharing the device")
		batchSize   = flag.Int("batch", 32, "Commands per flush for the batch and spi scenarios")
		addr        = flag.String("addr", fmt.Sprintf("localhost:%d", gpionet.DefaultPort), "Peer address")
	)
	flag.Parse()

	fmt.Printf("gpionet Benchmark Tool\n")
	fmt.Printf("======================\n")
	fmt.Printf("Scenario: %s\n", *scenario)
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Batch: %d\n", *batchSize)
	fmt.Printf("Peer: %s\n", *addr)
	fmt.Println()

	device, err := gpionet.NewDevice(*addr, gpionet.DeviceConfig{
		Client: gpionet.Config{DialTimeout: 5 * time.Second},
	})
	if err != nil {
		log.Fatalf("Failed to create device: %v", err)
	}
	defer device.Close()

	fmt.Print("Testing connection...")
	ctx := context.Background()
	var version int
	_, err = device.With(ctx, func(c *gpionet.Client) (err error) {
		version, err = c.APIVersion(ctx)
		return err
	})
	if err != nil {
		fmt.Printf(" failed: %v\n", err)
		fmt.Printf("Make sure a peer is listening on %s\n", *addr)
		os.Exit(1)
	}
	fmt.Printf(" success! (API version %d)\n", version)
	fmt.Println()

	scenarios := []Scenario{Scenario(*scenario)}
	if Scenario(*scenario) == All {
		scenarios = []Scenario{Toggle, Batch, SPI}
	}
	for _, s := range scenarios {
		fmt.Printf("\n--- Running %s benchmark ---\n", s)
		printResult(runScenario(device, s, *duration, *concurrency, *batchSize))
	}

	stats := device.Stats()
	fmt.Printf("Connections: %d created, %d destroyed\n", stats.CreatedConns, stats.DestroyedConns)
	fmt.Printf("Device waits: %d of %d sessions\n", stats.WaitCount, stats.AcquireCount)
}

func runScenario(device *gpionet.Device, scenario Scenario, duration time.Duration, concurrency, batchSize int) *BenchmarkResult {
	switch scenario {
	case Toggle:
		return runBenchmark(device, scenario, duration, concurrency, toggleSession)
	case Batch:
		return runBenchmark(device, scenario, duration, concurrency, batchSession(batchSize))
	case SPI:
		return runBenchmark(device, scenario, duration, concurrency, spiSession(batchSize))
	default:
		return &BenchmarkResult{
			Scenario:     scenario,
			Correctness:  false,
			ErrorMessage: fmt.Sprintf("Unknown scenario: %s", scenario),
		}
	}
}

// Toggle: set a pin owned by the worker, then read it back
func toggleSession(ctx context.Context, c *gpionet.Client, worker int) (int, error) {
	pin := byte(worker % wire.MaxEntries)
	want := byte(time.Now().UnixNano() & 1)
	if err := c.SetPin(ctx, pin, want); err != nil {
		return 0, err
	}
	got, err := c.GetPin(ctx, pin)
	if err != nil {
		return 1, err
	}
	if got != want {
		return 2, fmt.Errorf("pin %d: wrote %d, read %d", pin, want, got)
	}
	return 2, nil
}

// Batch: queue n pin changes, flushed together by the device
func batchSession(n int) session {
	return func(ctx context.Context, c *gpionet.Client, worker int) (int, error) {
		for i := range n {
			if err := c.SetPin(ctx, byte(i%wire.MaxEntries), byte(i&1)); err != nil {
				return i, err
			}
		}
		return n, nil
	}
}

// SPI: chip select low, n-2 transfers, chip select high
func spiSession(n int) session {
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i)
	}
	return func(ctx context.Context, c *gpionet.Client, worker int) (int, error) {
		const chipSelect = 8
		if err := c.SetPin(ctx, chipSelect, 0); err != nil {
			return 0, err
		}
		sent := 1
		for range max(n-2, 1) {
			if err := c.WriteBytes(ctx, payload); err != nil {
				return sent, err
			}
			sent++
		}
		return sent + 1, c.SetPin(ctx, chipSelect, 1)
	}
}

func runBenchmark(device *gpionet.Device, scenario Scenario, duration time.Duration, concurrency int, run session) *BenchmarkResult {
	ctx := context.Background()

	fmt.Printf("Starting %s benchmark with %d workers for %v...\n", scenario, concurrency, duration)

	result := &BenchmarkResult{Scenario: scenario, Correctness: true}
	var sessions, commands, failures int64
	var totalLatency int64
	var errOnce sync.Once

	startTime := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for time.Since(startTime) < duration {
				opStart := time.Now()
				var sent int
				flushed, err := device.With(ctx, func(c *gpionet.Client) (err error) {
					sent, err = run(ctx, c, workerID)
					return err
				})
				latency := time.Since(opStart)

				atomic.AddInt64(&sessions, 1)
				atomic.AddInt64(&commands, int64(sent))
				atomic.AddInt64(&totalLatency, int64(latency))

				if err == nil {
					err = flushed.Err()
				}
				if err != nil {
					atomic.AddInt64(&failures, 1)
					errOnce.Do(func() {
						result.Correctness = false
						result.ErrorMessage = err.Error()
					})
				}
			}
		}(i)
	}

	wg.Wait()

	result.Duration = time.Since(startTime)
	result.Sessions = sessions
	result.Commands = commands
	result.Failures = failures

	if sessions > 0 {
		result.AvgLatency = time.Duration(totalLatency / sessions)
		result.CmdsPerSec = float64(commands) / result.Duration.Seconds()
	}

	return result
}

func printResult(result *BenchmarkResult) {
	fmt.Printf("Scenario: %s\n", result.Scenario)
	fmt.Printf("Duration: %v\n", result.Duration)
	fmt.Printf("Sessions: %d\n", result.Sessions)
	fmt.Printf("Commands: %d\n", result.Commands)
	fmt.Printf("Failures: %d\n", result.Failures)
	if result.Sessions > 0 {
		fmt.Printf("Success Rate: %.2f%%\n", float64(result.Sessions-result.Failures)/float64(result.Sessions)*100)
		fmt.Printf("Commands/sec: %.2f\n", result.CmdsPerSec)
		fmt.Printf("Avg Session Latency: %v\n", result.AvgLatency)
	}
	fmt.Printf("Correctness: %t\n", result.Correctness)
	if result.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", result.ErrorMessage)
	}
	fmt.Println()
}
