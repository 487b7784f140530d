package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/pior/gpionet"
	"github.com/pior/gpionet/discovery"
	"github.com/pior/gpionet/internal/logging"
	"github.com/pior/gpionet/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Printf("Configuration error: %v\n", err)
		os.Exit(2)
	}

	level, _ := logging.ParseLevel(cfg.logLevel)
	logger := logging.New(cfg.logFormat, level, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	addr := cfg.addr
	if addr == "" {
		addr, err = discoverPeer(ctx, cfg.browseFor)
		if err != nil {
			fmt.Printf("Discovery failed: %v\n", err)
			os.Exit(1)
		}
	}

	client, err := gpionet.NewClient(ctx, peerAddr(addr), gpionet.Config{
		FlushMode:   cfg.flushMode,
		DialTimeout: cfg.dialTimeout,
		SingleHop:   cfg.singleHop,
		Logger:      logger,
	})
	if err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if cfg.metricsAddr != "" {
		srv := startMetrics(cfg.metricsAddr, client, logger)
		defer srv.Close()
	}

	fmt.Println("gpionet CLI")
	fmt.Println("===========")
	fmt.Printf("Connected to %s (%s mode)\n", client.Addr(), cfg.flushMode)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	s := &session{client: client, out: os.Stdout}
	if err := s.run(ctx, os.Stdin, true); err != nil {
		fmt.Printf("Error reading input: %v\n", err)
	}
}

func discoverPeer(ctx context.Context, timeout time.Duration) (string, error) {
	fmt.Printf("Browsing %s for %v...\n", discovery.ServiceType, timeout)
	peers, err := discovery.Browse(ctx, timeout)
	if err != nil {
		return "", err
	}
	if len(peers) == 0 {
		return "", errors.New("no peer found")
	}
	for _, p := range peers {
		fmt.Printf("  %s at %s %v\n", p.Instance, p.Addr, p.Text)
	}
	return peers[0].Addr, nil
}

func startMetrics(addr string, client *gpionet.Client, logger *slog.Logger) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(gpionet.NewCollector("gpionet", func() []gpionet.LabeledStats {
		return []gpionet.LabeledStats{{Peer: client.Addr(), Stats: client.Stats()}}
	}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

type session struct {
	client *gpionet.Client
	out    io.Writer
}

// run executes commands read line by line from in until quit or EOF.
func (s *session) run(ctx context.Context, in io.Reader, prompt bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprint(s.out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		if quit := s.execute(ctx, scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// execute runs a single command line and reports whether the session ends.
func (s *session) execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "set":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "Usage: set <pin> <value>")
			return false
		}
		pin, value, err := parsePinValue(args[0], args[1])
		if err != nil {
			fmt.Fprintf(s.out, "Invalid argument: %v\n", err)
			return false
		}
		s.queued(s.client.SetPin(ctx, pin, value))

	case "sets":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "Usage: sets <pin>=<value> ...")
			return false
		}
		pairs := make([]wire.PinValue, 0, len(args))
		for _, arg := range args {
			p, v, ok := strings.Cut(arg, "=")
			if !ok {
				fmt.Fprintf(s.out, "Invalid pair %q, expected <pin>=<value>\n", arg)
				return false
			}
			pin, value, err := parsePinValue(p, v)
			if err != nil {
				fmt.Fprintf(s.out, "Invalid argument: %v\n", err)
				return false
			}
			pairs = append(pairs, wire.PinValue{Pin: pin, Value: value})
		}
		s.queued(s.client.SetPins(ctx, pairs))

	case "get":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "Usage: get <pin>")
			return false
		}
		pin, err := parseByte(args[0])
		if err != nil {
			fmt.Fprintf(s.out, "Invalid pin: %v\n", err)
			return false
		}
		start := time.Now()
		value, err := s.client.GetPin(ctx, pin)
		if err != nil {
			s.failed(err, time.Since(start))
			return false
		}
		fmt.Fprintf(s.out, "Pin %d: %d (took %v)\n", pin, value, time.Since(start))

	case "gets":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "Usage: gets <pin> ...")
			return false
		}
		pins := make([]byte, len(args))
		for i, arg := range args {
			pin, err := parseByte(arg)
			if err != nil {
				fmt.Fprintf(s.out, "Invalid pin: %v\n", err)
				return false
			}
			pins[i] = pin
		}
		start := time.Now()
		values, err := s.client.GetPins(ctx, pins)
		if err != nil {
			s.failed(err, time.Since(start))
			return false
		}
		for i, pin := range pins {
			fmt.Fprintf(s.out, "  Pin %d: %d\n", pin, values[i])
		}
		fmt.Fprintf(s.out, "Read %d pins (took %v)\n", len(pins), time.Since(start))

	case "write":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "Usage: write <hex bytes>")
			return false
		}
		data, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
		if err != nil {
			fmt.Fprintf(s.out, "Invalid hex: %v\n", err)
			return false
		}
		s.queued(s.client.WriteBytes(ctx, data))

	case "delay":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "Usage: delay <duration>")
			return false
		}
		d, err := time.ParseDuration(args[0])
		if err != nil {
			fmt.Fprintf(s.out, "Invalid duration: %v\n", err)
			return false
		}
		s.queued(s.client.Delay(ctx, d))

	case "wait":
		if len(args) < 2 || len(args) > 3 {
			fmt.Fprintln(s.out, "Usage: wait <pin> <value> [interval]")
			return false
		}
		pin, value, err := parsePinValue(args[0], args[1])
		if err != nil {
			fmt.Fprintf(s.out, "Invalid argument: %v\n", err)
			return false
		}
		interval := 10 * time.Millisecond
		if len(args) == 3 {
			if interval, err = time.ParseDuration(args[2]); err != nil {
				fmt.Fprintf(s.out, "Invalid interval: %v\n", err)
				return false
			}
		}
		s.queued(s.client.WaitForPin(ctx, pin, value, interval))

	case "flush":
		start := time.Now()
		result, err := s.client.Flush(ctx)
		if err != nil {
			s.failed(err, time.Since(start))
			return false
		}
		s.printResult(result, time.Since(start))

	case "name":
		start := time.Now()
		name, err := s.client.Name(ctx)
		if err != nil {
			s.failed(err, time.Since(start))
			return false
		}
		fmt.Fprintf(s.out, "Name: %s (took %v)\n", name, time.Since(start))

	case "version":
		start := time.Now()
		version, err := s.client.APIVersion(ctx)
		if err != nil {
			s.failed(err, time.Since(start))
			return false
		}
		fmt.Fprintf(s.out, "API version: %d (took %v)\n", version, time.Since(start))

	case "stats":
		s.printStats()

	case "help":
		fmt.Fprintln(s.out, "Commands:")
		fmt.Fprintln(s.out, "  set <pin> <value>            - Queue a pin change")
		fmt.Fprintln(s.out, "  sets <pin>=<value> ...       - Queue several pin changes in one command")
		fmt.Fprintln(s.out, "  get <pin>                    - Read a pin (flushes the queue)")
		fmt.Fprintln(s.out, "  gets <pin> ...               - Read several pins (flushes the queue)")
		fmt.Fprintln(s.out, "  write <hex>                  - Queue bytes for the SPI bus")
		fmt.Fprintln(s.out, "  delay <duration>             - Queue a pause on the peer")
		fmt.Fprintln(s.out, "  wait <pin> <value> [every]   - Queue a wait until the pin has the value")
		fmt.Fprintln(s.out, "  flush                        - Send queued commands and show results")
		fmt.Fprintln(s.out, "  name                         - Show the peer name")
		fmt.Fprintln(s.out, "  version                      - Show the peer API version")
		fmt.Fprintln(s.out, "  stats                        - Show client statistics")
		fmt.Fprintln(s.out, "  quit                         - Exit the CLI")

	case "quit", "exit":
		fmt.Fprintln(s.out, "Goodbye!")
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s. Type 'help' for available commands.\n", command)
	}
	return false
}

func (s *session) queued(err error) {
	if err != nil {
		s.failed(err, 0)
		return
	}
	if pending := s.client.Pending(); pending > 0 {
		fmt.Fprintf(s.out, "Queued (%d pending)\n", pending)
		return
	}
	s.printResult(s.client.LastFlush(), 0)
}

func (s *session) failed(err error, took time.Duration) {
	fmt.Fprintf(s.out, "Error: %v (took %v)\n", err, took)
	if gpionet.ShouldReconnect(err) {
		fmt.Fprintln(s.out, "The connection is no longer usable, restart the CLI to reconnect.")
	}
}

func (s *session) printResult(result gpionet.FlushResult, took time.Duration) {
	if len(result) == 0 {
		fmt.Fprintln(s.out, "Nothing to flush")
		return
	}
	if result.OK() {
		fmt.Fprintf(s.out, "%d commands succeeded (took %v)\n", len(result), took)
		return
	}
	fmt.Fprintf(s.out, "%v (took %v)\n", result.Err(), took)
}

func (s *session) printStats() {
	stats := s.client.Stats()
	fmt.Fprintf(s.out, "Peer %s:\n", s.client.Addr())
	fmt.Fprintf(s.out, "  Pending: %d\n", s.client.Pending())
	fmt.Fprintf(s.out, "  Commands: %d\n", stats.Commands)
	fmt.Fprintf(s.out, "  Flushes: %d\n", stats.Flushes)
	fmt.Fprintf(s.out, "  Acks: %d ok, %d failed\n", stats.AcksOK, stats.AcksFailed)
	fmt.Fprintf(s.out, "  Reads: %d\n", stats.Reads)
	fmt.Fprintf(s.out, "  Bytes: %d sent, %d received\n", stats.BytesSent, stats.BytesReceived)
	fmt.Fprintf(s.out, "  Errors: %d\n", stats.Errors)
}

func parseByte(s string) (byte, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, err
	}
	return byte(n), nil
}

func parsePinValue(pin, value string) (byte, byte, error) {
	p, err := parseByte(pin)
	if err != nil {
		return 0, 0, fmt.Errorf("pin: %w", err)
	}
	v, err := parseByte(value)
	if err != nil {
		return 0, 0, fmt.Errorf("value: %w", err)
	}
	return p, v, nil
}
