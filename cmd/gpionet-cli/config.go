package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pior/gpionet"
	"github.com/pior/gpionet/internal/logging"
)

type cliConfig struct {
	addr        string
	flushMode   gpionet.FlushMode
	singleHop   bool
	dialTimeout time.Duration
	discover    bool
	browseFor   time.Duration
	metricsAddr string
	logLevel    string
	logFormat   string
}

func defaultConfig() cliConfig {
	return cliConfig{
		flushMode:   gpionet.Batched,
		dialTimeout: 5 * time.Second,
		browseFor:   3 * time.Second,
		logLevel:    "info",
		logFormat:   "text",
	}
}

type fileConfig struct {
	Addr        string `toml:"addr"`
	FlushMode   string `toml:"flush_mode"`
	SingleHop   bool   `toml:"single_hop"`
	DialTimeout string `toml:"dial_timeout"`
	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`
}

// parseConfig builds the configuration from defaults, then the file named
// by -config, then flags set on the command line.
func parseConfig(args []string, output io.Writer) (cliConfig, error) {
	fs := flag.NewFlagSet("gpionet-cli", flag.ContinueOnError)
	fs.SetOutput(output)

	configPath := fs.String("config", "", "TOML configuration file")
	addr := fs.String("addr", "", fmt.Sprintf("Peer address host:port (port defaults to %d)", gpionet.DefaultPort))
	immediate := fs.Bool("immediate", false, "Flush after every write command")
	singleHop := fs.Bool("single-hop", false, "Only reach peers on the local link (IP TTL 1)")
	dialTimeout := fs.Duration("dial-timeout", 5*time.Second, "Connection timeout")
	discover := fs.Bool("discover", false, "Find the peer with mDNS when no address is given")
	browseFor := fs.Duration("discover-timeout", 3*time.Second, "How long to wait for mDNS answers")
	metricsAddr := fs.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logLevel := fs.String("log-level", "info", "Log level: debug|info|warn|error")
	logFormat := fs.String("log-format", "text", "Log format: text|json")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadConfigFile(*configPath, cfg); err != nil {
			return cliConfig{}, err
		}
	}

	// flags explicitly set win over the file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.addr = *addr
		case "immediate":
			if *immediate {
				cfg.flushMode = gpionet.Immediate
			} else {
				cfg.flushMode = gpionet.Batched
			}
		case "single-hop":
			cfg.singleHop = *singleHop
		case "dial-timeout":
			cfg.dialTimeout = *dialTimeout
		case "discover":
			cfg.discover = *discover
		case "discover-timeout":
			cfg.browseFor = *browseFor
		case "metrics-addr":
			cfg.metricsAddr = *metricsAddr
		case "log-level":
			cfg.logLevel = *logLevel
		case "log-format":
			cfg.logFormat = *logFormat
		}
	})

	if err := cfg.validate(); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg cliConfig) (cliConfig, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cliConfig{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("addr") {
		cfg.addr = strings.TrimSpace(raw.Addr)
	}

	if meta.IsDefined("flush_mode") {
		mode, err := gpionet.ParseFlushMode(raw.FlushMode)
		if err != nil {
			return cliConfig{}, fmt.Errorf("parse flush_mode: %w", err)
		}
		cfg.flushMode = mode
	}

	if meta.IsDefined("single_hop") {
		cfg.singleHop = raw.SingleHop
	}

	if meta.IsDefined("dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DialTimeout))
		if err != nil {
			return cliConfig{}, fmt.Errorf("parse dial_timeout: %w", err)
		}
		cfg.dialTimeout = d
	}

	if meta.IsDefined("metrics_addr") {
		cfg.metricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("log_level") {
		cfg.logLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("log_format") {
		cfg.logFormat = strings.TrimSpace(raw.LogFormat)
	}

	return cfg, nil
}

func (c cliConfig) validate() error {
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	if _, err := logging.ParseLevel(c.logLevel); err != nil {
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.dialTimeout < 0 {
		return fmt.Errorf("dial-timeout must be >= 0")
	}
	if c.addr == "" && !c.discover {
		return fmt.Errorf("no peer address: set -addr, addr in the config file, or -discover")
	}
	return nil
}

// peerAddr appends the default port when addr has none.
func peerAddr(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), strconv.Itoa(gpionet.DefaultPort))
}
