package gpionet

import (
	"sync/atomic"
)

// ClientStats contains counters about client operations.
// All fields are safe for concurrent access.
//
// For Prometheus integration, see NewCollector.
type ClientStats struct {
	Commands      uint64 // Write commands queued
	Flushes       uint64 // Flushes that sent at least one command
	AcksOK        uint64 // Commands acknowledged with success
	AcksFailed    uint64 // Commands acknowledged with failure
	Reads         uint64 // Read commands completed
	BytesSent     uint64
	BytesReceived uint64
	Errors        uint64 // Transport errors
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - the client updates its own stats.
type clientStatsCollector struct {
	stats ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{}
}

func (c *clientStatsCollector) recordCommand() {
	atomic.AddUint64(&c.stats.Commands, 1)
}

func (c *clientStatsCollector) recordFlush(result FlushResult) {
	atomic.AddUint64(&c.stats.Flushes, 1)
	failed := uint64(len(result.Failed()))
	atomic.AddUint64(&c.stats.AcksOK, uint64(len(result))-failed)
	atomic.AddUint64(&c.stats.AcksFailed, failed)
}

func (c *clientStatsCollector) recordRead(received int) {
	atomic.AddUint64(&c.stats.Reads, 1)
	c.recordReceived(received)
}

func (c *clientStatsCollector) recordSent(n int) {
	atomic.AddUint64(&c.stats.BytesSent, uint64(n))
}

func (c *clientStatsCollector) recordReceived(n int) {
	atomic.AddUint64(&c.stats.BytesReceived, uint64(n))
}

func (c *clientStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Commands:      atomic.LoadUint64(&c.stats.Commands),
		Flushes:       atomic.LoadUint64(&c.stats.Flushes),
		AcksOK:        atomic.LoadUint64(&c.stats.AcksOK),
		AcksFailed:    atomic.LoadUint64(&c.stats.AcksFailed),
		Reads:         atomic.LoadUint64(&c.stats.Reads),
		BytesSent:     atomic.LoadUint64(&c.stats.BytesSent),
		BytesReceived: atomic.LoadUint64(&c.stats.BytesReceived),
		Errors:        atomic.LoadUint64(&c.stats.Errors),
	}
}
