package gpionet

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LabeledStats pairs client counters with the peer they belong to.
type LabeledStats struct {
	Peer  string
	Stats ClientStats
}

type collector struct {
	gather func() []LabeledStats

	commands      *prometheus.Desc
	flushes       *prometheus.Desc
	acks          *prometheus.Desc
	reads         *prometheus.Desc
	bytesSent     *prometheus.Desc
	bytesReceived *prometheus.Desc
	errors        *prometheus.Desc
}

// NewCollector returns a prometheus.Collector exporting the counters
// returned by gather, one series per peer. Metric names are prefixed with
// namespace when it is not empty.
//
//	reg.MustRegister(gpionet.NewCollector("gpionet", fleet.LabeledStats))
func NewCollector(namespace string, gather func() []LabeledStats) prometheus.Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, append([]string{"peer"}, labels...), nil)
	}
	return &collector{
		gather:        gather,
		commands:      desc("commands_queued_total", "Write commands queued for the peer."),
		flushes:       desc("flushes_total", "Flushes that sent at least one command."),
		acks:          desc("acks_total", "Acknowledgements received, by result.", "result"),
		reads:         desc("reads_total", "Read commands completed."),
		bytesSent:     desc("sent_bytes_total", "Bytes sent to the peer."),
		bytesReceived: desc("received_bytes_total", "Bytes received from the peer."),
		errors:        desc("transport_errors_total", "Send and receive failures."),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.commands
	ch <- c.flushes
	ch <- c.acks
	ch <- c.reads
	ch <- c.bytesSent
	ch <- c.bytesReceived
	ch <- c.errors
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for _, ls := range c.gather() {
		s := ls.Stats
		counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), append([]string{ls.Peer}, labels...)...)
		}
		counter(c.commands, s.Commands)
		counter(c.flushes, s.Flushes)
		counter(c.acks, s.AcksOK, "success")
		counter(c.acks, s.AcksFailed, "failure")
		counter(c.reads, s.Reads)
		counter(c.bytesSent, s.BytesSent)
		counter(c.bytesReceived, s.BytesReceived)
		counter(c.errors, s.Errors)
	}
}
