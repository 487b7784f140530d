// Package discovery finds gpionet peers advertised over mDNS/DNS-SD.
//
// Peer firmware is not required to advertise itself; peers that do use the
// ServiceType service in the local domain.
package discovery

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	ServiceType = "_gpionet._tcp"
	Domain      = "local."
)

// Peer is an advertised gpionet peer.
type Peer struct {
	Instance string
	Addr     string // host:port, dialable by gpionet.NewClient
	Text     []string
}

// Browse collects peers answering within timeout, or until ctx ends.
// Peers are returned sorted by instance name.
func Browse(ctx context.Context, timeout time.Duration) ([]Peer, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	seen := map[string]Peer{}
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return sortedPeers(seen), nil
			}
			if peer, ok := peerFromEntry(entry); ok {
				seen[peer.Instance] = peer
			}
		case <-ctx.Done():
			return sortedPeers(seen), nil
		}
	}
}

func peerFromEntry(entry *zeroconf.ServiceEntry) (Peer, bool) {
	if entry == nil {
		return Peer{}, false
	}
	var ip net.IP
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0]
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0]
	default:
		return Peer{}, false
	}
	return Peer{
		Instance: entry.Instance,
		Addr:     net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port)),
		Text:     entry.Text,
	}, true
}

func sortedPeers(seen map[string]Peer) []Peer {
	peers := make([]Peer, 0, len(seen))
	for _, p := range seen {
		peers = append(peers, p)
	}
	slices.SortFunc(peers, func(a, b Peer) int {
		return strings.Compare(a.Instance, b.Instance)
	})
	return peers
}
