package gpionet

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"
)

var ErrNoDevices = errors.New("gpionet: no devices")

// Fleet routes work to one of several peers by key, for setups where each
// peer drives its own part of a larger installation (one panel of a
// display wall, one bank of relays).
//
// Keys are mapped with rendezvous hashing, so a key keeps its device as
// long as that device is in the fleet, and removing a device only moves
// the keys it owned.
type Fleet struct {
	devices []*Device
}

// NewFleet creates a device per address. Addresses must be unique.
func NewFleet(addrs []string, config DeviceConfig) (*Fleet, error) {
	if len(addrs) == 0 {
		return nil, ErrNoDevices
	}

	seen := make(map[string]struct{}, len(addrs))
	f := &Fleet{devices: make([]*Device, 0, len(addrs))}
	for _, addr := range addrs {
		if _, dup := seen[addr]; dup {
			f.Close()
			return nil, fmt.Errorf("gpionet: duplicate device address %q", addr)
		}
		seen[addr] = struct{}{}

		d, err := NewDevice(addr, config)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.devices = append(f.devices, d)
	}
	return f, nil
}

// Select returns the device responsible for key.
func (f *Fleet) Select(key string) *Device {
	var (
		best      *Device
		bestScore uint64
	)
	for _, d := range f.devices {
		score := xxh3.HashString(d.addr + "\x00" + key)
		if best == nil || score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

// With runs fn on the client of the device responsible for key.
// See Device.With.
func (f *Fleet) With(ctx context.Context, key string, fn func(*Client) error) (FlushResult, error) {
	return f.Select(key).With(ctx, fn)
}

// Devices returns the devices of the fleet, in creation order.
func (f *Fleet) Devices() []*Device {
	return append([]*Device(nil), f.devices...)
}

func (f *Fleet) Stats() []DeviceStats {
	stats := make([]DeviceStats, len(f.devices))
	for i, d := range f.devices {
		stats[i] = d.Stats()
	}
	return stats
}

// LabeledStats returns the client counters of every device, for
// NewCollector.
func (f *Fleet) LabeledStats() []LabeledStats {
	stats := make([]LabeledStats, len(f.devices))
	for i, d := range f.devices {
		stats[i] = LabeledStats{Peer: d.addr, Stats: d.stats.snapshot()}
	}
	return stats
}

func (f *Fleet) Close() {
	for _, d := range f.devices {
		d.Close()
	}
}
