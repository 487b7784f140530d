//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package gpionet

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// singleHopControl limits outgoing packets to one hop (IPv4 TTL or IPv6
// unicast hop limit of 1), so only peers on the local link are reachable.
func singleHopControl(network, address string, raw syscall.RawConn) error {
	var sockErr error
	err := raw.Control(func(fd uintptr) {
		if network == "tcp6" {
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_UNICAST_HOPS, 1)
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TTL, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
