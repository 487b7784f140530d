//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package gpionet

import "syscall"

func singleHopControl(network, address string, raw syscall.RawConn) error {
	return ErrSingleHopUnsupported
}
