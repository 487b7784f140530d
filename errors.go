package gpionet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pior/gpionet/wire"
)

var (
	ErrConnectionClosed = errors.New("gpionet: connection closed")

	// ErrSingleHopUnsupported is wrapped by the ConnectionError returned when
	// Config.SingleHop is requested on a platform without IP TTL control.
	ErrSingleHopUnsupported = errors.New("gpionet: single-hop connections not supported on this platform")
)

// ConnectionError is returned when the connection to the peer cannot be
// established. It is never retried automatically.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return "gpionet: connect " + e.Addr + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransportError is returned when sending to or receiving from the peer
// fails mid-operation. The outgoing queue is left as it was, so the caller
// may retry the flush or close the client.
type TransportError struct {
	Op  string // send or receive
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gpionet: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolFailure describes write commands the peer acknowledged with a
// failure byte. The protocol carries no detail beyond success or failure.
//
// Operations never return it: per-command outcomes are data, see
// FlushResult. FlushResult.Err builds one for callers wanting an error.
type ProtocolFailure struct {
	// Failed holds the positions, in submission order, of the failed commands.
	Failed []int
	Total  int
}

func (e *ProtocolFailure) Error() string {
	idx := make([]string, len(e.Failed))
	for i, n := range e.Failed {
		idx[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("gpionet: %d of %d commands failed (positions %s)", len(e.Failed), e.Total, strings.Join(idx, ","))
}

// ShouldReconnect reports whether the connection that produced err is no
// longer usable. Transport and connection errors leave the byte stream in
// an unknown state; encoding errors happen before any I/O.
//
// Unlike a protocol parser, a caller-supplied function can fail for any
// reason, so unknown errors are treated as leaving the connection intact.
func ShouldReconnect(err error) bool {
	if err == nil {
		return false
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}

	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsEncodingError reports whether err is a *wire.EncodingError, meaning the
// command was rejected before anything was sent.
func IsEncodingError(err error) bool {
	var encErr *wire.EncodingError
	return errors.As(err, &encErr)
}

func transportError(op string, err error) error {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
