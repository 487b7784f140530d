// Package wire implements the gpionet binary protocol spoken between a
// controller and an embedded GPIO/SPI peer.
//
// The package only turns commands into bytes and bytes back into commands
// and replies. It owns no connection: callers hand it an io.Writer or an
// io.Reader and decide how batching, flushing and reconnecting work.
//
// # Wire format
//
// Every command starts with a single opcode byte followed by an
// opcode-specific payload. Multi-byte integers are big-endian.
//
//	SET_PIN_SINGLE  0  pin(1) value(1)
//	SET_PIN_MULTI   1  count(1) count*(pin(1) value(1))
//	WRITE_BYTES     2  length(4) data(length)
//	GET_PIN_SINGLE  3  pin(1)
//	GET_PIN_MULTI   4  count(1) count*pin(1)
//	DELAY           5  delayMs(2)
//	WAIT_FOR_PIN    6  pin(1) value(1) delayMs(2)
//	GET_NAME        7  (none)
//	GET_API_VERSION 8  (none)
//
// Write-type commands (SET_PIN_*, WRITE_BYTES, DELAY, WAIT_FOR_PIN) are
// answered with exactly one acknowledgement byte, AckSuccess on success
// and anything else on failure. Read-type commands are answered with a
// payload whose length the caller knows in advance (see
// Command.ResponseLen), except GET_NAME whose reply is length-prefixed.
// Replies arrive in the order the commands were sent.
//
// # Encoding
//
//	buf, err := wire.Encode(wire.SetPins(
//	    wire.PinValue{Pin: 16, Value: 1},
//	    wire.PinValue{Pin: 18, Value: 0},
//	))
//	// buf == []byte{1, 2, 16, 1, 18, 0}
//
// Commands that exceed a field bound (more than 255 pins, a delay above
// 65535ms) fail with *EncodingError. Nothing is truncated.
//
// # Reading replies
//
// ReadAcks, ReadPayload and ReadName read exactly the bytes they need and
// keep reading when the stream delivers fewer bytes than requested.
//
//	acks, err := wire.ReadAcks(conn, 3)
//
// # Thread Safety
//
// All functions are stateless. Command values must not be mutated while
// being encoded.
package wire
