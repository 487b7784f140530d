package wire

import (
	"strconv"
)

// EncodingError is returned when a command cannot be represented on the
// wire, for example a pin list longer than MaxEntries.
// It is always detected before any byte is written.
type EncodingError struct {
	Op     Opcode
	Reason string
}

func (e *EncodingError) Error() string {
	return "wire: cannot encode " + e.Op.String() + ": " + e.Reason
}

// DecodeError is returned by ReadCommand when the stream does not start
// with a valid command. The stream position is undefined afterwards.
type DecodeError struct {
	Opcode byte
	Reason string
}

func (e *DecodeError) Error() string {
	return "wire: cannot decode opcode " + strconv.Itoa(int(e.Opcode)) + ": " + e.Reason
}
