package wire

import "strconv"

// Opcode selects the command encoded in a frame.
type Opcode byte

// Opcodes understood by the peer. The set is fixed by the firmware.
const (
	OpSetPinSingle  Opcode = 0
	OpSetPinMulti   Opcode = 1
	OpWriteBytes    Opcode = 2
	OpGetPinSingle  Opcode = 3
	OpGetPinMulti   Opcode = 4
	OpDelay         Opcode = 5
	OpWaitForPin    Opcode = 6
	OpGetName       Opcode = 7
	OpGetAPIVersion Opcode = 8
)

const (
	// AckSuccess is the acknowledgement byte of a successful write-type command.
	AckSuccess byte = 0x01

	// MaxEntries bounds the pin count of SET_PIN_MULTI and GET_PIN_MULTI,
	// whose count field is a single byte.
	MaxEntries = 255

	// MaxDelayMillis is the largest delay a 2-byte delay field can carry.
	MaxDelayMillis = 65535

	// APIVersion is the protocol revision implemented by this package.
	// Version 2 introduced GET_NAME and GET_API_VERSION.
	APIVersion = 2
)

var opcodeNames = [...]string{
	OpSetPinSingle:  "SET_PIN_SINGLE",
	OpSetPinMulti:   "SET_PIN_MULTI",
	OpWriteBytes:    "WRITE_BYTES",
	OpGetPinSingle:  "GET_PIN_SINGLE",
	OpGetPinMulti:   "GET_PIN_MULTI",
	OpDelay:         "DELAY",
	OpWaitForPin:    "WAIT_FOR_PIN",
	OpGetName:       "GET_NAME",
	OpGetAPIVersion: "GET_API_VERSION",
}

func (o Opcode) String() string {
	if o.Valid() {
		return opcodeNames[o]
	}
	return "Opcode(" + strconv.Itoa(int(o)) + ")"
}

// Valid reports whether o is a known opcode.
func (o Opcode) Valid() bool {
	return int(o) < len(opcodeNames)
}

// IsWrite reports whether the peer answers o with a single acknowledgement
// byte. Write-type commands can be queued and flushed in batches.
func (o Opcode) IsWrite() bool {
	switch o {
	case OpSetPinSingle, OpSetPinMulti, OpWriteBytes, OpDelay, OpWaitForPin:
		return true
	}
	return false
}
