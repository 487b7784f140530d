package wire

import (
	"time"
)

// PinValue pairs a pin number with the value to drive it to.
type PinValue struct {
	Pin   byte
	Value byte
}

// Command is a single protocol command.
// Which fields are meaningful depends on Op:
//
//   - OpSetPinSingle: Pin, Value
//   - OpSetPinMulti: Pairs
//   - OpWriteBytes: Data
//   - OpGetPinSingle: Pin
//   - OpGetPinMulti: Pins
//   - OpDelay: DelayMillis
//   - OpWaitForPin: Pin, Value, DelayMillis
//   - OpGetName, OpGetAPIVersion: none
type Command struct {
	Op          Opcode
	Pin         byte
	Value       byte
	Pairs       []PinValue
	Pins        []byte
	Data        []byte
	DelayMillis uint16
}

func SetPin(pin, value byte) Command {
	return Command{Op: OpSetPinSingle, Pin: pin, Value: value}
}

func SetPins(pairs ...PinValue) Command {
	return Command{Op: OpSetPinMulti, Pairs: pairs}
}

func WriteBytes(data []byte) Command {
	return Command{Op: OpWriteBytes, Data: data}
}

func GetPin(pin byte) Command {
	return Command{Op: OpGetPinSingle, Pin: pin}
}

func GetPins(pins ...byte) Command {
	return Command{Op: OpGetPinMulti, Pins: pins}
}

func Delay(ms uint16) Command {
	return Command{Op: OpDelay, DelayMillis: ms}
}

// WaitForPin asks the peer to poll pin every intervalMs until it reads value.
// The peer processes nothing else meanwhile.
func WaitForPin(pin, value byte, intervalMs uint16) Command {
	return Command{Op: OpWaitForPin, Pin: pin, Value: value, DelayMillis: intervalMs}
}

func GetName() Command {
	return Command{Op: OpGetName}
}

func GetAPIVersion() Command {
	return Command{Op: OpGetAPIVersion}
}

// ResponseLen returns the number of reply bytes the peer sends for c.
// Write-type commands reply with one acknowledgement byte. GET_NAME
// replies with a one-byte length prefix followed by that many bytes; only
// the prefix is counted here.
func (c Command) ResponseLen() int {
	switch c.Op {
	case OpGetPinMulti:
		return len(c.Pins)
	default:
		return 1
	}
}

// EncodedLen returns the size of c on the wire.
func (c Command) EncodedLen() int {
	switch c.Op {
	case OpSetPinSingle:
		return 3
	case OpSetPinMulti:
		return 2 + 2*len(c.Pairs)
	case OpWriteBytes:
		return 5 + len(c.Data)
	case OpGetPinSingle:
		return 2
	case OpGetPinMulti:
		return 2 + len(c.Pins)
	case OpDelay:
		return 3
	case OpWaitForPin:
		return 5
	default:
		return 1
	}
}

// DelayMillis converts d to the 2-byte millisecond field used by DELAY and
// WAIT_FOR_PIN. Durations are truncated to whole milliseconds.
func DelayMillis(d time.Duration) (uint16, error) {
	ms := d.Milliseconds()
	if d < 0 || ms > MaxDelayMillis {
		return 0, &EncodingError{Op: OpDelay, Reason: "delay " + d.String() + " outside [0, 65535ms]"}
	}
	return uint16(ms), nil
}
