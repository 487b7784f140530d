package wire

import (
	"bytes"
	"encoding/binary"
	"io"
)

// ReadAcks reads exactly n acknowledgement bytes from r and reports, in
// order, whether each one equals AckSuccess.
func ReadAcks(r io.Reader, n int) ([]bool, error) {
	buf, err := ReadPayload(r, n)
	if err != nil {
		return nil, err
	}
	acks := make([]bool, n)
	for i, b := range buf {
		acks[i] = b == AckSuccess
	}
	return acks, nil
}

// ReadPayload reads exactly n bytes from r. Short reads are retried until
// n bytes have arrived or r fails.
func ReadPayload(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadName reads a GET_NAME reply: a one-byte length followed by the name.
func ReadName(r io.Reader) (string, error) {
	var size [1]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return "", err
	}
	name, err := ReadPayload(r, int(size[0]))
	if err != nil {
		return "", unexpectedEOF(err)
	}
	return string(name), nil
}

// ReadCommand decodes the next command from r. It returns io.EOF only when
// r ends cleanly before the opcode byte, and io.ErrUnexpectedEOF when a
// command is cut short.
func ReadCommand(r io.Reader) (Command, error) {
	var op [1]byte
	if _, err := io.ReadFull(r, op[:]); err != nil {
		return Command{}, err
	}

	c := Command{Op: Opcode(op[0])}
	var err error
	switch c.Op {
	case OpSetPinSingle:
		var b [2]byte
		if _, err = io.ReadFull(r, b[:]); err == nil {
			c.Pin, c.Value = b[0], b[1]
		}
	case OpSetPinMulti:
		var raw []byte
		if raw, err = readCounted(r, 2); err == nil {
			c.Pairs = make([]PinValue, len(raw)/2)
			for i := range c.Pairs {
				c.Pairs[i] = PinValue{Pin: raw[2*i], Value: raw[2*i+1]}
			}
		}
	case OpWriteBytes:
		c.Data, err = readData(r)
	case OpGetPinSingle:
		var b [1]byte
		if _, err = io.ReadFull(r, b[:]); err == nil {
			c.Pin = b[0]
		}
	case OpGetPinMulti:
		c.Pins, err = readCounted(r, 1)
	case OpDelay:
		var b [2]byte
		if _, err = io.ReadFull(r, b[:]); err == nil {
			c.DelayMillis = binary.BigEndian.Uint16(b[:])
		}
	case OpWaitForPin:
		var b [4]byte
		if _, err = io.ReadFull(r, b[:]); err == nil {
			c.Pin, c.Value = b[0], b[1]
			c.DelayMillis = binary.BigEndian.Uint16(b[2:])
		}
	case OpGetName, OpGetAPIVersion:
	default:
		return Command{}, &DecodeError{Opcode: op[0], Reason: "unknown opcode"}
	}
	if err != nil {
		return Command{}, unexpectedEOF(err)
	}
	return c, nil
}

// readCounted reads a one-byte count followed by count*width bytes.
func readCounted(r io.Reader, width int) ([]byte, error) {
	var count [1]byte
	if _, err := io.ReadFull(r, count[:]); err != nil {
		return nil, err
	}
	return ReadPayload(r, int(count[0])*width)
}

// readData reads a 4-byte length and the data it announces. The buffer
// grows with the bytes actually received so a bogus length cannot force a
// large allocation up front.
func readData(r io.Reader) ([]byte, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, err
	}
	n := int64(binary.BigEndian.Uint32(size[:]))

	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r, n)
	if err != nil {
		if err == io.EOF && copied < n {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	data := buf.Bytes()
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
