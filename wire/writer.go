package wire

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
)

// Validate reports whether c fits the wire format.
func Validate(c Command) error {
	switch c.Op {
	case OpSetPinMulti:
		if len(c.Pairs) > MaxEntries {
			return &EncodingError{Op: c.Op, Reason: tooMany(len(c.Pairs))}
		}
	case OpGetPinMulti:
		if len(c.Pins) > MaxEntries {
			return &EncodingError{Op: c.Op, Reason: tooMany(len(c.Pins))}
		}
	case OpWriteBytes:
		if uint64(len(c.Data)) > math.MaxUint32 {
			return &EncodingError{Op: c.Op, Reason: "payload exceeds 4-byte length field"}
		}
	default:
		if !c.Op.Valid() {
			return &EncodingError{Op: c.Op, Reason: "unknown opcode"}
		}
	}
	return nil
}

func tooMany(n int) string {
	return strconv.Itoa(n) + " entries, at most " + strconv.Itoa(MaxEntries) + " allowed"
}

// AppendCommand appends the encoding of c to dst and returns the extended
// buffer. On error dst is returned unchanged.
func AppendCommand(dst []byte, c Command) ([]byte, error) {
	if err := Validate(c); err != nil {
		return dst, err
	}

	dst = append(dst, byte(c.Op))
	switch c.Op {
	case OpSetPinSingle:
		dst = append(dst, c.Pin, c.Value)
	case OpSetPinMulti:
		dst = append(dst, byte(len(c.Pairs)))
		for _, pv := range c.Pairs {
			dst = append(dst, pv.Pin, pv.Value)
		}
	case OpWriteBytes:
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(c.Data)))
		dst = append(dst, c.Data...)
	case OpGetPinSingle:
		dst = append(dst, c.Pin)
	case OpGetPinMulti:
		dst = append(dst, byte(len(c.Pins)))
		dst = append(dst, c.Pins...)
	case OpDelay:
		dst = binary.BigEndian.AppendUint16(dst, c.DelayMillis)
	case OpWaitForPin:
		dst = append(dst, c.Pin, c.Value)
		dst = binary.BigEndian.AppendUint16(dst, c.DelayMillis)
	}
	return dst, nil
}

// Encode returns the wire encoding of c.
func Encode(c Command) ([]byte, error) {
	buf, err := AppendCommand(make([]byte, 0, c.EncodedLen()), c)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteCommand encodes c and writes it to w in a single Write call.
func WriteCommand(w io.Writer, c Command) error {
	buf, err := Encode(c)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
