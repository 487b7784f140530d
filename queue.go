package gpionet

import "github.com/pior/gpionet/wire"

// maxRetainedQueue caps the capacity kept across flushes. A queue that grew
// past it (typically a large WRITE_BYTES) is released on reset.
const maxRetainedQueue = 64 << 10

// queue holds encoded write-type commands waiting for a flush.
//
// pending always equals the number of acknowledgement bytes the peer owes
// for the bytes in buf.
type queue struct {
	buf     []byte
	pending int
}

// add encodes cmd at the end of the queue. The queue is unchanged when cmd
// cannot be encoded.
func (q *queue) add(cmd wire.Command) error {
	buf, err := wire.AppendCommand(q.buf, cmd)
	if err != nil {
		return err
	}
	q.buf = buf
	q.pending++
	return nil
}

func (q *queue) bytes() []byte {
	return q.buf
}

func (q *queue) len() int {
	return len(q.buf)
}

func (q *queue) reset() {
	if cap(q.buf) > maxRetainedQueue {
		q.buf = nil
	} else {
		q.buf = q.buf[:0]
	}
	q.pending = 0
}
