package testutils

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// ConnectionMock is a scripted net.Conn. Reads are served from the
// pre-configured reply bytes, at most ChunkSize bytes per Read call, and
// every Read and Write is recorded in order.
type ConnectionMock struct {
	mu        sync.Mutex
	readBuf   *bytes.Buffer
	chunkSize int
	writes    [][]byte
	ops       []string
	readErr   error
	writeErr  error
	closed    bool
}

// NewConnectionMock creates a mock connection replying with replies,
// concatenated.
func NewConnectionMock(replies ...[]byte) *ConnectionMock {
	return &ConnectionMock{
		readBuf: bytes.NewBuffer(bytes.Join(replies, nil)),
	}
}

// WithChunkSize limits every Read to n bytes, simulating a stream that
// delivers replies in fragments.
func (m *ConnectionMock) WithChunkSize(n int) *ConnectionMock {
	m.chunkSize = n
	return m
}

// FailReads makes Read return err once the scripted replies are exhausted.
// Without it an exhausted mock returns io.EOF.
func (m *ConnectionMock) FailReads(err error) *ConnectionMock {
	m.readErr = err
	return m
}

// FailWrites makes every Write fail with err.
func (m *ConnectionMock) FailWrites(err error) *ConnectionMock {
	m.writeErr = err
	return m
}

func (m *ConnectionMock) Read(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, net.ErrClosed
	}
	if m.readBuf.Len() == 0 {
		if m.readErr != nil {
			return 0, m.readErr
		}
		return 0, io.EOF
	}
	if m.chunkSize > 0 && len(b) > m.chunkSize {
		b = b[:m.chunkSize]
	}
	n, err := m.readBuf.Read(b)
	m.ops = append(m.ops, fmt.Sprintf("read:%d", n))
	return n, err
}

func (m *ConnectionMock) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, net.ErrClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.writes = append(m.writes, bytes.Clone(b))
	m.ops = append(m.ops, fmt.Sprintf("write:%d", len(b)))
	return len(b), nil
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }

// Writes returns the payload of every Write call, in order.
func (m *ConnectionMock) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.writes...)
}

// Ops returns the recorded I/O calls as "write:<n>" and "read:<n>".
func (m *ConnectionMock) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

// Unread returns the number of scripted reply bytes not consumed yet.
func (m *ConnectionMock) Unread() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readBuf.Len()
}

func (m *ConnectionMock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
