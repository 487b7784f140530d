package testutils

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pior/gpionet/wire"
)

// Peer is an in-process stand-in for the peer firmware. Like the firmware
// it serves one connection at a time: further clients wait in the accept
// backlog until the current one disconnects.
//
// Pins start at 0 and keep the values set through SET_PIN commands.
type Peer struct {
	listener net.Listener
	name     string

	mu       sync.Mutex
	pins     map[byte]byte
	commands []wire.Command
	ack      func(wire.Command) byte
	chunked  bool
	accepted int
	active   net.Conn

	done chan struct{}
	wg   sync.WaitGroup
}

// NewPeer starts a peer on a random local port. It is stopped when the
// test ends.
func NewPeer(t testing.TB, name string) *Peer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start test peer: %v", err)
	}

	p := &Peer{
		listener: listener,
		name:     name,
		pins:     map[byte]byte{},
		done:     make(chan struct{}),
	}
	p.wg.Add(1)
	go p.serve()

	t.Cleanup(p.Close)
	return p
}

func (p *Peer) Addr() string {
	return p.listener.Addr().String()
}

// SetAck overrides the acknowledgement byte sent for write commands.
func (p *Peer) SetAck(ack func(wire.Command) byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ack = ack
}

// SetChunked makes the peer send every reply one byte per write.
func (p *Peer) SetChunked(chunked bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunked = chunked
}

func (p *Peer) SetPin(pin, value byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pins[pin] = value
}

func (p *Peer) Pin(pin byte) byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pins[pin]
}

// Commands returns every command received so far, in order.
func (p *Peer) Commands() []wire.Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]wire.Command(nil), p.commands...)
}

// Accepted returns the number of connections accepted so far.
func (p *Peer) Accepted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accepted
}

// DropConnection closes the current connection, if any.
func (p *Peer) DropConnection() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		_ = p.active.Close()
	}
}

func (p *Peer) Close() {
	select {
	case <-p.done:
		return
	default:
	}
	close(p.done)
	_ = p.listener.Close()
	p.DropConnection()
	p.wg.Wait()
}

func (p *Peer) serve() {
	defer p.wg.Done()
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			return
		}
		p.mu.Lock()
		p.accepted++
		p.active = conn
		p.mu.Unlock()

		p.handle(conn)

		p.mu.Lock()
		p.active = nil
		p.mu.Unlock()
		_ = conn.Close()
	}
}

func (p *Peer) handle(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		cmd, err := wire.ReadCommand(r)
		if err != nil {
			var decErr *wire.DecodeError
			if errors.As(err, &decErr) {
				// The firmware acknowledges unknown opcodes with success.
				_, _ = conn.Write([]byte{wire.AckSuccess})
				continue
			}
			return
		}

		reply := p.execute(cmd)

		p.mu.Lock()
		chunked := p.chunked
		p.mu.Unlock()

		if chunked {
			for i := range reply {
				if _, err := conn.Write(reply[i : i+1]); err != nil {
					return
				}
			}
			continue
		}
		if _, err := conn.Write(reply); err != nil {
			return
		}
	}
}

func (p *Peer) execute(cmd wire.Command) []byte {
	switch cmd.Op {
	case wire.OpDelay:
		p.sleep(time.Duration(cmd.DelayMillis) * time.Millisecond)
	case wire.OpWaitForPin:
		for p.Pin(cmd.Pin) != cmd.Value {
			if !p.sleep(max(time.Duration(cmd.DelayMillis)*time.Millisecond, time.Millisecond)) {
				break
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.commands = append(p.commands, cmd)

	switch cmd.Op {
	case wire.OpSetPinSingle:
		p.pins[cmd.Pin] = cmd.Value
	case wire.OpSetPinMulti:
		for _, pv := range cmd.Pairs {
			p.pins[pv.Pin] = pv.Value
		}
	case wire.OpGetPinSingle:
		return []byte{p.pins[cmd.Pin]}
	case wire.OpGetPinMulti:
		values := make([]byte, len(cmd.Pins))
		for i, pin := range cmd.Pins {
			values[i] = p.pins[pin]
		}
		return values
	case wire.OpGetName:
		return append([]byte{byte(len(p.name))}, p.name...)
	case wire.OpGetAPIVersion:
		return []byte{wire.APIVersion}
	}

	if p.ack != nil {
		return []byte{p.ack(cmd)}
	}
	return []byte{wire.AckSuccess}
}

// sleep waits for d and reports false if the peer was closed meanwhile.
func (p *Peer) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-p.done:
		return false
	}
}
