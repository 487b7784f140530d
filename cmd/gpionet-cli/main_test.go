package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pior/gpionet"
	"github.com/pior/gpionet/internal/testutils"
	"github.com/pior/gpionet/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, mode gpionet.FlushMode) (*session, *bytes.Buffer, *testutils.Peer) {
	t.Helper()
	peer := testutils.NewPeer(t, "bench-7")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	client, err := gpionet.NewClient(ctx, peer.Addr(), gpionet.Config{FlushMode: mode})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var out bytes.Buffer
	return &session{client: client, out: &out}, &out, peer
}

func TestSession_Script(t *testing.T) {
	s, out, peer := newTestSession(t, gpionet.Batched)

	script := strings.Join([]string{
		"set 16 1",
		"sets 17=1 18=0x01",
		"write 0xDEADBEEF",
		"delay 5ms",
		"flush",
		"gets 16 17 18 19",
		"name",
		"version",
		"quit",
		"set 20 1",
	}, "\n")

	require.NoError(t, s.run(context.Background(), strings.NewReader(script), false))

	output := out.String()
	assert.Contains(t, output, "Queued (4 pending)")
	assert.Contains(t, output, "4 commands succeeded")
	assert.Contains(t, output, "  Pin 18: 1\n  Pin 19: 0\n")
	assert.Contains(t, output, "Name: bench-7")
	assert.Contains(t, output, "API version: 2")
	assert.Contains(t, output, "Goodbye!")

	cmds := peer.Commands()
	require.Len(t, cmds, 7, "commands after quit must not run")
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, cmds[2].Data)
	assert.Equal(t, uint16(5), cmds[3].DelayMillis)
}

func TestSession_ImmediateMode(t *testing.T) {
	s, out, peer := newTestSession(t, gpionet.Immediate)
	peer.SetAck(func(wire.Command) byte { return 0 })

	assert.False(t, s.execute(context.Background(), "set 3 1"))
	assert.Contains(t, out.String(), "1 of 1 commands failed")
}

func TestSession_InvalidInput(t *testing.T) {
	s, out, peer := newTestSession(t, gpionet.Batched)
	ctx := context.Background()

	for _, line := range []string{
		"set 300 1",
		"set 1",
		"sets 1:1",
		"get x",
		"write zz",
		"delay forever",
		"delay 70s",
		"wait 1 1 soon",
		"frobnicate",
		"",
	} {
		assert.False(t, s.execute(ctx, line), line)
	}

	output := out.String()
	assert.Contains(t, output, "Invalid argument")
	assert.Contains(t, output, "Usage: set <pin> <value>")
	assert.Contains(t, output, "Invalid pair")
	assert.Contains(t, output, "Invalid hex")
	assert.Contains(t, output, "Unknown command: frobnicate")
	assert.Contains(t, output, "outside [0, 65535ms]")
	assert.Zero(t, s.client.Pending())
	assert.Empty(t, peer.Commands())
}

func TestSession_Stats(t *testing.T) {
	s, out, _ := newTestSession(t, gpionet.Batched)
	ctx := context.Background()

	s.execute(ctx, "set 1 1")
	s.execute(ctx, "get 1")
	s.execute(ctx, "stats")

	assert.Contains(t, out.String(), "Pin 1: 1")
	assert.Contains(t, out.String(), "Acks: 1 ok, 0 failed")
	assert.Contains(t, out.String(), "Reads: 1")
}
