package gpionet

import (
	"context"
	"testing"
	"time"

	"github.com/pior/gpionet/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands_SetAndGetPins(t *testing.T) {
	client, peer := newPeerClient(t, Config{})
	ctx := testContext(t)

	require.NoError(t, client.SetPins(ctx, []wire.PinValue{{Pin: 16, Value: 1}, {Pin: 17, Value: 0}, {Pin: 18, Value: 1}}))
	require.NoError(t, client.SetPin(ctx, 19, 1))

	values, err := client.GetPins(ctx, []byte{16, 17, 18, 19, 20})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 1, 1, 0}, values)
	assert.Equal(t, FlushResult{true, true}, client.LastFlush())

	ops := make([]wire.Opcode, 0, 3)
	for _, cmd := range peer.Commands() {
		ops = append(ops, cmd.Op)
	}
	assert.Equal(t, []wire.Opcode{wire.OpSetPinMulti, wire.OpSetPinSingle, wire.OpGetPinMulti}, ops)
}

func TestCommands_GetPin(t *testing.T) {
	client, peer := newPeerClient(t, Config{})
	peer.SetPin(4, 1)

	value, err := client.GetPin(testContext(t), 4)
	require.NoError(t, err)
	assert.Equal(t, byte(1), value)
}

func TestCommands_WriteBytesAndDelay(t *testing.T) {
	client, peer := newPeerClient(t, Config{})
	ctx := testContext(t)

	require.NoError(t, client.WriteBytes(ctx, []byte{0x9F, 0x00, 0x00}))
	require.NoError(t, client.Delay(ctx, 20*time.Millisecond))
	require.NoError(t, client.WriteBytes(ctx, nil))

	start := time.Now()
	result, err := client.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{true, true, true}, result)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	cmds := peer.Commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, []byte{0x9F, 0x00, 0x00}, cmds[0].Data)
	assert.Equal(t, uint16(20), cmds[1].DelayMillis)
	assert.Empty(t, cmds[2].Data)
}

func TestCommands_RejectedCommand(t *testing.T) {
	client, peer := newPeerClient(t, Config{})
	peer.SetAck(func(cmd wire.Command) byte {
		if cmd.Op == wire.OpWriteBytes {
			return 0
		}
		return wire.AckSuccess
	})
	ctx := testContext(t)

	require.NoError(t, client.SetPin(ctx, 1, 1))
	require.NoError(t, client.WriteBytes(ctx, []byte{1}))
	require.NoError(t, client.SetPin(ctx, 1, 0))

	result, err := client.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, result.Failed())
}

func TestCommands_NameAndVersion(t *testing.T) {
	client, _ := newPeerClient(t, Config{})
	ctx := testContext(t)

	name, err := client.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test-peer", name)

	version, err := client.APIVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, wire.APIVersion, version)
}

func TestCommands_ChunkedReplies(t *testing.T) {
	client, peer := newPeerClient(t, Config{})
	peer.SetChunked(true)
	peer.SetPin(3, 1)
	ctx := testContext(t)

	for range 10 {
		require.NoError(t, client.SetPin(ctx, 1, 1))
	}
	result, err := client.Flush(ctx)
	require.NoError(t, err)
	assert.Len(t, result, 10)
	assert.True(t, result.OK())

	values, err := client.GetPins(ctx, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 1}, values)

	name, err := client.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test-peer", name)
}

func TestCommands_ImmediateMode(t *testing.T) {
	client, peer := newPeerClient(t, Config{FlushMode: Immediate})
	ctx := testContext(t)

	require.NoError(t, client.SetPin(ctx, 7, 1))
	assert.Zero(t, client.Pending())
	assert.Equal(t, byte(1), peer.Pin(7))
}

func TestWaitForPin_CompletesWhenPinMatches(t *testing.T) {
	client, peer := newPeerClient(t, Config{})
	ctx := testContext(t)

	require.NoError(t, client.WaitForPin(ctx, 5, 1, 5*time.Millisecond))
	require.NoError(t, client.SetPin(ctx, 6, 1))

	time.AfterFunc(50*time.Millisecond, func() { peer.SetPin(5, 1) })

	result, err := client.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{true, true}, result)
	assert.Equal(t, byte(1), peer.Pin(6))
}

func TestWaitForPin_CloseUnblocksFlush(t *testing.T) {
	client, _ := newPeerClient(t, Config{})

	require.NoError(t, client.WaitForPin(context.Background(), 5, 1, 5*time.Millisecond))

	time.AfterFunc(50*time.Millisecond, func() { _ = client.Close() })

	_, err := client.Flush(context.Background())
	require.ErrorIs(t, err, ErrConnectionClosed)
	assert.True(t, ShouldReconnect(err))
	assert.Equal(t, 1, client.Pending())
}

func TestWaitForPin_ContextCancelUnblocksFlush(t *testing.T) {
	client, _ := newPeerClient(t, Config{})

	require.NoError(t, client.WaitForPin(context.Background(), 5, 1, 5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := client.Flush(ctx)
	require.ErrorIs(t, err, context.Canceled)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "receive", transportErr.Op)
}

func TestClient_OperationsAfterClose(t *testing.T) {
	client, _ := newPeerClient(t, Config{})
	ctx := testContext(t)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close(), "closing twice is a no-op")

	require.ErrorIs(t, client.SetPin(ctx, 1, 1), ErrConnectionClosed)
	_, err := client.GetPin(ctx, 1)
	require.ErrorIs(t, err, ErrConnectionClosed)
	assert.Zero(t, client.Pending())
}

func TestClient_QueuedCommandsLostOnClose(t *testing.T) {
	client, peer := newPeerClient(t, Config{})

	require.NoError(t, client.SetPin(testContext(t), 1, 1))
	require.NoError(t, client.Close())

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, peer.Commands())
}
