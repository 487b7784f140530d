package gpionet

import (
	"context"
	"errors"
	"testing"

	"github.com/pior/gpionet/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlush_SingleWriteForBatch(t *testing.T) {
	client, mock := newMockClient(t, Batched, acks(1, 1, 1))
	ctx := testContext(t)

	require.NoError(t, client.SetPin(ctx, 16, 1))
	require.NoError(t, client.Delay(ctx, 300_000_000))
	require.NoError(t, client.WriteBytes(ctx, []byte{0xAA, 0xBB}))
	assert.Empty(t, mock.Writes(), "batched commands must not be sent before Flush")
	assert.Equal(t, 3, client.Pending())

	result, err := client.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{true, true, true}, result)

	writes := mock.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{0, 16, 1, 5, 0x01, 0x2C, 2, 0, 0, 0, 2, 0xAA, 0xBB}, writes[0])
	assert.Zero(t, mock.Unread(), "all acknowledgements must be consumed")
	assert.Zero(t, client.Pending())
}

func TestFlush_EmptyQueueDoesNoIO(t *testing.T) {
	client, mock := newMockClient(t, Batched)

	result, err := client.Flush(testContext(t))
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, mock.Ops())
}

func TestFlush_AcksOneBytePerRead(t *testing.T) {
	client, mock := newMockClient(t, Batched, acks(1, 0, 1, 1, 9))
	mock.WithChunkSize(1)
	ctx := testContext(t)

	for pin := range byte(5) {
		require.NoError(t, client.SetPin(ctx, pin, 1))
	}

	result, err := client.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, FlushResult{true, false, true, true, false}, result)
	assert.Equal(t, []string{"write:15", "read:1", "read:1", "read:1", "read:1", "read:1"}, mock.Ops())
}

func TestFlush_FailedAcksAreData(t *testing.T) {
	client, _ := newMockClient(t, Batched, acks(0, 1, 0))
	ctx := testContext(t)

	require.NoError(t, client.SetPin(ctx, 1, 1))
	require.NoError(t, client.SetPin(ctx, 2, 1))
	require.NoError(t, client.SetPin(ctx, 3, 1))

	result, err := client.Flush(ctx)
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.Equal(t, []int{0, 2}, result.Failed())
	assert.Zero(t, client.Pending(), "queue resets even when commands failed")
	assert.Equal(t, result, client.LastFlush())

	var failure *ProtocolFailure
	require.ErrorAs(t, result.Err(), &failure)
	assert.Equal(t, []int{0, 2}, failure.Failed)
	assert.Equal(t, 3, failure.Total)
}

func TestFlush_ReceiveErrorKeepsQueue(t *testing.T) {
	client, mock := newMockClient(t, Batched, acks(1))
	mock.FailReads(errors.New("connection reset by peer"))
	ctx := testContext(t)

	require.NoError(t, client.SetPin(ctx, 1, 1))
	require.NoError(t, client.SetPin(ctx, 2, 1))

	result, err := client.Flush(ctx)
	require.Error(t, err)
	assert.Nil(t, result)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "receive", transportErr.Op)
	assert.Equal(t, 2, client.Pending())
	assert.True(t, ShouldReconnect(err))
}

func TestFlush_SendErrorKeepsQueue(t *testing.T) {
	client, mock := newMockClient(t, Batched)
	mock.FailWrites(errors.New("broken pipe"))
	ctx := testContext(t)

	require.NoError(t, client.SetPin(ctx, 1, 1))

	_, err := client.Flush(ctx)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "send", transportErr.Op)
	assert.Equal(t, 1, client.Pending())
	assert.Equal(t, uint64(1), client.Stats().Errors)
}

func TestFlush_CanceledContext(t *testing.T) {
	client, mock := newMockClient(t, Batched, acks(1))
	require.NoError(t, client.SetPin(context.Background(), 1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Flush(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mock.Ops())
	assert.Equal(t, 1, client.Pending())
}

func TestImmediateMode_FlushesEveryWrite(t *testing.T) {
	client, mock := newMockClient(t, Immediate, acks(1, 0))
	ctx := testContext(t)

	require.NoError(t, client.SetPin(ctx, 16, 1))
	assert.Zero(t, client.Pending())
	assert.Equal(t, FlushResult{true}, client.LastFlush())

	require.NoError(t, client.SetPin(ctx, 18, 0), "a rejected command is not an error")
	assert.Equal(t, FlushResult{false}, client.LastFlush())

	assert.Equal(t, [][]byte{{0, 16, 1}, {0, 18, 0}}, mock.Writes())
}

func TestReadRequest_DrainsWritesFirst(t *testing.T) {
	client, mock := newMockClient(t, Batched, acks(1), []byte{1})
	ctx := testContext(t)

	require.NoError(t, client.SetPin(ctx, 16, 1))
	value, err := client.GetPin(ctx, 16)
	require.NoError(t, err)
	assert.Equal(t, byte(1), value)

	assert.Equal(t, []string{"write:3", "read:1", "write:2", "read:1"}, mock.Ops())
	assert.Equal(t, [][]byte{{0, 16, 1}, {3, 16}}, mock.Writes())
	assert.Equal(t, FlushResult{true}, client.LastFlush())
}

func TestReadRequest_FragmentedPayload(t *testing.T) {
	client, mock := newMockClient(t, Batched, []byte{1, 0, 1, 1})
	mock.WithChunkSize(1)

	values, err := client.GetPins(testContext(t), []byte{16, 17, 18, 19})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 1, 1}, values)
	assert.Equal(t, []string{"write:6", "read:1", "read:1", "read:1", "read:1"}, mock.Ops())
}

func TestReadRequest_EncodingErrorDoesNoIO(t *testing.T) {
	client, mock := newMockClient(t, Batched)
	require.NoError(t, client.SetPin(context.Background(), 1, 1))

	_, err := client.GetPins(testContext(t), make([]byte, 256))
	require.True(t, IsEncodingError(err))
	assert.Empty(t, mock.Ops(), "queued writes must not be flushed")
	assert.Equal(t, 1, client.Pending())
}

func TestReadRequest_FailedAcksDoNotFailRead(t *testing.T) {
	client, _ := newMockClient(t, Batched, acks(0), []byte{7})
	ctx := testContext(t)

	require.NoError(t, client.WriteBytes(ctx, []byte{1, 2, 3}))
	version, err := client.APIVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, version)
	assert.Equal(t, FlushResult{false}, client.LastFlush())
}

func TestReadRequest_ShortPayload(t *testing.T) {
	client, _ := newMockClient(t, Batched, []byte{1})

	_, err := client.GetPins(testContext(t), []byte{1, 2})
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "receive", transportErr.Op)
}

func TestSetPins_TooManyEntries(t *testing.T) {
	client, mock := newMockClient(t, Immediate)

	err := client.SetPins(testContext(t), make([]wire.PinValue, 256))
	require.Error(t, err)

	var encErr *wire.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, wire.OpSetPinMulti, encErr.Op)
	assert.Empty(t, mock.Ops())
	assert.Zero(t, client.Pending())
	assert.False(t, ShouldReconnect(err))
}

func TestDelay_OutOfRange(t *testing.T) {
	client, _ := newMockClient(t, Batched)

	require.True(t, IsEncodingError(client.Delay(testContext(t), -1)))
	require.True(t, IsEncodingError(client.WaitForPin(testContext(t), 1, 1, 70_000_000_000)))
	assert.Zero(t, client.Pending())
}

func TestFlushResult(t *testing.T) {
	var empty FlushResult
	assert.True(t, empty.OK())
	assert.Nil(t, empty.Failed())
	assert.NoError(t, empty.Err())

	r := FlushResult{true, true}
	assert.True(t, r.OK())
	assert.NoError(t, r.Err())
}
