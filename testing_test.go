package gpionet

import (
	"context"
	"testing"
	"time"

	"github.com/pior/gpionet/internal/testutils"
	"github.com/stretchr/testify/require"
)

// newMockClient returns a client over a scripted connection replying with
// replies.
func newMockClient(t testing.TB, mode FlushMode, replies ...[]byte) (*Client, *testutils.ConnectionMock) {
	t.Helper()
	mock := testutils.NewConnectionMock(replies...)
	client := newClient(NewConnection(mock), Config{FlushMode: mode})
	t.Cleanup(func() { _ = client.Close() })
	return client, mock
}

// newPeerClient starts a fake peer and connects a client to it.
func newPeerClient(t testing.TB, config Config) (*Client, *testutils.Peer) {
	t.Helper()
	peer := testutils.NewPeer(t, "test-peer")
	client, err := NewClient(testContext(t), peer.Addr(), config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, peer
}

func testContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func acks(values ...byte) []byte {
	return values
}
