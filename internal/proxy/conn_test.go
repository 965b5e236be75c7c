package proxy

import (
	"net"
	"testing"
	"time"

	"github.com/crust-proxy/crust/internal/proto/packet"
	"github.com/stretchr/testify/require"
)

// TestInterruptReadUnblocksPendingReadPacketWithoutClosing is a regression
// test for the switch hand-off: retiring a client reader must force its
// blocked ReadPacket to return promptly, but the connection itself must stay
// usable afterwards (the socket backs a player who is about to get a new
// backend, not a player being disconnected).
func TestInterruptReadUnblocksPendingReadPacketWithoutClosing(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close() })
	t.Cleanup(func() { server.Close() })

	c := newConn(server, packet.ServerBound, 0, 0)

	readErr := make(chan error, 1)
	go func() {
		_, err := c.ReadPacket()
		readErr <- err
	}()

	time.Sleep(10 * time.Millisecond)
	c.InterruptRead()

	select {
	case err := <-readErr:
		require.Error(t, err, "InterruptRead should force the blocked read to return an error")
	case <-time.After(2 * time.Second):
		t.Fatal("ReadPacket never returned after InterruptRead")
	}

	require.False(t, c.Closed(), "InterruptRead must not close the connection")

	// A subsequent read must not be permanently wedged by the deadline
	// InterruptRead left behind once a real deadline (or none) applies again.
	nextErr := make(chan error, 1)
	go func() {
		_, err := c.ReadPacket()
		nextErr <- err
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-nextErr:
		t.Fatal("second ReadPacket should still be blocked on the client, not return immediately")
	case <-time.After(30 * time.Millisecond):
	}

	client.Close()
	select {
	case <-nextErr:
	case <-time.After(2 * time.Second):
		t.Fatal("second ReadPacket never returned after the peer closed")
	}
}
