package proxy

import (
	"net"
	"testing"
	"time"

	"github.com/crust-proxy/crust/internal/proto/packet"
	"github.com/crust-proxy/crust/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandle(t *testing.T) (*handle, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close() })
	c := newConn(server, packet.ServerBound, 0, 0)
	c.SetState(packet.Play)
	c.SetProtocol(version.R1_20_2)
	h := newHandle(c)
	return h, client
}

func TestHandleQueuePacketDeliversToWriterTask(t *testing.T) {
	h, client := newTestHandle(t)
	h.spawnWriteTask()

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 64)
		_, _ = client.Read(buf)
		close(done)
	}()

	h.QueuePacket(packet.IDKeepAlive, &packet.KeepAlive{ID: 1}, false)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer task never delivered the queued packet")
	}
}

// TestDisconnectDoesNotPanicConcurrentSenders is a regression test for the
// handle.Disconnect/send race: sends racing a Disconnect must back off
// instead of panicking on a closed channel.
func TestDisconnectDoesNotPanicConcurrentSenders(t *testing.T) {
	h, _ := newTestHandle(t)
	h.spawnWriteTask()

	stop := make(chan struct{})
	senderDone := make(chan struct{})
	go func() {
		defer close(senderDone)
		for {
			select {
			case <-stop:
				return
			default:
				h.QueuePacket(packet.IDKeepAlive, &packet.KeepAlive{ID: 1}, false)
			}
		}
	}()

	time.Sleep(5 * time.Millisecond)
	h.Disconnect()
	close(stop)

	select {
	case <-senderDone:
	case <-time.After(2 * time.Second):
		t.Fatal("sender goroutine never returned")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	h, _ := newTestHandle(t)
	h.spawnWriteTask()
	h.Disconnect()
	assert.NotPanics(t, func() { h.Disconnect() })
}

func TestWaitForDisconnectUnblocksAfterDisconnect(t *testing.T) {
	h, _ := newTestHandle(t)
	h.spawnWriteTask()

	waitDone := make(chan struct{})
	go func() {
		h.WaitForDisconnect()
		close(waitDone)
	}()

	select {
	case <-waitDone:
		t.Fatal("WaitForDisconnect returned before Disconnect was called")
	case <-time.After(20 * time.Millisecond):
	}

	h.Disconnect()

	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForDisconnect never unblocked after Disconnect")
	}
}

func TestSyncReturnsAfterQueuedCommandsApplied(t *testing.T) {
	h, client := newTestHandle(t)
	h.spawnWriteTask()

	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := client.Read(buf); err != nil {
				return
			}
		}
	}()

	h.QueuePacket(packet.IDKeepAlive, &packet.KeepAlive{ID: 1}, false)

	done := make(chan struct{})
	go func() {
		h.Sync()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Sync never returned")
	}
}

func TestDropRedundantSuppressesQueuedPackets(t *testing.T) {
	h, client := newTestHandle(t)
	h.spawnWriteTask()

	h.DropRedundant(true)
	h.QueuePacket(packet.IDKeepAlive, &packet.KeepAlive{ID: 1}, false)
	h.Sync()

	readDone := make(chan struct{})
	go func() {
		buf := make([]byte, 64)
		client.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		_, err := client.Read(buf)
		if err != nil {
			close(readDone)
		}
	}()

	select {
	case <-readDone:
	case <-time.After(2 * time.Second):
		t.Fatal("expected read to time out since the packet should have been dropped")
	}
}
