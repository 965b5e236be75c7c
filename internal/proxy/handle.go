package proxy

import (
	"sync"

	"github.com/gammazero/deque"
	"github.com/crust-proxy/crust/internal/proto/packet"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// command is one instruction sent to a connection half's writer task,
// mirroring original_source/src/server/proxy_handler.rs's PacketSending enum.
type command struct {
	kind commandKind

	// Packet
	id          packet.ID
	pkt         packet.Packet
	raw         []byte
	bypassDrop  bool

	// Sync
	done chan struct{}

	// DropRedundant
	drop bool

	// StartConfig/StartGame
	protocol int32
}

type commandKind uint8

const (
	cmdPacket commandKind = iota
	cmdRawPacket
	cmdSync
	cmdDropRedundant
	cmdBundleReceived
)

// handle is the writer-task side of one connection half: a bounded command
// channel plus the "drop redundant traffic during a server switch" gate and
// the disconnect barrier that sequences cleanup after the writer task fully
// exits. Grounded on ConnectionHandle in
// original_source/src/server/proxy_handler.rs.
type handle struct {
	c *conn

	commands chan command
	stopCh   chan struct{}

	dropRedundant atomic.Bool
	inBundle      atomic.Bool

	// bundleBacklog is not read or written anywhere: packets queued without
	// bypassDrop while drop_redundant is set are discarded by apply, not
	// buffered for replay.
	bundleBacklog deque.Deque

	// disconnectWait is held for a read lock by wait_for_disconnect callers
	// and for a write lock for the writer task's entire lifetime, so cleanup
	// never races the writer's last flush.
	disconnectWait sync.RWMutex

	closed atomic.Bool
}

func newHandle(c *conn) *handle {
	h := &handle{
		c:        c,
		commands: make(chan command, 256),
		stopCh:   make(chan struct{}),
	}
	return h
}

// spawnWriteTask starts the writer goroutine, holding disconnectWait for
// write for as long as it runs. The writer selects on stopCh rather than
// relying on a closed commands channel, since QueuePacket/QueueRaw callers
// run concurrently with Disconnect and must never send on a closed channel.
func (h *handle) spawnWriteTask() {
	h.disconnectWait.Lock()
	go func() {
		defer h.disconnectWait.Unlock()
		defer h.c.Close()
		for {
			select {
			case cmd := <-h.commands:
				h.apply(cmd)
			case <-h.stopCh:
				return
			}
		}
	}()
}

func (h *handle) apply(cmd command) {
	switch cmd.kind {
	case cmdPacket:
		if h.dropRedundant.Load() && !cmd.bypassDrop {
			return
		}
		if err := h.c.WritePacket(cmd.id, cmd.pkt); err != nil {
			zap.L().Debug("proxy: write task packet error", zap.Error(err))
		}
	case cmdRawPacket:
		if h.dropRedundant.Load() && !cmd.bypassDrop {
			return
		}
		if err := h.c.WriteRaw(cmd.raw); err != nil {
			zap.L().Debug("proxy: write task raw error", zap.Error(err))
		}
	case cmdSync:
		close(cmd.done)
	case cmdDropRedundant:
		h.dropRedundant.Store(cmd.drop)
	case cmdBundleReceived:
		h.inBundle.Store(!h.inBundle.Load())
	}
}

// QueuePacket enqueues a typed packet for the writer task. bypassDrop lets
// the switch orchestrator push packets through even while drop_redundant is
// set (e.g. the StartConfiguration packet that drives the switch itself).
func (h *handle) QueuePacket(id packet.ID, p packet.Packet, bypassDrop bool) {
	h.send(command{kind: cmdPacket, id: id, pkt: p, bypassDrop: bypassDrop})
}

// QueueRaw enqueues an opaque forwarded payload.
func (h *handle) QueueRaw(raw []byte, bypassDrop bool) {
	h.send(command{kind: cmdRawPacket, raw: raw, bypassDrop: bypassDrop})
}

// Sync blocks until every command queued before this call has been applied,
// used to make sure buffered packets actually reached the socket before
// proceeding with a switch. A no-op if the writer task has already exited.
func (h *handle) Sync() {
	done := make(chan struct{})
	if !h.send(command{kind: cmdSync, done: done}) {
		return
	}
	select {
	case <-done:
	case <-h.stopCh:
	}
}

// DropRedundant toggles whether queued packets are silently discarded
// instead of written - set while a server switch is tearing down the old
// backend connection so its straggling packets never reach the client.
func (h *handle) DropRedundant(drop bool) {
	h.send(command{kind: cmdDropRedundant, drop: drop})
}

// OnBundleReceived flips the in-bundle flag, called when a BundleDelimiter
// passes through.
func (h *handle) OnBundleReceived() {
	h.send(command{kind: cmdBundleReceived})
}

// send enqueues cmd for the writer task, backing off instead of blocking
// forever (or panicking on a closed channel) once Disconnect has fired.
// Reports whether the command was actually delivered.
func (h *handle) send(cmd command) bool {
	select {
	case h.commands <- cmd:
		return true
	case <-h.stopCh:
		return false
	}
}

// Disconnect closes the underlying connection and signals the writer task
// to exit, idempotently. stopCh (not a closed commands channel) is what
// unblocks both the writer's select loop and any in-flight send/Sync calls,
// since commands is never closed - closing a channel that QueuePacket/
// QueueRaw send on concurrently would panic the caller.
func (h *handle) Disconnect() {
	if h.closed.Swap(true) {
		return
	}
	close(h.stopCh)
}

// WaitForDisconnect blocks until the writer task has fully exited -
// sequencing cleanup (unregistering the player, disconnecting the partner
// half) after the last buffered packet is either written or dropped.
func (h *handle) WaitForDisconnect() {
	h.disconnectWait.RLock()
	//lint:ignore SA2001 intentional: block until writer task releases the lock, nothing to read
	h.disconnectWait.RUnlock()
}
