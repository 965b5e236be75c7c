package proxy

import (
	"time"

	"github.com/crust-proxy/crust/internal/chat"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// runPlayerSession resolves an initial backend, wires up both connection
// halves' reader pumps, and blocks until the client disconnects. Grounded on
// initial_handler::handle's post-login spawn and proxy_handler::handle in
// original_source/src/server/{initial_handler,proxy_handler}.rs.
func (p *Proxy) runPlayerSession(pl *player) {
	target := pl.nextServerToTry("")
	var server *connHalf
	for target != "" {
		info, ok := p.servers.Server(target)
		if !ok {
			target = pl.nextServerToTry("")
			continue
		}
		var err error
		server, err = p.connectBackend(info, pl)
		if err == nil {
			break
		}
		zap.L().Debug("backend connect failed", zap.String("server", target), zap.Error(err))
		target = pl.nextServerToTry(target)
	}
	if server == nil {
		pl.disconnect(chat.RedText("No server found for you to connect"))
		p.players.remove(pl)
		return
	}
	pl.mu.Lock()
	pl.server = server
	pl.serverLabel = target
	pl.mu.Unlock()

	limiter := newPacketRateLimiter(p.cfg.RateLimit.MaxPackets, time.Duration(p.cfg.RateLimit.PerMillis)*time.Millisecond)
	backendLimiter := newPacketRateLimiter(p.cfg.RateLimit.MaxPackets, time.Duration(p.cfg.RateLimit.PerMillis)*time.Millisecond)

	p.startClientReader(pl, server, limiter)
	go p.readLoop(pl, server, pl.client, backendLimiter, false, nil)

	pl.client.handle.WaitForDisconnect()
	pl.teardown()
}

// startClientReader launches the client-side reader goroutine and records a
// stop function on pl that a server switch can use to retire it before
// starting its replacement against the new backend - without this hand-off,
// two goroutines would read pl.client.conn.readBuf concurrently. Grounded on
// the teacher's pattern of pairing a cancellation closure with the state it
// guards rather than threading a context.Context through the whole pump.
func (p *Proxy) startClientReader(pl *player, to *connHalf, limiter *packetRateLimiter) {
	var retiring atomic.Bool
	done := make(chan struct{})

	pl.setStopClientReader(func() {
		retiring.Store(true)
		pl.client.conn.InterruptRead()
		<-done
	})

	go func() {
		defer close(done)
		p.readLoop(pl, pl.client, to, limiter, true, retiring.Load)
	}()
}

// readLoop is the per-half reader task: decode, rate-limit, intercept, and
// otherwise forward to the partner half. Grounded on proxy_handler::read_task
// in original_source/src/server/proxy_handler.rs.
//
// retiring is non-nil only for the client-side reader; when it reports true
// after a read error, the error was startClientReader's own InterruptRead
// forcing an orderly hand-off to the replacement reader a switch just
// started, not a real disconnect, so the client half must be left open.
func (p *Proxy) readLoop(pl *player, from, to *connHalf, limiter *packetRateLimiter, fromClient bool, retiring func() bool) {
	for {
		ctx, err := from.conn.ReadPacket()
		if err != nil {
			if retiring == nil || !retiring() {
				from.handle.Disconnect()
			}
			return
		}
		if !limiter.Allow() {
			zap.L().Warn("proxy: packet rate limit exceeded, disconnecting", zap.Stringer("remoteAddr", from.conn.RemoteAddr()))
			pl.client.handle.Disconnect()
			if s := pl.currentServer(); s != nil {
				s.handle.Disconnect()
			}
			return
		}

		var forward bool
		var err2 error
		if fromClient {
			forward, err2 = p.handleClientPacket(pl, ctx)
		} else {
			forward, err2 = p.handleServerPacket(pl, ctx)
		}
		if err2 != nil {
			zap.L().Debug("proxy: intercept error", zap.Error(err2))
			continue
		}
		if !forward {
			continue
		}

		// Forward the original id+body bytes unchanged - most whitelisted
		// packets only peek at fields before forwarding, matching
		// ServerPacketHandler's default "else -> forward" arm in the
		// original. Packets the proxy constructs itself (e.g. the
		// StartConfiguration a switch sends) go through handle.QueuePacket
		// directly from intercept.go/switch.go instead of this path.
		to.handle.QueueRaw(ctx.Raw, false)
	}
}
