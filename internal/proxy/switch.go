package proxy

import (
	"errors"
	"time"

	"github.com/crust-proxy/crust/internal/chat"
	"github.com/crust-proxy/crust/internal/config"
	"github.com/crust-proxy/crust/internal/proto/packet"
	"go.uber.org/zap"
)

// configAckTimeout bounds how long the switch orchestrator waits for the
// client to acknowledge a StartConfiguration before giving up on the switch
// and restoring the previous backend - matching the bounded wait the
// original's switch_server applies around config_ack_notify rather than
// blocking forever on a client that never responds.
const configAckTimeout = 10 * time.Second

// ErrAlreadySwitching is returned when a second switch is requested while one
// is already in flight for the same player.
var ErrAlreadySwitching = errors.New("proxy: a server switch is already in progress")

// switchServer is the voluntary switch entry point (the "/server" command).
// Grounded on ProxiedPlayer::create_connection_request +
// ConnectionRequest::fire_and_forget in original_source/src/server/mod.rs,
// restructured as direct synchronous calls in a goroutine since Go has no
// event-bus equivalent to fire the original's ServerPreConnectEvent through.
func (p *Proxy) switchServer(pl *player, target string) {
	info, ok := p.servers.Server(target)
	if !ok {
		return
	}
	go func() {
		if err := p.performSwitch(pl, info, target); err != nil {
			zap.S().Infof("%s failed to switch to %s: %v", pl, target, err)
		}
	}()
}

// reconnect is the involuntary fallback path, triggered by handleBackendKick:
// walk the priority chain starting after the server that just dropped the
// player, stopping at the first one that accepts the login. A backend
// connection that closes without a kick does not start this fallback; only
// that backend half's reader ends.
func (p *Proxy) reconnect(pl *player) {
	failed := pl.serverLabelSnapshot()
	target := pl.nextServerToTry(failed)
	for target != "" {
		info, ok := p.servers.Server(target)
		if ok {
			if err := p.performSwitch(pl, info, target); err == nil {
				return
			}
		}
		target = pl.nextServerToTry(failed)
	}
	pl.disconnect(chat.RedText("No server found for you to connect"))
}

// performSwitch runs the full handoff: park the client in the Configuration
// state, connect the new backend, and only once that succeeds tear down the
// old one and replay the client information the new backend needs, grounded
// on proxy_handler::switch_server in original_source/src/server/proxy_handler.rs.
// The client handle's drop_redundant gate is not engaged during the switch:
// packets from the old backend keep reaching the client until the old
// backend is torn down.
//
// The new backend is always connected before the old one is touched: a
// player mid-switch keeps their working connection until a replacement one
// actually exists, and is told in chat if it doesn't, rather than being left
// backend-less with no explanation.
func (p *Proxy) performSwitch(pl *player, info config.ServerInfo, label string) error {
	if !pl.isSwitching.CompareAndSwap(false, true) {
		return ErrAlreadySwitching
	}
	defer pl.isSwitching.Store(false)

	old := pl.currentServer()
	pl.drainSwitchNotify()

	// Park the client: ask it to re-enter Configuration, then wait for its
	// acknowledgement before touching either backend, so a slow client
	// never races the teardown.
	pl.client.handle.QueuePacket(packet.IDStartConfiguration, &packet.StartConfiguration{}, true)

	if !p.awaitConfigAck(pl) {
		return errors.New("client did not acknowledge configuration in time")
	}

	nb, err := p.connectBackend(info, pl)
	if err != nil {
		// Resume the client in Play on the still-intact old connection
		// rather than leaving it stuck in Configuration with nothing on
		// either end, and say why the switch didn't happen.
		pl.client.conn.SetState(packet.Play)
		p.notifySwitchFailure(pl, label, err)
		return err
	}

	if old != nil {
		old.handle.Disconnect()
	}

	if cs := pl.cachedSettings(); cs != nil {
		nb.handle.QueuePacket(packet.IDClientInformation, cs, true)
	}

	limiter := newPacketRateLimiter(p.cfg.RateLimit.MaxPackets, time.Duration(p.cfg.RateLimit.PerMillis)*time.Millisecond)
	backendLimiter := newPacketRateLimiter(p.cfg.RateLimit.MaxPackets, time.Duration(p.cfg.RateLimit.PerMillis)*time.Millisecond)

	pl.mu.Lock()
	pl.server = nb
	pl.serverLabel = label
	pl.mu.Unlock()

	pl.retireClientReader()
	p.startClientReader(pl, nb, limiter)
	go p.readLoop(pl, nb, pl.client, backendLimiter, false, nil)

	zap.S().Infof("%s switched to %s", pl, label)
	return nil
}

// notifySwitchFailure tells the client in chat that a requested switch
// didn't go through, rather than leaving a failed "/server" invocation
// silent on the player's end.
func (p *Proxy) notifySwitchFailure(pl *player, label string, cause error) {
	notice := chat.RedText("Could not connect: " + label + ": " + cause.Error())
	content, err := chatReasonBytes(notice, pl.client.conn.Protocol())
	if err != nil {
		return
	}
	pl.client.handle.QueuePacket(packet.IDSystemChatMessage, &packet.SystemChatMessage{Content: content}, false)
}

// awaitConfigAck blocks until either the client's ConfigurationAck arrives or
// configAckTimeout elapses, whichever comes first.
func (p *Proxy) awaitConfigAck(pl *player) bool {
	select {
	case <-pl.configAckNotify:
		return true
	case <-time.After(configAckTimeout):
		return false
	}
}
