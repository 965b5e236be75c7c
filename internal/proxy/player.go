package proxy

import (
	"sync"

	"github.com/crust-proxy/crust/internal/auth"
	"github.com/crust-proxy/crust/internal/proto/packet"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// player is a connected, authenticated session: the client half, the
// (mutable) backend half, and the synchronization state a mid-session server
// switch needs. Grounded on ProxiedPlayer (original_source/src/server/mod.rs)
// and PlayerSyncData (original_source/src/server/proxy_handler.rs), in the
// teacher's connectedPlayer idiom (embedding, RWMutex-guarded mutable
// fields, atomic flags).
type player struct {
	proxy *Proxy

	profile     auth.GameProfile
	virtualHost string
	onlineMode  bool

	client *connHalf

	mu               sync.RWMutex
	server           *connHalf // nil until a backend connection completes
	connectingServer *connHalf
	serverLabel      string

	isSwitching atomic.Bool

	configAckNotify chan struct{}
	gameAckNotify   chan struct{}

	settingsMu sync.RWMutex
	settings   *packet.ClientInformation

	channelsMu sync.RWMutex
	channels   map[string]struct{}

	serversToTry []string
	tryIndex     int

	clientReaderMu   sync.Mutex
	stopClientReader func()

	brandMu      sync.RWMutex
	clientBrand  string
	backendBrand string
}

// connHalf bundles a conn with its writer-task handle and the protocol state
// both need to agree on - the unit the switch orchestrator tears down and
// rebuilds.
type connHalf struct {
	conn   *conn
	handle *handle
}

func newPlayer(proxy *Proxy, client *connHalf, profile auth.GameProfile, virtualHost string, onlineMode bool) *player {
	return &player{
		proxy:           proxy,
		profile:         profile,
		virtualHost:     virtualHost,
		onlineMode:      onlineMode,
		client:          client,
		channels:        make(map[string]struct{}),
		configAckNotify: make(chan struct{}, 1),
		gameAckNotify:   make(chan struct{}, 1),
	}
}

func (p *player) String() string { return p.profile.Name }

// serverLabelSnapshot reads the current backend's configured name under lock,
// for logging/notices.
func (p *player) serverLabelSnapshot() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.serverLabel
}

func (p *player) currentServer() *connHalf {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.server
}

func (p *player) inFlight() *connHalf {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connectingServer
}

func (p *player) cachedSettings() *packet.ClientInformation {
	p.settingsMu.RLock()
	defer p.settingsMu.RUnlock()
	return p.settings
}

func (p *player) setCachedSettings(s *packet.ClientInformation) {
	p.settingsMu.Lock()
	defer p.settingsMu.Unlock()
	p.settings = s
}

func (p *player) knownChannels() []string {
	p.channelsMu.RLock()
	defer p.channelsMu.RUnlock()
	out := make([]string, 0, len(p.channels))
	for c := range p.channels {
		out = append(out, c)
	}
	return out
}

func (p *player) registerChannel(ch string) {
	p.channelsMu.Lock()
	defer p.channelsMu.Unlock()
	p.channels[ch] = struct{}{}
}

func (p *player) unregisterChannel(ch string) {
	p.channelsMu.Lock()
	defer p.channelsMu.Unlock()
	delete(p.channels, ch)
}

// notifyConfigAck and notifyGameAck signal the switch orchestrator that the
// client has acknowledged the corresponding step, matching the
// config_ack_notify/game_ack_notify Notify pair in
// original_source/src/server/proxy_handler.rs. Sends are non-blocking since
// only one waiter ever exists per switch and a stray duplicate ack (the
// client is not supposed to send one, but nothing stops it) must never block
// the reader loop.
func (p *player) notifyConfigAck() {
	select {
	case p.configAckNotify <- struct{}{}:
	default:
	}
}

func (p *player) notifyGameAck() {
	select {
	case p.gameAckNotify <- struct{}{}:
	default:
	}
}

// drainSwitchNotify clears any stale signal left over from a previous
// switch before the orchestrator starts waiting on a fresh one.
func (p *player) drainSwitchNotify() {
	select {
	case <-p.configAckNotify:
	default:
	}
	select {
	case <-p.gameAckNotify:
	default:
	}
}

// nextServerToTry resolves the next backend worth attempting when the
// current one drops unexpectedly, skipping servers already tried or already
// connected - mirrors connectedPlayer.nextServerToTry in the teacher.
func (p *player) nextServerToTry(current string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.serversToTry) == 0 {
		if hosts, ok := p.proxy.cfg.ForcedHosts[p.virtualHost]; ok && len(hosts) > 0 {
			p.serversToTry = hosts
		} else {
			p.serversToTry = p.proxy.servers.AttemptConnectionOrder()
		}
	}

	for i := p.tryIndex; i < len(p.serversToTry); i++ {
		candidate := p.serversToTry[i]
		if candidate == p.serverLabel || candidate == current {
			continue
		}
		if _, ok := p.proxy.servers.Server(candidate); ok {
			p.tryIndex = i + 1
			return candidate
		}
	}
	return ""
}

// setClientBrand and clientBrandSnapshot cache the client's self-reported
// "minecraft:brand" plugin-message payload, set from
// handleClientPluginMessage. A server switch does not replay it to the new
// backend; only the cached ClientInformation is replayed.
func (p *player) setClientBrand(brand string) {
	p.brandMu.Lock()
	defer p.brandMu.Unlock()
	p.clientBrand = brand
}

func (p *player) clientBrandSnapshot() string {
	p.brandMu.RLock()
	defer p.brandMu.RUnlock()
	return p.clientBrand
}

// setBackendBrand and backendBrandSnapshot cache the current backend's
// self-reported brand, so the rewritten "Crust -> <upstream>" string handed
// to the client stays stable even if intercept.go needs to re-derive it
// without re-reading the original packet.
func (p *player) setBackendBrand(brand string) {
	p.brandMu.Lock()
	defer p.brandMu.Unlock()
	p.backendBrand = brand
}

func (p *player) backendBrandSnapshot() string {
	p.brandMu.RLock()
	defer p.brandMu.RUnlock()
	return p.backendBrand
}

// setStopClientReader records the stop function for the currently running
// client-side reader goroutine, matching the teacher's pattern of storing a
// cancellation closure alongside the state it cancels rather than reaching
// for a fresh context.Context per switch.
func (p *player) setStopClientReader(stop func()) {
	p.clientReaderMu.Lock()
	defer p.clientReaderMu.Unlock()
	p.stopClientReader = stop
}

// retireClientReader stops and waits for the previous client-side reader
// goroutine to fully exit, if one is running, before a caller starts its
// replacement - without this, a server switch would leave two goroutines
// reading pl.client.conn.readBuf concurrently.
func (p *player) retireClientReader() {
	p.clientReaderMu.Lock()
	stop := p.stopClientReader
	p.clientReaderMu.Unlock()
	if stop != nil {
		stop()
	}
}

// disconnect closes the client connection with reason, tearing down any
// backend connection first.
func (p *player) disconnect(reason component.Component) {
	if p.client.conn.Closed() {
		return
	}
	server := p.currentServer()
	inFlight := p.inFlight()
	if server != nil {
		server.handle.Disconnect()
	}
	if inFlight != nil {
		inFlight.handle.Disconnect()
	}

	reasonBytes, err := chatReasonBytes(reason, p.client.conn.Protocol())
	if err == nil {
		_ = p.client.conn.WritePacket(packet.IDDisconnect, &packet.Disconnect{Reason: reasonBytes})
	}
	p.client.handle.Disconnect()
	zap.S().Infof("%s has disconnected", p)
}

// teardown unregisters the player and fires the disconnect-status bookkeeping
// once the client connection is fully closed; called from runPlayerSession
// (see pump.go) after the client handle's WaitForDisconnect returns.
func (p *player) teardown() {
	server := p.currentServer()
	inFlight := p.inFlight()
	if server != nil {
		server.handle.Disconnect()
	}
	if inFlight != nil {
		inFlight.handle.Disconnect()
	}
	p.proxy.players.remove(p)
}
