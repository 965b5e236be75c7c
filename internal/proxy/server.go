package proxy

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/crust-proxy/crust/internal/config"
	proxyproto "github.com/pires/go-proxyproto"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/zap"
)

// rsaKeySize matches the original implementation's 1024-bit login key; the
// protocol has never required anything larger and every Notchian client
// accepts it.
const rsaKeySize = 1024

// Proxy is the whole running proxy: configuration, backend registry, the
// process-wide RSA keypair used for the encryption handshake, the player
// registry, and the TCP accept loop. Grounded on ProxyServer in
// original_source/src/server/mod.rs, restructured as an ordinary owned
// struct instead of the original's unsafe `static mut INSTANCE` singleton -
// Go has no equivalent need for that pattern since the proxy is constructed
// once in main and threaded explicitly through every component that needs it.
type Proxy struct {
	cfg     config.Config
	servers *ServerList
	rsaKey  *rsa.PrivateKey
	favicon string

	players *playerRegistry

	listener     net.Listener
	commands     *commandRegistry
	connThrottle *connThrottle
}

// New builds a Proxy from cfg: generates the RSA keypair, loads the
// favicon (if configured), and prepares the server registry. Matches
// run_server's setup phase in original_source/src/server/mod.rs minus the
// tokio runtime construction, which Go's goroutine scheduler makes
// unnecessary - "worker_threads" from ProxyConfig has no Go analogue and is
// intentionally dropped.
func New(cfg config.Config) (*Proxy, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
	if err != nil {
		return nil, fmt.Errorf("generating RSA keypair: %w", err)
	}

	favicon, err := loadFavicon(cfg.Favicon)
	if err != nil {
		zap.S().Warnf("could not load favicon: %v", err)
	}

	p := &Proxy{
		cfg:     cfg,
		servers: newServerList(cfg),
		rsaKey:  key,
		favicon: favicon,
		players: newPlayerRegistry(),
		commands: newCommandRegistry(),
		connThrottle: newConnThrottle(
			cfg.ConnectionThrottleLimit,
			time.Duration(cfg.ConnectionThrottleTimeMillis)*time.Millisecond,
		),
	}
	p.commands.register(newServerCommand(p))
	return p, nil
}

// Run binds the listener and accepts connections until the listener is
// closed, spawning one goroutine per accepted connection (the initial
// handler's handshake/login state machine).
func (p *Proxy) Run() error {
	ln, err := net.Listen("tcp", p.cfg.Bind)
	if err != nil {
		return fmt.Errorf("binding %s: %w", p.cfg.Bind, err)
	}
	if p.cfg.ProxyProtocol {
		ln = &proxyproto.Listener{Listener: ln}
	}
	p.listener = ln
	zap.S().Infof("listening on %s", p.cfg.Bind)

	for {
		c, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && !ne.Temporary() {
				return nil // listener closed, normal shutdown
			}
			zap.L().Warn("accept error", zap.Error(err))
			continue
		}
		if host, _, err := net.SplitHostPort(c.RemoteAddr().String()); err == nil && !p.connThrottle.allow(host) {
			zap.L().Debug("connection throttled", zap.String("remoteAddr", host))
			_ = c.Close()
			continue
		}
		go p.handleInbound(c)
	}
}

// Shutdown disconnects every connected player with reason and closes the
// listener, matching cmd/gate/gate.go's signal-triggered shutdown path.
func (p *Proxy) Shutdown(reason component.Component) {
	if p.listener != nil {
		_ = p.listener.Close()
	}
	p.players.disconnectAll(reason)
}

func (p *Proxy) readTimeout() time.Duration {
	return time.Duration(p.cfg.ReadTimeoutMillis) * time.Millisecond
}

func (p *Proxy) connectionTimeout() time.Duration {
	return time.Duration(p.cfg.ConnectionTimeoutMillis) * time.Millisecond
}

// playerRegistry tracks connected players by UUID, mirroring the
// SlotMap<ProxiedPlayer> in original_source/src/server/mod.rs (a plain
// mutex-guarded map here; Go's GC makes a slot-map's stable-handle/reuse
// machinery unnecessary).
type playerRegistry struct {
	mu      sync.RWMutex
	players map[string]*player
}

func newPlayerRegistry() *playerRegistry {
	return &playerRegistry{players: make(map[string]*player)}
}

func (r *playerRegistry) add(pl *player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[pl.profile.ID.String()] = pl
}

func (r *playerRegistry) remove(pl *player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, pl.profile.ID.String())
}

func (r *playerRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

func (r *playerRegistry) disconnectAll(reason component.Component) {
	r.mu.RLock()
	all := make([]*player, 0, len(r.players))
	for _, pl := range r.players {
		all = append(all, pl)
	}
	r.mu.RUnlock()
	for _, pl := range all {
		pl.disconnect(reason)
	}
}

func (r *playerRegistry) all() []*player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*player, 0, len(r.players))
	for _, pl := range r.players {
		out = append(out, pl)
	}
	return out
}
