package proxy

import (
	"fmt"
	"sync"

	"github.com/crust-proxy/crust/internal/config"
)

// ServerList is the proxy's registry of configured backends, grounded on
// ServerList in original_source/src/server/mod.rs (there SlotMap-backed for
// stable handles across reconfiguration; here a plain map is sufficient
// since config is loaded once at startup and not hot-reloaded).
type ServerList struct {
	mu         sync.RWMutex
	servers    map[string]config.ServerInfo
	priorities []string
}

func newServerList(cfg config.Config) *ServerList {
	servers := make(map[string]config.ServerInfo, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers[s.Name] = s
	}
	return &ServerList{servers: servers, priorities: cfg.Priorities}
}

// Server looks a backend up by its configured label.
func (l *ServerList) Server(name string) (config.ServerInfo, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.servers[name]
	return s, ok
}

// All returns every configured backend, for the "/server" command's listing.
func (l *ServerList) All() []config.ServerInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]config.ServerInfo, 0, len(l.servers))
	for _, s := range l.servers {
		out = append(out, s)
	}
	return out
}

// AttemptConnectionOrder returns the configured fallback priority chain.
func (l *ServerList) AttemptConnectionOrder() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.priorities))
	copy(out, l.priorities)
	return out
}

// ErrUnknownServer is the error value for an unregistered server label. No
// function in this package returns it: Server reports a missing label
// through its ok result.
var ErrUnknownServer = fmt.Errorf("proxy: unknown server")
