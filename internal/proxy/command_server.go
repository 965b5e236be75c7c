package proxy

import (
	"fmt"
	"strings"

	cmdpkg "github.com/crust-proxy/crust/internal/command"
	"github.com/crust-proxy/crust/internal/chat"
	"github.com/crust-proxy/crust/internal/proto/packet"
	"go.uber.org/zap"
)

// commandRegistry is this proxy's thin use of the external command.Registry
// interface, holding only the one built-in command (SPEC_FULL.md §E3).
type commandRegistry struct {
	*cmdpkg.Registry
}

func newCommandRegistry() *commandRegistry {
	return &commandRegistry{Registry: cmdpkg.NewRegistry()}
}

func (r *commandRegistry) register(c cmdpkg.Command) { r.Registry.Register(c) }

// playerCommandSource adapts a player to command.Source.
type playerCommandSource struct{ pl *player }

func (s playerCommandSource) Name() string { return s.pl.profile.Name }

func (s playerCommandSource) SendReply(text string) {
	content, err := chatReasonBytes(chat.Text(text), s.pl.client.conn.Protocol())
	if err != nil {
		zap.L().Debug("command reply encode failed", zap.Error(err))
		return
	}
	_ = s.pl.client.conn.WritePacket(packet.IDSystemChatMessage, &packet.SystemChatMessage{Content: content})
}

// serverCommand implements "/server": with no args, lists configured
// backends as a message; with one arg, triggers a switch. Grounded on
// CommandServer in original_source/src/server/commands/mod.rs.
type serverCommand struct {
	proxy *Proxy
}

func newServerCommand(p *Proxy) *serverCommand { return &serverCommand{proxy: p} }

func (c *serverCommand) Names() []string { return []string{"server"} }

func (c *serverCommand) Execute(src cmdpkg.Source, args []string) {
	pcs, ok := src.(playerCommandSource)
	if !ok {
		return
	}
	if len(args) == 0 {
		all := c.proxy.servers.All()
		names := make([]string, 0, len(all))
		for _, s := range all {
			names = append(names, s.Name)
		}
		pcs.SendReply("Available servers: " + strings.Join(names, ", "))
		return
	}
	target := args[0]
	if _, ok := c.proxy.servers.Server(target); !ok {
		pcs.SendReply(fmt.Sprintf("No such server: %s", target))
		return
	}
	c.proxy.switchServer(pcs.pl, target)
}
