package proxy

import (
	"strings"

	"github.com/crust-proxy/crust/internal/chat"
	"github.com/crust-proxy/crust/internal/proto/frame"
	"github.com/crust-proxy/crust/internal/proto/packet"
	"go.uber.org/zap"
)

// handleClientPacket inspects one packet read from the client before the
// reader pump forwards it to the current backend. Returning forward=false
// means the packet was fully handled here and must not reach the backend (or
// has already been re-sent in a different shape). Grounded on
// ClientPacketHandler::handle_packet in
// original_source/src/server/packet_handler.rs, restructured as a type
// switch over the registered semantic IDs the way the teacher's
// clientPlaySessionHandler.handlePacket does.
func (p *Proxy) handleClientPacket(pl *player, ctx *frame.Context) (forward bool, err error) {
	if !ctx.Known {
		return true, nil
	}

	switch ctx.Type {
	case packet.IDConfigurationAck:
		return p.handleClientConfigurationAck(pl)

	case packet.IDClientInformation:
		var ci packet.ClientInformation
		if err := ci.Decode(packet.NewReader(ctx.Body), pl.client.conn.Protocol()); err == nil {
			pl.setCachedSettings(&ci)
		}
		return true, nil

	case packet.IDPluginMessageServerBound:
		var pm packet.PluginMessage
		if err := pm.Decode(packet.NewReader(ctx.Body), pl.client.conn.Protocol()); err == nil {
			p.handleClientPluginMessage(pl, &pm)
		}
		return true, nil

	case packet.IDChatCommand:
		var cc packet.ChatCommand
		if err := cc.Decode(packet.NewReader(ctx.Body), pl.client.conn.Protocol()); err != nil {
			return true, nil
		}
		if p.commands.Dispatch(playerCommandSource{pl: pl}, cc.Command) {
			return false, nil
		}
		return true, nil

	case packet.IDTabCompleteRequest:
		var tc packet.TabCompleteRequest
		if err := tc.Decode(packet.NewReader(ctx.Body), pl.client.conn.Protocol()); err != nil {
			return true, nil
		}
		if p.handleClientTabComplete(pl, &tc) {
			return false, nil
		}
		return true, nil

	default:
		return true, nil
	}
}

// handleClientTabComplete answers a tab-complete request locally when it is
// completing a proxy-registered command's name or the "/server" command's
// single argument, so the backend never has to be consulted for suggestions
// it has no way to give anyway. Returns false (let the backend handle it) for
// anything else, matching ClientPacketHandler::handle_tab_complete in
// original_source/src/server/packet_handler.rs.
func (p *Proxy) handleClientTabComplete(pl *player, tc *packet.TabCompleteRequest) bool {
	text := tc.Text
	if !strings.HasPrefix(text, "/") {
		return false
	}
	text = text[1:]

	fields := strings.Fields(text)
	trailingSpace := strings.HasSuffix(tc.Text, " ")

	var matches []string
	var start int32

	switch {
	case len(fields) == 0, len(fields) == 1 && !trailingSpace:
		prefix := ""
		if len(fields) == 1 {
			prefix = fields[0]
		}
		matches = p.commands.Suggest(prefix)
		start = int32(len(tc.Text) - len(prefix))

	case fields[0] == "server" && (len(fields) == 1 || len(fields) == 2) && !(len(fields) == 2 && trailingSpace):
		prefix := ""
		if len(fields) == 2 {
			prefix = fields[1]
		}
		for _, s := range p.servers.All() {
			if strings.HasPrefix(strings.ToLower(s.Name), strings.ToLower(prefix)) {
				matches = append(matches, s.Name)
			}
		}
		start = int32(len(tc.Text) - len(prefix))

	default:
		return false
	}

	body, err := packet.BuildTabMatches(start, int32(len(tc.Text))-start, matches)
	if err != nil {
		return false
	}
	pl.client.handle.QueuePacket(packet.IDTabCompleteResponse, &packet.TabCompleteResponse{
		TransactionID: tc.TransactionID,
		Raw:           body,
	}, false)
	return true
}

// handleClientConfigurationAck reacts to the client's "Acknowledge
// Configuration" packet, which arrives in one of two state contexts sharing
// the same semantic ID: received while the client is in Play, it means "I am
// entering Configuration" (a StartConfiguration round-trip, whether from
// this proxy's own switch orchestrator or a backend pushing one directly);
// received while the client is already in Configuration, it means "I
// finished configuring, move me to Play". Grounded on
// ClientPacketHandler::handle_packet in
// original_source/src/server/packet_handler.rs.
//
// When the switch orchestrator is waiting on the Play-context ack, it is
// swallowed unconditionally - the spec is explicit that this must never
// reach a backend mid-switch, even though the original forwards it
// unconditionally in that case (see DESIGN.md's Open Question decision).
func (p *Proxy) handleClientConfigurationAck(pl *player) (forward bool, err error) {
	switch pl.client.conn.State() {
	case packet.Play:
		pl.client.conn.SetState(packet.Configuration)
		if pl.isSwitching.Load() {
			pl.notifyConfigAck()
			return false, nil
		}
		if s := pl.currentServer(); s != nil {
			s.conn.SetState(packet.Configuration)
		}
		return true, nil
	default:
		pl.client.conn.SetState(packet.Play)
		if s := pl.currentServer(); s != nil {
			s.conn.SetState(packet.Play)
		}
		return true, nil
	}
}

// handleClientPluginMessage applies the channel-registration bookkeeping the
// spec carries over from Forge/FML-era negotiation, matching
// clientPlaySessionHandler.handlePluginMessage in the teacher's
// pkg/proxy/session_client_play.go, simplified to this proxy's narrower
// passthrough-only plugin message model.
func (p *Proxy) handleClientPluginMessage(pl *player, pm *packet.PluginMessage) {
	switch canonicalChannel(pm.Channel) {
	case "minecraft:register":
		for _, ch := range strings.Split(string(pm.Data), "\x00") {
			if ch != "" {
				pl.registerChannel(ch)
			}
		}
	case "minecraft:unregister":
		for _, ch := range strings.Split(string(pm.Data), "\x00") {
			pl.unregisterChannel(ch)
		}
	case "minecraft:brand":
		pl.setClientBrand(packet.DecodeBrandString(pm.Data))
	}
}

// canonicalChannel normalizes the legacy pre-1.13 "REGISTER"/"UNREGISTER"
// channel names (no namespace, all caps) to their modern minecraft:
// equivalents so channel bookkeeping doesn't need two code paths.
func canonicalChannel(ch string) string {
	switch ch {
	case "REGISTER":
		return "minecraft:register"
	case "UNREGISTER":
		return "minecraft:unregister"
	default:
		return ch
	}
}

// handleServerPacket inspects one packet read from the current backend
// before the reader pump forwards it to the client. Grounded on
// ServerPacketHandler::handle_packet in
// original_source/src/server/packet_handler.rs.
func (p *Proxy) handleServerPacket(pl *player, ctx *frame.Context) (forward bool, err error) {
	if !ctx.Known {
		return true, nil
	}

	switch ctx.Type {
	case packet.IDDisconnect:
		var dc packet.Disconnect
		if err := dc.Decode(packet.NewReader(ctx.Body), pl.client.conn.Protocol()); err != nil {
			return true, nil
		}
		p.handleBackendKick(pl, dc.Reason)
		return false, nil

	case packet.IDPluginMessageClientBound:
		var pm packet.PluginMessage
		if err := pm.Decode(packet.NewReader(ctx.Body), pl.client.conn.Protocol()); err != nil {
			return true, nil
		}
		if canonicalChannel(pm.Channel) == "minecraft:brand" {
			p.handleServerBrand(pl, &pm)
			return false, nil
		}
		return true, nil

	case packet.IDCommands:
		extra := p.commands.Names()
		if len(extra) == 0 {
			return true, nil
		}
		spliced, err := packet.SpliceCommandGraph(ctx.Body, extra)
		if err != nil {
			// An argument parser this proxy doesn't know the property shape
			// of - forward the backend's graph unmodified rather than risk
			// corrupting it.
			return true, nil
		}
		pl.client.handle.QueuePacket(packet.IDCommands, &packet.Commands{Raw: spliced}, false)
		return false, nil

	case packet.IDBundleDelimiter:
		// Forwarded like any other packet - the delimiter itself is part of
		// normal protocol framing for the client. OnBundleReceived toggles
		// the client half's in-bundle flag; the switch orchestrator does not
		// consult that flag.
		pl.client.handle.OnBundleReceived()
		return true, nil

	case packet.IDStartConfiguration:
		// The backend itself wants to reconfigure the client (e.g. a resource
		// pack push via a plugin on that server) - not a proxy-orchestrated
		// switch, so just let the client's own state machine follow suit.
		return true, nil

	default:
		return true, nil
	}
}

// handleServerBrand rewrites the backend's "minecraft:brand" plugin message
// so the client sees which proxy it's connected through rather than the
// backend server software pretending to be the only thing in the chain -
// grounded on the "<brand> -> <upstream>" style rewrite in
// ServerPacketHandler::handle_plugin_message in
// original_source/src/server/packet_handler.rs.
func (p *Proxy) handleServerBrand(pl *player, pm *packet.PluginMessage) {
	upstream := packet.DecodeBrandString(pm.Data)
	pl.setBackendBrand(upstream)
	rewritten := packet.EncodeBrandString("Crust -> " + upstream)
	pl.client.handle.QueuePacket(packet.IDPluginMessageClientBound, &packet.PluginMessage{
		Channel: pm.Channel,
		Data:    rewritten,
	}, false)
}

// handleBackendKick converts an in-game Kick from the current backend into a
// chat notice plus an automatic fallback attempt, rather than tearing down
// the client's connection outright - matching the "Kick-in-Game" handling
// described in SPEC_FULL.md's intercept table, a deliberate improvement over
// a bare disconnect-on-kick so a single backend's d/c doesn't end the whole
// session when other servers in the priority chain are still reachable.
func (p *Proxy) handleBackendKick(pl *player, reason []byte) {
	label := pl.serverLabelSnapshot()
	zap.S().Debugf("%s was kicked by %s: %s", pl, label, string(reason))
	notice := chat.Text("Disconnected from " + label + ", trying another server...")
	content, err := chatReasonBytes(notice, pl.client.conn.Protocol())
	if err == nil {
		pl.client.handle.QueuePacket(packet.IDSystemChatMessage, &packet.SystemChatMessage{Content: content}, false)
	}
	go p.reconnect(pl)
}
