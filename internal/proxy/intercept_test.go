package proxy

import (
	"net"
	"testing"
	"time"

	"github.com/crust-proxy/crust/internal/auth"
	"github.com/crust-proxy/crust/internal/config"
	"github.com/crust-proxy/crust/internal/proto/packet"
	"github.com/crust-proxy/crust/internal/version"
	"github.com/stretchr/testify/require"
)

// newTestPlayer wires a player whose client half is the server side of a
// net.Pipe, with a spawned writer task, so handleClientTabComplete and
// handleServerBrand can queue real packets that the test reads back off the
// client side of the pipe.
func newTestPlayer(t *testing.T, p *Proxy) (*player, net.Conn) {
	t.Helper()
	clientSide, proxySide := net.Pipe()
	t.Cleanup(func() { clientSide.Close() })

	c := newConn(proxySide, packet.ServerBound, 0, 0)
	c.SetState(packet.Play)
	c.SetProtocol(version.R1_20_2)
	h := newHandle(c)
	h.spawnWriteTask()

	pl := newPlayer(p, &connHalf{conn: c, handle: h}, auth.GameProfile{Name: "Alice"}, "", false)
	return pl, clientSide
}

func testProxyWithServers(names ...string) *Proxy {
	servers := make([]config.ServerInfo, 0, len(names))
	for _, n := range names {
		servers = append(servers, config.ServerInfo{Name: n, Address: "127.0.0.1:0"})
	}
	cfg := config.Config{Servers: servers, Priorities: names}
	p := &Proxy{
		cfg:      cfg,
		servers:  newServerList(cfg),
		commands: newCommandRegistry(),
	}
	p.commands.register(newServerCommand(p))
	return p
}

func TestHandleClientTabCompleteSuggestsRegisteredCommandNames(t *testing.T) {
	p := testProxyWithServers("lobby", "survival")
	pl, clientSide := newTestPlayer(t, p)

	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := clientSide.Read(buf)
		readDone <- buf[:n]
	}()

	tc := &packet.TabCompleteRequest{TransactionID: 7, Text: "/serv"}
	ok := p.handleClientTabComplete(pl, tc)
	require.True(t, ok, "a bare command-name prefix must be answered locally")

	select {
	case raw := <-readDone:
		require.NotEmpty(t, raw, "expected a TabCompleteResponse frame to be written to the client")
	case <-time.After(2 * time.Second):
		t.Fatal("no packet was written back to the client")
	}
}

func TestHandleClientTabCompleteSuggestsServerNamesForServerCommandArg(t *testing.T) {
	p := testProxyWithServers("lobby", "survival")
	pl, clientSide := newTestPlayer(t, p)

	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := clientSide.Read(buf)
		readDone <- buf[:n]
	}()

	tc := &packet.TabCompleteRequest{TransactionID: 1, Text: "/server lo"}
	ok := p.handleClientTabComplete(pl, tc)
	require.True(t, ok, "the /server command's single argument must be answered locally")

	select {
	case raw := <-readDone:
		require.NotEmpty(t, raw)
	case <-time.After(2 * time.Second):
		t.Fatal("no packet was written back to the client")
	}
}

func TestHandleClientTabCompleteDeclinesUnknownCommands(t *testing.T) {
	p := testProxyWithServers("lobby")
	pl, _ := newTestPlayer(t, p)

	tc := &packet.TabCompleteRequest{TransactionID: 1, Text: "/gamemode creative"}
	ok := p.handleClientTabComplete(pl, tc)
	require.False(t, ok, "completions for a backend-only command must be forwarded, not answered locally")
}

func TestHandleClientTabCompleteDeclinesNonCommandText(t *testing.T) {
	p := testProxyWithServers("lobby")
	pl, _ := newTestPlayer(t, p)

	tc := &packet.TabCompleteRequest{TransactionID: 1, Text: "hello"}
	ok := p.handleClientTabComplete(pl, tc)
	require.False(t, ok, "chat-message tab completion is not a command and must be forwarded")
}

func TestHandleServerBrandRewritesAndCachesBothBrands(t *testing.T) {
	p := testProxyWithServers("lobby")
	pl, clientSide := newTestPlayer(t, p)

	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := clientSide.Read(buf)
		readDone <- buf[:n]
	}()

	pm := &packet.PluginMessage{Channel: "minecraft:brand", Data: packet.EncodeBrandString("Paper")}
	p.handleServerBrand(pl, pm)

	require.Equal(t, "Paper", pl.backendBrandSnapshot())

	select {
	case raw := <-readDone:
		require.NotEmpty(t, raw, "expected a rewritten brand PluginMessage to be written to the client")
	case <-time.After(2 * time.Second):
		t.Fatal("no packet was written back to the client")
	}
}

func TestHandleClientPluginMessageCachesClientBrand(t *testing.T) {
	p := testProxyWithServers("lobby")
	pl, _ := newTestPlayer(t, p)

	pm := &packet.PluginMessage{Channel: "minecraft:brand", Data: packet.EncodeBrandString("vanilla")}
	p.handleClientPluginMessage(pl, pm)

	require.Equal(t, "vanilla", pl.clientBrandSnapshot())
}
