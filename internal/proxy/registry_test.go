package proxy

import (
	"testing"

	"github.com/crust-proxy/crust/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServerList() *ServerList {
	cfg := config.Config{
		Servers: []config.ServerInfo{
			{Name: "lobby", Address: "127.0.0.1:25566"},
			{Name: "survival", Address: "127.0.0.1:25567"},
		},
		Priorities: []string{"lobby", "survival"},
	}
	return newServerList(cfg)
}

func TestServerListLookup(t *testing.T) {
	l := testServerList()

	s, ok := l.Server("lobby")
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:25566", s.Address)

	_, ok = l.Server("nonexistent")
	assert.False(t, ok)
}

func TestServerListAll(t *testing.T) {
	l := testServerList()
	all := l.All()
	assert.Len(t, all, 2)
}

func TestServerListAttemptConnectionOrderIsACopy(t *testing.T) {
	l := testServerList()
	order := l.AttemptConnectionOrder()
	require.Equal(t, []string{"lobby", "survival"}, order)

	order[0] = "mutated"
	order2 := l.AttemptConnectionOrder()
	assert.Equal(t, "lobby", order2[0], "mutating the returned slice must not affect internal state")
}
