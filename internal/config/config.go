// Package config loads and validates the on-disk proxy configuration, JSON
// on disk via viper, matching original_source/src/server/mod.rs's
// ProxyConfig field set and the teacher's cmd/gate/gate.go viper wiring.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// ServerInfo is one backend entry in the server list.
type ServerInfo struct {
	Name    string `mapstructure:"name" json:"name"`
	Address string `mapstructure:"address" json:"address"`
}

// Config is the complete proxy configuration, unmarshalled from config.json.
type Config struct {
	Debug bool `mapstructure:"debug" json:"debug"`

	Bind       string `mapstructure:"bind" json:"bind"`
	MOTD       string `mapstructure:"motd" json:"motd"`
	MaxPlayers int    `mapstructure:"max_players" json:"max_players"`
	Favicon    string `mapstructure:"favicon" json:"favicon"`

	OnlineMode            bool `mapstructure:"online_mode" json:"online_mode"`
	OfflineModeEncryption bool `mapstructure:"offline_mode_encryption" json:"offline_mode_encryption"`

	Servers    []ServerInfo        `mapstructure:"servers" json:"servers"`
	Priorities []string            `mapstructure:"priorities" json:"priorities"`
	ForcedHosts map[string][]string `mapstructure:"forced_hosts" json:"forced_hosts"`

	Compression CompressionConfig `mapstructure:"compression" json:"compression"`

	ReadTimeoutMillis       int  `mapstructure:"read_timeout_ms" json:"read_timeout_ms"`
	ConnectionTimeoutMillis int  `mapstructure:"connection_timeout_ms" json:"connection_timeout_ms"`
	ProxyProtocol           bool `mapstructure:"proxy_protocol" json:"proxy_protocol"`

	SpigotForward bool `mapstructure:"spigot_forward" json:"spigot_forward"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit" json:"rate_limit"`

	// ConnectionThrottleTimeMillis and ConnectionThrottleLimit bound how many
	// new connections a single source IP may open to the accept loop within
	// the given window, matching original_source/src/server/mod.rs's
	// connection_throttle fields - independent of RateLimit, which governs
	// in-session packet volume rather than connection churn.
	ConnectionThrottleTimeMillis int `mapstructure:"connection_throttle_time" json:"connection_throttle_time"`
	ConnectionThrottleLimit      int `mapstructure:"connection_throttle_limit" json:"connection_throttle_limit"`
}

// CompressionConfig controls the frame codec's zlib stage.
type CompressionConfig struct {
	Threshold int `mapstructure:"threshold" json:"threshold"`
	Level     int `mapstructure:"level" json:"level"`
}

// RateLimitConfig controls the per-connection inbound packet rate limiter
// (§3 invariant: disconnect on >= 2000 packets within < 1000ms).
type RateLimitConfig struct {
	MaxPackets int `mapstructure:"max_packets" json:"max_packets"`
	PerMillis  int `mapstructure:"per_millis" json:"per_millis"`
}

// Default returns the configuration written on first run, mirroring
// ProxyConfig::default() in original_source/src/server/mod.rs.
func Default() Config {
	return Config{
		Bind:       "0.0.0.0:25565",
		MOTD:       "A Crust Proxy Server",
		MaxPlayers: 100,
		OnlineMode: true,
		Servers: []ServerInfo{
			{Name: "lobby", Address: "127.0.0.1:25566"},
		},
		Priorities: []string{"lobby"},
		Compression: CompressionConfig{
			Threshold: 256,
			Level:     6,
		},
		ReadTimeoutMillis:       30_000,
		ConnectionTimeoutMillis: 30_000,
		RateLimit: RateLimitConfig{
			MaxPackets: 2000,
			PerMillis:  1000,
		},
		ConnectionThrottleTimeMillis: 4000,
		ConnectionThrottleLimit:      3,
	}
}

// Load reads config.json at path via viper, writing defaults first if the
// file doesn't exist yet.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return Config{}, fmt.Errorf("writing default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

func writeDefault(path string) error {
	v := viper.New()
	v.SetConfigType("json")
	def := Default()
	v.Set("debug", def.Debug)
	v.Set("bind", def.Bind)
	v.Set("motd", def.MOTD)
	v.Set("max_players", def.MaxPlayers)
	v.Set("online_mode", def.OnlineMode)
	v.Set("offline_mode_encryption", def.OfflineModeEncryption)
	v.Set("servers", def.Servers)
	v.Set("priorities", def.Priorities)
	v.Set("compression", def.Compression)
	v.Set("read_timeout_ms", def.ReadTimeoutMillis)
	v.Set("connection_timeout_ms", def.ConnectionTimeoutMillis)
	v.Set("rate_limit", def.RateLimit)
	v.Set("connection_throttle_time", def.ConnectionThrottleTimeMillis)
	v.Set("connection_throttle_limit", def.ConnectionThrottleLimit)
	return v.WriteConfigAs(path)
}

// Validate rejects config combinations that cannot run: empty server list,
// priorities referencing an unknown server label, or a forced host alias
// pointing at nothing.
func Validate(cfg *Config) error {
	if len(cfg.Servers) == 0 {
		return fmt.Errorf("config: at least one server must be configured")
	}
	known := make(map[string]bool, len(cfg.Servers))
	for _, s := range cfg.Servers {
		if s.Name == "" || s.Address == "" {
			return fmt.Errorf("config: server entry missing name or address")
		}
		known[s.Name] = true
	}
	for _, p := range cfg.Priorities {
		if !known[p] {
			return fmt.Errorf("config: priorities references unknown server %q", p)
		}
	}
	for host, list := range cfg.ForcedHosts {
		for _, p := range list {
			if !known[p] {
				return fmt.Errorf("config: forced_hosts[%q] references unknown server %q", host, p)
			}
		}
	}
	if cfg.MaxPlayers < 0 {
		return fmt.Errorf("config: max_players must not be negative")
	}
	return nil
}
