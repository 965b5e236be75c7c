package proxy

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/crust-proxy/crust/internal/auth"
	"github.com/crust-proxy/crust/internal/config"
	"github.com/crust-proxy/crust/internal/proto/packet"
	"github.com/crust-proxy/crust/internal/version"
)

// Sentinel errors for backend connection failures, matching ConnectError in
// original_source/src/server/backend.rs.
var (
	ErrBackendUnreachable  = errors.New("proxy: backend unreachable")
	ErrBackendKicked       = errors.New("proxy: kicked by backend during login")
	ErrBackendOnlineMode   = errors.New("proxy: backend is in online mode, which this proxy does not support forwarding through")
	ErrBackendProtocolMismatch = errors.New("proxy: backend rejected unexpected packet during login")
)

// connectBackend dials server, performs the backend-facing login-as-client
// handshake, and returns a ready connHalf. The profile the backend sends back
// in LoginSuccess is decoded but not returned. Grounded on EstablishedBackend::connect in
// original_source/src/server/backend.rs.
func (p *Proxy) connectBackend(info config.ServerInfo, pl *player) (*connHalf, error) {
	nc, err := net.DialTimeout("tcp", info.Address, p.connectionTimeout())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}

	// This half reads what the backend sends (ClientBound packets) and
	// writes what the proxy sends to the backend on the client's behalf
	// (ServerBound packets) - see packet.Direction.Opposite.
	c := newConn(nc, packet.ClientBound, p.readTimeout(), p.connectionTimeout())
	h := newHandle(c)

	clientAddr, _, _ := net.SplitHostPort(pl.client.conn.RemoteAddr().String())
	host := info.Address
	if p.cfg.SpigotForward {
		host = spigotForwardHost(info.Address, clientAddr, pl.profile)
	}

	hs := &packet.Handshake{
		ProtocolVersion: pl.client.conn.Protocol(),
		ServerAddress:   host,
		ServerPort:      backendPort(info.Address),
		NextState:       packet.NextLogin,
	}
	if err := c.WritePacket(packet.IDHandshake, hs); err != nil {
		return nil, err
	}
	c.SetState(packet.Login)
	c.SetProtocol(pl.client.conn.Protocol())

	if err := c.WritePacket(packet.IDLoginStart, &packet.LoginStart{Name: pl.profile.Name, UUID: pl.profile.ID}); err != nil {
		return nil, err
	}

	for {
		ctx, err := c.ReadPacket()
		if err != nil {
			return nil, fmt.Errorf("reading backend login response: %w", err)
		}
		if !ctx.Known {
			continue
		}
		switch ctx.Type {
		case packet.IDLoginDisconnect:
			var dc packet.Disconnect
			_ = dc.Decode(packet.NewReader(ctx.Body), c.Protocol())
			return nil, fmt.Errorf("%w: %s", ErrBackendKicked, string(dc.Reason))

		case packet.IDEncryptionRequest:
			// A backend demanding its own encryption handshake means it is
			// itself in online mode; this proxy doesn't implement
			// authenticating twice with Mojang on the player's behalf, so
			// the connection attempt fails the same way the original does.
			var req packet.EncryptionRequest
			if err := req.Decode(packet.NewReader(ctx.Body), c.Protocol()); err != nil {
				return nil, err
			}
			return nil, ErrBackendOnlineMode

		case packet.IDLoginSuccess:
			var ok packet.LoginSuccess
			if err := ok.Decode(packet.NewReader(ctx.Body), c.Protocol()); err != nil {
				return nil, err
			}
			if c.Protocol() >= version.R1_20_2 {
				if err := c.WritePacket(packet.IDLoginAcknowledged, &packet.LoginAcknowledged{}); err != nil {
					return nil, err
				}
				c.SetState(packet.Configuration)
			}
			h.spawnWriteTask()
			return &connHalf{conn: c, handle: h}, nil

		case packet.IDSetCompression:
			var sc packet.SetCompression
			if err := sc.Decode(packet.NewReader(ctx.Body), c.Protocol()); err != nil {
				return nil, err
			}
			c.SetCompressionThreshold(int(sc.Threshold))

		case packet.IDLoginPluginRequest:
			var req packet.LoginPluginRequest
			if err := req.Decode(packet.NewReader(ctx.Body), c.Protocol()); err != nil {
				return nil, err
			}
			// Reply with "unhandled" (present=false) - this proxy does not
			// interpret login plugin payloads, matching the original's
			// finish_login default reply.
			if err := c.WritePacket(packet.IDLoginPluginResponse, &packet.LoginPluginResponse{MessageID: req.MessageID, Present: false}); err != nil {
				return nil, err
			}

		case packet.IDCookieRequest:
			var req packet.CookieRequest
			if err := req.Decode(packet.NewReader(ctx.Body), c.Protocol()); err != nil {
				return nil, err
			}
			if err := c.WritePacket(packet.IDCookieResponse, &packet.CookieResponse{Key: req.Key, Present: false}); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("%w: unexpected packet %d during backend login", ErrBackendProtocolMismatch, ctx.Type)
		}
	}
}

// spigotForwardHost builds the BungeeCord/Spigot legacy IP-forwarding host
// string "host\x00clientIP\x00uuid[\x00propsJSON]", matching
// EstablishedBackend::connect in original_source/src/server/backend.rs.
func spigotForwardHost(backendAddr, clientIP string, profile auth.GameProfile) string {
	host, _, _ := net.SplitHostPort(backendAddr)
	s := fmt.Sprintf("%s\x00%s\x00%s", host, clientIP, profile.ID.String())
	if len(profile.Properties) > 0 {
		if b, err := json.Marshal(profile.Properties); err == nil {
			s += "\x00" + string(b)
		}
	}
	return s
}

func backendPort(addr string) uint16 {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 25565
	}
	var port uint16
	_, _ = fmt.Sscanf(portStr, "%d", &port)
	return port
}

// encryptSecretForBackend is used on the rare legacy path where a backend
// itself demands encryption; kept for completeness of the login-as-client
// state machine even though the proxy currently refuses that path (see
// ErrBackendOnlineMode) - a future backend-side online-mode relay would
// reuse this to answer EncryptionRequest the same way a real client does.
func encryptSecretForBackend(pub *rsa.PublicKey) (secret, encryptedSecret []byte, err error) {
	secret = make([]byte, 16)
	if _, err = rand.Read(secret); err != nil {
		return nil, nil, err
	}
	encryptedSecret, err = rsa.EncryptPKCS1v15(rand.Reader, pub, secret)
	return secret, encryptedSecret, err
}

func parsePublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("proxy: backend public key is not RSA")
	}
	return rsaPub, nil
}
