package proxy

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/crust-proxy/crust/internal/auth"
	"github.com/crust-proxy/crust/internal/chat"
	"github.com/crust-proxy/crust/internal/proto/packet"
	"github.com/crust-proxy/crust/internal/version"
	"go.uber.org/zap"
)

// handleInbound is the first goroutine spawned for every accepted socket: it
// runs the handshake, then branches into the status ping/pong loop or the
// full login state machine, matching initial_handler::handle in
// original_source/src/server/initial_handler.rs (there: spawned as a tokio
// task with a 30s handshake timeout; here: a goroutine with per-read
// deadlines already applied by conn.ReadPacket).
func (p *Proxy) handleInbound(nc net.Conn) {
	c := newConn(nc, packet.ServerBound, p.readTimeout(), p.connectionTimeout())
	defer c.Close()

	hs, err := p.readHandshake(c)
	if err != nil {
		zap.L().Debug("handshake failed", zap.Error(err), zap.Stringer("remoteAddr", nc.RemoteAddr()))
		return
	}
	c.SetProtocol(hs.ProtocolVersion)

	switch hs.NextState {
	case packet.NextStatus:
		c.SetState(packet.Status)
		p.handleStatus(c, hs.ProtocolVersion)
	case packet.NextLogin, packet.NextTransfer:
		c.SetState(packet.Login)
		p.handleLogin(c, hs)
	default:
		zap.L().Debug("unknown next_state in handshake", zap.Int32("next_state", int32(hs.NextState)))
	}
}

func (p *Proxy) readHandshake(c *conn) (*packet.Handshake, error) {
	ctx, err := c.ReadPacket()
	if err != nil {
		return nil, err
	}
	if !ctx.Known || ctx.Type != packet.IDHandshake {
		return nil, errors.New("proxy: first packet was not a handshake")
	}
	hs := &packet.Handshake{}
	if err := hs.Decode(packet.NewReader(ctx.Body), version.Protocol(0)); err != nil {
		return nil, err
	}
	return hs, nil
}

// handleStatus answers the server-list ping: one status request/response
// followed by an optional ping/pong, matching handle_status in the original.
func (p *Proxy) handleStatus(c *conn, clientVersion version.Protocol) {
	ctx, err := c.ReadPacket()
	if err != nil || !ctx.Known || ctx.Type != packet.IDStatusRequest {
		return
	}

	resp := buildStatusResponse(clientVersion, p.cfg.MOTD, p.cfg.MaxPlayers, p.players.count(), p.favicon)
	body, err := json.Marshal(resp)
	if err != nil {
		return
	}
	w := packet.NewWriter()
	_ = w.WriteString(string(body))
	statusPkt := &rawStringPacket{Encoded: w.Bytes()}
	if err := c.WritePacket(packet.IDStatusResponse, statusPkt); err != nil {
		return
	}

	// Optional ping/pong: client may close without pinging.
	ctx, err = c.ReadPacket()
	if err != nil || !ctx.Known || ctx.Type != packet.IDPingRequest {
		return
	}
	_ = c.WritePacket(packet.IDPongResponse, &opaquePacket{Body: ctx.Body})
}

// rawStringPacket frames an already-length-prefixed string body, used for
// the status response whose JSON body is built outside the typed packet
// model.
type rawStringPacket struct{ Encoded []byte }

func (r *rawStringPacket) Encode(w *packet.Writer, pv version.Protocol) error {
	return w.WriteBytes(r.Encoded)
}
func (r *rawStringPacket) Decode(rd *packet.Reader, pv version.Protocol) error { return nil }

// opaquePacket re-frames a packet body byte for byte, used for the
// ping/pong echo.
type opaquePacket struct{ Body []byte }

func (o *opaquePacket) Encode(w *packet.Writer, pv version.Protocol) error { return w.WriteBytes(o.Body) }
func (o *opaquePacket) Decode(r *packet.Reader, pv version.Protocol) error { return nil }

// handleLogin drives the {LoginStart, [Encryption], [Compression],
// LoginSuccess, LoginAcknowledged} sequence, matching handle_login in
// original_source/src/server/initial_handler.rs.
func (p *Proxy) handleLogin(c *conn, hs *packet.Handshake) {
	if !version.IsSupported(hs.ProtocolVersion) {
		_ = c.WritePacket(packet.IDLoginDisconnect, kickDisconnect(c, "Unsupported protocol version. "+version.Range()))
		return
	}

	ctx, err := c.ReadPacket()
	if err != nil || !ctx.Known || ctx.Type != packet.IDLoginStart {
		return
	}
	var start packet.LoginStart
	if err := start.Decode(packet.NewReader(ctx.Body), c.Protocol()); err != nil {
		return
	}
	if !auth.IsUsernameValid(start.Name) {
		_ = c.WritePacket(packet.IDLoginDisconnect, kickDisconnect(c, "Invalid username"))
		return
	}

	var profile auth.GameProfile
	switch {
	case p.cfg.OnlineMode:
		profile, err = p.authenticateOnline(c, start.Name)
		if err != nil {
			zap.L().Debug("online-mode auth failed", zap.Error(err))
			_ = c.WritePacket(packet.IDLoginDisconnect, kickDisconnect(c, "Failed to verify username"))
			return
		}

	case p.cfg.OfflineModeEncryption:
		// Same AES handshake as online mode, without Mojang session
		// verification - the client still thinks it's talking to a
		// fully-secured server, matching offline_mode_encryption in
		// original_source/src/server/mod.rs.
		if _, err = p.negotiateEncryption(c); err != nil {
			zap.L().Debug("offline-mode encryption failed", zap.Error(err))
			_ = c.WritePacket(packet.IDLoginDisconnect, kickDisconnect(c, "Failed to negotiate encryption"))
			return
		}
		profile = auth.GameProfile{ID: auth.OfflineUUID(start.Name), Name: start.Name}

	default:
		profile = auth.GameProfile{ID: auth.OfflineUUID(start.Name), Name: start.Name}
	}

	if err := p.finishLogin(c, profile); err != nil {
		zap.L().Debug("finishing login failed", zap.Error(err))
		return
	}

	virtualHost := hs.ServerAddress
	pl := newPlayer(p, &connHalf{conn: c, handle: newHandle(c)}, profile, virtualHost, p.cfg.OnlineMode)
	pl.client.handle.spawnWriteTask()
	p.players.add(pl)
	p.runPlayerSession(pl)
}

// authenticateOnline runs the encryption-request/response exchange and
// verifies the session with Mojang, matching the EncryptionRequest/Response
// handling in initial_handler::handle_login.
func (p *Proxy) authenticateOnline(c *conn, name string) (auth.GameProfile, error) {
	secret, serverID, err := p.negotiateEncryption(c)
	if err != nil {
		return auth.GameProfile{}, err
	}

	clientIP, _, _ := net.SplitHostPort(c.RemoteAddr().String())
	profile, err := auth.HasJoined(name, serverID, secret, &p.rsaKey.PublicKey, clientIP)
	if err != nil {
		return auth.GameProfile{}, err
	}
	return *profile, nil
}

// negotiateEncryption runs the EncryptionRequest/EncryptionResponse exchange
// and enables the connection's AES cipher, without verifying the session
// with Mojang - the half of authenticateOnline that offline_mode_encryption
// needs on its own, since that mode secures the connection without requiring
// a premium account to back it.
func (p *Proxy) negotiateEncryption(c *conn) (secret []byte, serverID string, err error) {
	serverID = randomHexServerID()
	verifyToken := make([]byte, 4)
	_, _ = rand.Read(verifyToken)

	pubDER, err := x509.MarshalPKIXPublicKey(&p.rsaKey.PublicKey)
	if err != nil {
		return nil, "", err
	}

	req := &packet.EncryptionRequest{
		ServerID:           serverID,
		PublicKey:          pubDER,
		VerifyToken:        verifyToken,
		ShouldAuthenticate: true,
	}
	if err := c.WritePacket(packet.IDEncryptionRequest, req); err != nil {
		return nil, "", err
	}

	ctx, err := c.ReadPacket()
	if err != nil {
		return nil, "", err
	}
	if !ctx.Known || ctx.Type != packet.IDEncryptionResponse {
		return nil, "", errors.New("proxy: expected encryption response")
	}
	var resp packet.EncryptionResponse
	if err := resp.Decode(packet.NewReader(ctx.Body), c.Protocol()); err != nil {
		return nil, "", err
	}

	secret, err = rsa.DecryptPKCS1v15(rand.Reader, p.rsaKey, resp.SharedSecret)
	if err != nil {
		return nil, "", fmt.Errorf("decrypting shared secret: %w", err)
	}
	if len(secret) != 16 {
		return nil, "", errors.New("proxy: shared secret must be 16 bytes")
	}
	decryptedToken, err := rsa.DecryptPKCS1v15(rand.Reader, p.rsaKey, resp.VerifyToken)
	if err != nil {
		return nil, "", fmt.Errorf("decrypting verify token: %w", err)
	}
	if subtle.ConstantTimeCompare(decryptedToken, verifyToken) != 1 {
		return nil, "", errors.New("proxy: verify token mismatch")
	}

	if err := c.EnableEncryption(secret); err != nil {
		return nil, "", err
	}
	return secret, serverID, nil
}

// finishLogin sends SetCompression (if enabled) then LoginSuccess, matching
// finish_login in the original.
func (p *Proxy) finishLogin(c *conn, profile auth.GameProfile) error {
	if p.cfg.Compression.Threshold >= 0 {
		if err := c.WritePacket(packet.IDSetCompression, &packet.SetCompression{Threshold: int32(p.cfg.Compression.Threshold)}); err != nil {
			return err
		}
		c.SetCompressionThreshold(p.cfg.Compression.Threshold)
	}

	success := &packet.LoginSuccess{UUID: profile.ID, Name: profile.Name}
	for _, prop := range profile.Properties {
		success.Properties = append(success.Properties, packet.ProfileProperty{
			Name: prop.Name, Value: prop.Value, Signature: prop.Signature, HasSignature: prop.Signature != "",
		})
	}
	if err := c.WritePacket(packet.IDLoginSuccess, success); err != nil {
		return err
	}

	ctx, err := c.ReadPacket()
	if err != nil {
		return err
	}
	if !ctx.Known || ctx.Type != packet.IDLoginAcknowledged {
		return errors.New("proxy: expected login acknowledged")
	}
	c.SetState(packet.Configuration)
	return nil
}

func randomHexServerID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func kickDisconnect(c *conn, msg string) *packet.Disconnect {
	reasonBytes, err := chatReasonBytes(chat.RedText(msg), c.Protocol())
	if err != nil {
		reasonBytes = []byte(`{"text":"` + msg + `"}`)
	}
	return &packet.Disconnect{Reason: reasonBytes}
}
