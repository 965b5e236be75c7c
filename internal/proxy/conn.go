// Package proxy implements the connection pipeline: the initial handshake
// and login handler (C4), the backend connector (C5), the connection handle
// and packet pump (C6), the intercept handlers (§4.7), the player/switch
// orchestrator (C7), and the proxy session and accept loop (C8/C9).
//
// Grounded throughout on original_source/src/server/{initial_handler,backend,
// proxy_handler,mod}.rs and on the teacher's pkg/proxy/{connection,player,
// session_client_play}.go for the Go idiom (sessionHandler interface,
// sync.Once-guarded close, atomic flags, RWMutex-guarded mutable fields).
package proxy

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/crust-proxy/crust/internal/proto/frame"
	"github.com/crust-proxy/crust/internal/proto/packet"
	"github.com/crust-proxy/crust/internal/version"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrClosedConn indicates a connection is already closed.
var ErrClosedConn = errors.New("proxy: connection is closed")

// conn is one half of a proxied session: either the client-facing socket or
// the backend-facing socket. Both halves are built identically; direction
// only changes which packet.Direction the frame codec uses.
type conn struct {
	nc net.Conn

	readBuf  *bufio.Reader
	writeBuf *bufio.Writer
	codec    *frame.Codec

	writeMu sync.Mutex // serializes frame writes (encoder + flush)

	cancel context.CancelFunc
	closeOnce sync.Once
	closed    atomic.Bool

	mu       sync.RWMutex
	state    packet.State
	protocol version.Protocol

	readTimeout       time.Duration
	connectionTimeout time.Duration
}

func newConn(nc net.Conn, dir packet.Direction, readTimeout, connTimeout time.Duration) *conn {
	return &conn{
		nc:                nc,
		readBuf:           bufio.NewReader(nc),
		writeBuf:          bufio.NewWriter(nc),
		codec:             frame.New(dir, packet.Default),
		state:             packet.Handshake,
		protocol:          version.Protocol(0),
		readTimeout:       readTimeout,
		connectionTimeout: connTimeout,
	}
}

func (c *conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

func (c *conn) State() packet.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *conn) SetState(s packet.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.codec.SetState(s)
}

func (c *conn) Protocol() version.Protocol {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.protocol
}

func (c *conn) SetProtocol(pv version.Protocol) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.protocol = pv
	c.codec.SetProtocol(pv)
}

func (c *conn) SetCompressionThreshold(t int) {
	c.codec.SetCompressionThreshold(t)
}

// EnableEncryption swaps the raw reader/writer for cipher-wrapped ones, using
// secret as both the AES key and CFB8 feedback register.
func (c *conn) EnableEncryption(secret []byte) error {
	encR, encW, err := c.codec.EnableEncryption(c.readBuf, c.writeBuf, secret)
	if err != nil {
		return err
	}
	c.readBuf = bufio.NewReader(encR)
	c.writeBuf = bufio.NewWriter(encW)
	return nil
}

// ReadPacket blocks until one frame is available, applying the configured
// read deadline, matching the teacher's loop()/readLoop() read-timeout shape.
func (c *conn) ReadPacket() (*frame.Context, error) {
	if c.readTimeout > 0 {
		_ = c.nc.SetReadDeadline(time.Now().Add(c.readTimeout))
	} else {
		// Clear any deadline a previous InterruptRead left behind - otherwise
		// a connection with timeouts disabled would be stuck with a
		// permanently-expired "now" deadline after its reader was retired
		// once.
		_ = c.nc.SetReadDeadline(time.Time{})
	}
	return c.codec.ReadPacket(c.readBuf)
}

// InterruptRead forces a blocked ReadPacket to return an error immediately,
// without closing the underlying connection - used to retire a reader
// goroutine whose socket must stay open (the client side of a server
// switch), where Close would tear down a connection this proxy still needs.
func (c *conn) InterruptRead() {
	_ = c.nc.SetReadDeadline(time.Now())
}

// WritePacket encodes, frames, and flushes a known packet.
func (c *conn) WritePacket(id packet.ID, p packet.Packet) error {
	if c.Closed() {
		return ErrClosedConn
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.connectionTimeout > 0 {
		_ = c.nc.SetWriteDeadline(time.Now().Add(c.connectionTimeout))
	}
	if err := c.codec.WritePacket(c.writeBuf, id, p); err != nil {
		c.closeOnErr(err)
		return err
	}
	return c.flushLocked()
}

// WriteRaw frames and flushes an already-encoded id+body payload (forwarding
// path for packets this proxy doesn't interpret).
func (c *conn) WriteRaw(raw []byte) error {
	if c.Closed() {
		return ErrClosedConn
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.connectionTimeout > 0 {
		_ = c.nc.SetWriteDeadline(time.Now().Add(c.connectionTimeout))
	}
	if err := c.codec.WriteRaw(c.writeBuf, raw); err != nil {
		c.closeOnErr(err)
		return err
	}
	return c.flushLocked()
}

func (c *conn) flushLocked() error {
	err := c.writeBuf.Flush()
	if err != nil {
		c.closeOnErr(err)
	}
	return err
}

func (c *conn) closeOnErr(err error) {
	if err == nil {
		return
	}
	_ = c.Close()
	if errors.Is(err, ErrClosedConn) || errors.Is(err, io.EOF) {
		return
	}
	zap.L().Debug("proxy: error writing packet, closing connection", zap.Error(err))
}

func (c *conn) Closed() bool { return c.closed.Load() }

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.cancel != nil {
			c.cancel()
		}
		err = c.nc.Close()
	})
	return err
}
