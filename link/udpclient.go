package link

import (
	"context"
	"fmt"
	"net"

	"mavrouter/internal/mavio"
)

// UDPClientConfig describes a fixed-peer UDP link: the router sends
// every outbound frame to a known remote address, the pattern used for
// a ground-station-to-companion link over an existing network path.
type UDPClientConfig struct {
	RemoteAddress string
}

// clientConn adapts an unconnected UDP socket to the io.ReadWriter
// shape mavio.Parser expects: writes always go to the configured
// remote; reads accept datagrams from any source, so a peer replying
// from a different or ephemeral port is still heard.
type clientConn struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
}

func (c *clientConn) Read(p []byte) (int, error) {
	n, _, err := c.conn.ReadFromUDP(p)
	return n, err
}

func (c *clientConn) Write(p []byte) (int, error) {
	return c.conn.WriteToUDP(p, c.remote)
}

type udpClientTransport struct {
	conn   *net.UDPConn
	parser *mavio.Parser
}

// OpenUDPClient resolves the configured remote address once and binds
// a local UDP socket for the exchange.
func OpenUDPClient(cfg UDPClientConfig, dialectCfg mavio.Config) (Transport, error) {
	raddr, err := net.ResolveUDPAddr("udp", cfg.RemoteAddress)
	if err != nil {
		return nil, fmt.Errorf("link: resolve udp-client remote %s: %w", cfg.RemoteAddress, err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("link: open udp-client socket for %s: %w", cfg.RemoteAddress, err)
	}

	dialectCfg.ReadWriter = &clientConn{conn: conn, remote: raddr}
	parser, err := mavio.NewParser(dialectCfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &udpClientTransport{conn: conn, parser: parser}, nil
}

func (t *udpClientTransport) ReadFrame(ctx context.Context) (mavio.Frame, error) {
	return t.parser.ReadFrame()
}

func (t *udpClientTransport) WriteFrame(ctx context.Context, fr mavio.Frame) error {
	return t.parser.WriteFrame(fr)
}

func (t *udpClientTransport) Close() error {
	return t.conn.Close()
}
