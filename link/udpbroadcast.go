//go:build linux || darwin

package link

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"mavrouter/internal/mavio"
)

// UDPBroadcastConfig describes a subnet-broadcast UDP link, for an
// ethernet segment with no fixed peer: every outbound frame is sent to
// BroadcastAddress instead of to a learned peer list.
type UDPBroadcastConfig struct {
	ListenAddress    string
	BroadcastAddress string

	// EndpointLock controls receive discipline: locked trusts only the
	// configured broadcast peer and discards datagrams from any other
	// source; unlocked accepts from anyone on the segment, the usual
	// multi-peer broadcast mode.
	EndpointLock bool
}

type udpBroadcastTransport struct {
	conn      *net.UDPConn
	bcastAddr *net.UDPAddr
	parser    *mavio.Parser
}

// OpenUDPBroadcast opens a UDP socket with SO_REUSEADDR and SO_BROADCAST
// set, so more than one router instance can share the same ethernet
// segment.
func OpenUDPBroadcast(cfg UDPBroadcastConfig, dialectCfg mavio.Config) (Transport, error) {
	bcastAddr, err := net.ResolveUDPAddr("udp", cfg.BroadcastAddress)
	if err != nil {
		return nil, fmt.Errorf("link: resolve udp-broadcast address %s: %w", cfg.BroadcastAddress, err)
	}

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if sockErr != nil {
					return
				}
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp", cfg.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("link: listen udp-broadcast %s: %w", cfg.ListenAddress, err)
	}
	conn := pc.(*net.UDPConn)

	bc := &broadcastConn{conn: conn, addr: bcastAddr, locked: cfg.EndpointLock}
	dialectCfg.ReadWriter = bc
	parser, err := mavio.NewParser(dialectCfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &udpBroadcastTransport{conn: conn, bcastAddr: bcastAddr, parser: parser}, nil
}

// broadcastConn adapts a connectionless UDP broadcast socket to the
// io.ReadWriter shape mavio.Parser expects: writes always go to the
// fixed broadcast address; reads come from anyone on the segment
// unless locked, in which case only the configured peer is trusted.
type broadcastConn struct {
	conn   *net.UDPConn
	addr   *net.UDPAddr
	locked bool
}

func (b *broadcastConn) Read(p []byte) (int, error) {
	for {
		n, from, err := b.conn.ReadFromUDP(p)
		if err != nil {
			return n, err
		}
		if b.locked && !from.IP.Equal(b.addr.IP) {
			continue
		}
		return n, nil
	}
}

func (b *broadcastConn) Write(p []byte) (int, error) {
	return b.conn.WriteToUDP(p, b.addr)
}

func (t *udpBroadcastTransport) ReadFrame(ctx context.Context) (mavio.Frame, error) {
	return t.parser.ReadFrame()
}

func (t *udpBroadcastTransport) WriteFrame(ctx context.Context, fr mavio.Frame) error {
	return t.parser.WriteFrame(fr)
}

func (t *udpBroadcastTransport) Close() error {
	return t.conn.Close()
}
