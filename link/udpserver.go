package link

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"mavrouter/internal/mavio"
)

// UDPServerConfig describes a rendezvous UDP link: the router listens
// on a fixed local port and learns its peers' addresses from the first
// packet each sends, so any number of ground stations can attach to
// the same port and all of them receive outbound traffic.
type UDPServerConfig struct {
	ListenAddress string
	PeerTTL       time.Duration
}

// peerSet tracks every UDP peer this server link has heard from and
// forwards outbound frames to all of them, evicting a peer once its
// last sign of life exceeds the configured TTL.
type peerSet struct {
	conn *net.UDPConn
	ttl  time.Duration

	mu       sync.Mutex
	peers    map[string]*net.UDPAddr
	lastSeen map[string]time.Time
}

func newPeerSet(conn *net.UDPConn, ttl time.Duration) *peerSet {
	return &peerSet{
		conn:     conn,
		ttl:      ttl,
		peers:    make(map[string]*net.UDPAddr),
		lastSeen: make(map[string]time.Time),
	}
}

func (p *peerSet) Read(buf []byte) (int, error) {
	n, addr, err := p.conn.ReadFromUDP(buf)
	if err != nil {
		return n, err
	}
	key := addr.String()
	p.mu.Lock()
	p.peers[key] = addr
	p.lastSeen[key] = time.Now()
	p.mu.Unlock()
	return n, nil
}

// Write sends buf to every peer whose last sign of life is still inside
// the TTL, evicting any peer that has gone stale first. A peer with no
// further inbound traffic stops being written to instead of being sent
// to forever.
func (p *peerSet) Write(buf []byte) (int, error) {
	now := time.Now()
	p.mu.Lock()
	targets := make([]*net.UDPAddr, 0, len(p.peers))
	for k, addr := range p.peers {
		if now.Sub(p.lastSeen[k]) > p.ttl {
			delete(p.peers, k)
			delete(p.lastSeen, k)
			continue
		}
		targets = append(targets, addr)
	}
	p.mu.Unlock()

	for _, addr := range targets {
		if _, err := p.conn.WriteToUDP(buf, addr); err != nil {
			return 0, err
		}
	}
	return len(buf), nil
}

// PeerCount reports how many peers this server currently holds. A stale
// peer is still counted until the next Write evicts it.
func (p *peerSet) PeerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.peers)
}

type udpServerTransport struct {
	conn   *net.UDPConn
	peers  *peerSet
	parser *mavio.Parser
}

// OpenUDPServer listens on the configured local address.
func OpenUDPServer(cfg UDPServerConfig, dialectCfg mavio.Config) (Transport, error) {
	laddr, err := net.ResolveUDPAddr("udp", cfg.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("link: resolve udp-server address %s: %w", cfg.ListenAddress, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("link: listen udp-server %s: %w", cfg.ListenAddress, err)
	}

	ttl := cfg.PeerTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	peers := newPeerSet(conn, ttl)

	dialectCfg.ReadWriter = peers
	parser, err := mavio.NewParser(dialectCfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &udpServerTransport{conn: conn, peers: peers, parser: parser}, nil
}

func (t *udpServerTransport) ReadFrame(ctx context.Context) (mavio.Frame, error) {
	return t.parser.ReadFrame()
}

func (t *udpServerTransport) WriteFrame(ctx context.Context, fr mavio.Frame) error {
	return t.parser.WriteFrame(fr)
}

func (t *udpServerTransport) Close() error {
	return t.conn.Close()
}
