// Package linkstats tracks per-sysid packet accounting for a link and
// the TTL-based discovery table each link keeps of systems it has
// recently heard from.
package linkstats

import (
	"sync"
	"time"
)

// PacketStats accumulates sequence-gap loss accounting for one system id
// heard on a link.
type PacketStats struct {
	LastPacketTime time.Time
	LastSeq        uint8
	HaveSeq        bool
	PacketsRx      uint64
	PacketsLost    uint64
	PacketsDropped uint64
}

// Observe records a newly received sequence number, inferring loss from
// any gap against the previous sequence number (mod 256 wraparound).
func (s *PacketStats) Observe(seq uint8, now time.Time) {
	if s.HaveSeq {
		gap := int(seq) - int(s.LastSeq)
		if gap < 0 {
			gap += 256
		}
		if gap > 1 {
			s.PacketsLost += uint64(gap - 1)
		}
	}
	s.HaveSeq = true
	s.LastSeq = seq
	s.LastPacketTime = now
	s.PacketsRx++
}

// RecordDrop counts a packet lost on its way through this link: an
// outbound enqueue refused (link down or killed, drop policy, or a full
// outbound queue) or an inbound push into a full shared queue.
func (s *PacketStats) RecordDrop() {
	s.PacketsDropped++
}

// LossPercent returns the fraction of packets inferred lost against the
// total the sequence counter implies should have arrived, in [0,100].
func (s *PacketStats) LossPercent() float64 {
	total := s.PacketsRx + s.PacketsLost
	if total == 0 {
		return 0
	}
	return 100 * float64(s.PacketsLost) / float64(total)
}

// Table is a mutex-protected per-sysid stats map with TTL eviction, used
// by every link to track which systems it has recently seen and their
// packet accounting.
type Table struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[uint8]*PacketStats
}

// NewTable returns an empty table that evicts entries idle longer than
// ttl.
func NewTable(ttl time.Duration) *Table {
	return &Table{ttl: ttl, m: make(map[uint8]*PacketStats)}
}

// Observe records a packet from sysID, creating its entry if needed, and
// reports whether sysID was already known before this call.
func (t *Table) Observe(sysID uint8, seq uint8, now time.Time) (alreadySeen bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.m[sysID]
	if !ok {
		st = &PacketStats{}
		t.m[sysID] = st
	}
	st.Observe(seq, now)
	return ok
}

// RecordDrop counts a drop against sysID, creating its entry if this link
// has not independently observed that sysid before (e.g. a drop charged
// to an outgoing link that has never itself heard from the sender).
func (t *Table) RecordDrop(sysID uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.m[sysID]
	if !ok {
		st = &PacketStats{}
		t.m[sysID] = st
	}
	st.RecordDrop()
}

// Seen reports whether sysID is present and not yet expired.
func (t *Table) Seen(sysID uint8, now time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.m[sysID]
	if !ok {
		return false
	}
	return now.Sub(st.LastPacketTime) < t.ttl
}

// EvictExpired removes every sysid whose last packet is older than the
// table's TTL, returning the evicted ids.
func (t *Table) EvictExpired(now time.Time) []uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var dead []uint8
	for sysID, st := range t.m {
		if now.Sub(st.LastPacketTime) >= t.ttl {
			dead = append(dead, sysID)
			delete(t.m, sysID)
		}
	}
	return dead
}

// Snapshot returns a copy of the current per-sysid stats, for the
// operator shell and periodic stats logging.
func (t *Table) Snapshot() map[uint8]PacketStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[uint8]PacketStats, len(t.m))
	for sysID, st := range t.m {
		out[sysID] = *st
	}
	return out
}

// SystemIDs returns the set of currently known (unexpired-as-of-last-
// write) system ids.
func (t *Table) SystemIDs() []uint8 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]uint8, 0, len(t.m))
	for sysID := range t.m {
		ids = append(ids, sysID)
	}
	return ids
}
