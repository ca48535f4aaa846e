package linkstats

import (
	"testing"
	"time"
)

func TestPacketStats_ObserveDetectsGapLoss(t *testing.T) {
	var s PacketStats
	now := time.Now()
	s.Observe(0, now)
	s.Observe(3, now.Add(time.Millisecond))
	if s.PacketsLost != 2 {
		t.Fatalf("packets lost = %d, want 2", s.PacketsLost)
	}
	if s.PacketsRx != 2 {
		t.Fatalf("packets rx = %d, want 2", s.PacketsRx)
	}
}

func TestPacketStats_ObserveHandlesWraparound(t *testing.T) {
	var s PacketStats
	now := time.Now()
	s.Observe(254, now)
	s.Observe(0, now.Add(time.Millisecond))
	if s.PacketsLost != 1 {
		t.Fatalf("packets lost across wraparound = %d, want 1", s.PacketsLost)
	}
}

func TestPacketStats_LossPercent(t *testing.T) {
	var s PacketStats
	s.PacketsRx = 9
	s.PacketsLost = 1
	if got := s.LossPercent(); got != 10 {
		t.Fatalf("loss percent = %v, want 10", got)
	}
}

func TestTable_ObserveReportsPriorSeen(t *testing.T) {
	tbl := NewTable(10 * time.Second)
	now := time.Now()
	if already := tbl.Observe(5, 0, now); already {
		t.Fatalf("first observation should report not-already-seen")
	}
	if already := tbl.Observe(5, 1, now); !already {
		t.Fatalf("second observation should report already-seen")
	}
}

func TestTable_EvictExpired(t *testing.T) {
	tbl := NewTable(10 * time.Millisecond)
	now := time.Now()
	tbl.Observe(9, 0, now)
	if !tbl.Seen(9, now) {
		t.Fatalf("expected sysid 9 to be seen immediately after observing")
	}
	later := now.Add(50 * time.Millisecond)
	dead := tbl.EvictExpired(later)
	if len(dead) != 1 || dead[0] != 9 {
		t.Fatalf("expected sysid 9 evicted, got %v", dead)
	}
	if tbl.Seen(9, later) {
		t.Fatalf("sysid 9 should no longer be seen after eviction")
	}
}

func TestTable_RecordDropCreatesEntryIfAbsent(t *testing.T) {
	tbl := NewTable(time.Second)
	tbl.RecordDrop(42)
	tbl.Observe(42, 0, time.Now())
	tbl.RecordDrop(42)
	snap := tbl.Snapshot()
	if snap[42].PacketsDropped != 2 {
		t.Fatalf("expected both drops recorded even though the first arrived before this link had observed sysid 42, got %d", snap[42].PacketsDropped)
	}
}
