// Package link implements the per-transport endpoint the router is
// built around: each Link owns a reader goroutine, a writer goroutine,
// a bounded outbound queue, and a per-sysid discovery/stats table, and
// exposes the small capability surface the router and the operator
// shell need (enqueue, seen-sysid lookup, up/kill flags, quality
// telemetry) without knowing which transport backs it.
package link

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mavrouter/droppolicy"
	"mavrouter/internal/mavio"
	"mavrouter/linkstats"
	"mavrouter/logger"
	"mavrouter/mavlink"
	"mavrouter/queue"
)

// Info is the static, read-only identity of a link, fixed at startup.
type Info struct {
	ID       int
	Name     string
	Kind     string
	SikRadio bool

	// OutputOnlyFrom restricts this link to forwarding only frames whose
	// source system id appears in this list. An empty list means no
	// restriction.
	OutputOnlyFrom []uint8
}

// AllowsSource reports whether sysID is permitted to be forwarded out
// this link, per its OutputOnlyFrom restriction.
func (i Info) AllowsSource(sysID uint8) bool {
	if len(i.OutputOnlyFrom) == 0 {
		return true
	}
	for _, id := range i.OutputOnlyFrom {
		if id == sysID {
			return true
		}
	}
	return false
}

// Transport is the minimal per-link I/O contract a concrete link backend
// implements; Base drives it from its reader/writer goroutines. Serial,
// UDP client/server and UDP broadcast each satisfy this differently.
type Transport interface {
	ReadFrame(ctx context.Context) (mavio.Frame, error)
	WriteFrame(ctx context.Context, fr mavio.Frame) error
	Close() error
}

// Base implements the common bookkeeping every Link shares: up/kill
// flags, outbound queueing, drop policy, and per-sysid stats. Each link
// is one Base driving the Transport handed to NewBase.
type Base struct {
	info Info

	transport Transport

	out   *queue.Outbound
	drop  *droppolicy.Policy
	stats *linkstats.Table

	qualityMu         sync.RWMutex
	quality           mavlink.RadioStatus
	lastRadioStatusAt time.Time

	totalReceived atomic.Uint64
	totalSent     atomic.Uint64

	up   atomic.Bool
	kill atomic.Bool

	errCount   atomic.Int64
	killThresh int64
}

// NewBase constructs a Base ready to run. outboundCapacity bounds the
// per-link writer queue; seenTTL bounds how long a discovered sysid is
// remembered idle; killThreshold is the consecutive-I/O-error count
// after which the link marks itself dead (serial links default to 20;
// pass 0 to disable the kill switch for transports that don't need
// one).
func NewBase(info Info, transport Transport, outboundCapacity int, seenTTL time.Duration, killThreshold int64) *Base {
	b := &Base{
		info:       info,
		transport:  transport,
		out:        queue.NewOutbound(outboundCapacity),
		drop:       droppolicy.New(),
		stats:      linkstats.NewTable(seenTTL),
		killThresh: killThreshold,
	}
	b.up.Store(true)
	return b
}

// ID returns the link's stable index into the router's link table.
func (b *Base) ID() int { return b.info.ID }

// Info returns the link's static identity.
func (b *Base) Info() Info { return b.info }

// Up reports whether the operator shell has this link enabled.
func (b *Base) Up() bool { return b.up.Load() }

// SetUp enables or disables the link, the operator shell's set_up
// command. A disabled link keeps running its goroutines but refuses
// every outbound frame; frames it reads are still handed to the router.
func (b *Base) SetUp(up bool) {
	b.up.Store(up)
	logger.LinkUp(b.info.Name, up)
}

// IsKill reports whether the link has tripped its error-count kill
// switch. Kill is monotonic: once set it never clears on its own.
func (b *Base) IsKill() bool { return b.kill.Load() }

// DropPolicy exposes the link's random-drop policy to the operator shell.
func (b *Base) DropPolicy() *droppolicy.Policy { return b.drop }

// Stats exposes the per-sysid packet accounting table.
func (b *Base) Stats() *linkstats.Table { return b.stats }

// OutboundDepth returns how many frames are waiting in this link's
// writer queue right now.
func (b *Base) OutboundDepth() int64 { return b.out.Depth() }

// PopOutboundForTest drains one frame from the outbound queue without
// blocking. It exists for router tests that assert on what a link
// would have written, without running a real writer goroutine.
func (b *Base) PopOutboundForTest() (mavio.Frame, bool) {
	return b.out.TryPop()
}

// Quality returns the most recent RADIO_STATUS telemetry decoded on
// this link. It is the zero value until a SiK radio link receives its
// first RADIO_STATUS frame.
func (b *Base) Quality() mavlink.RadioStatus {
	b.qualityMu.RLock()
	defer b.qualityMu.RUnlock()
	return b.quality
}

// TotalReceived returns the count of frames read off this link's
// transport, regardless of whether they were ultimately forwarded
// anywhere.
func (b *Base) TotalReceived() uint64 { return b.totalReceived.Load() }

// TotalSent returns the count of frames this link's writer has
// successfully written to its transport.
func (b *Base) TotalSent() uint64 { return b.totalSent.Load() }

// SeenSysID reports whether sysID has been heard on this link recently.
func (b *Base) SeenSysID(sysID uint8) bool {
	return b.stats.Seen(sysID, time.Now())
}

// CheckForDeadSysIDs evicts sysids this link hasn't heard from inside
// their TTL window.
func (b *Base) CheckForDeadSysIDs() []uint8 {
	return b.stats.EvictExpired(time.Now())
}

// EnqueueOutbound queues fr for this link's writer, applying the link's
// up flag and random drop policy first. It returns false (and the
// caller must count a drop) if the link is down, the drop policy
// chose to drop, or the outbound queue is full.
func (b *Base) EnqueueOutbound(fr mavio.Frame) bool {
	if !b.Up() || b.IsKill() {
		return false
	}
	if b.drop.ShouldDrop() {
		return false
	}
	return b.out.Push(fr)
}

// recordIOError increments the consecutive-error counter and trips the
// kill switch once the count exceeds killThresh (the threshold itself
// is still tolerated; the next error kills). A successful I/O
// operation should call resetIOErrors instead.
func (b *Base) recordIOError(err error) {
	if b.killThresh <= 0 {
		return
	}
	count := b.errCount.Add(1)
	logger.LinkIOError(b.info.Name, err, count, b.killThresh)
	if count > b.killThresh && !b.kill.Swap(true) {
		logger.LinkKilled(b.info.Name, b.killThresh)
	}
}

func (b *Base) resetIOErrors() {
	b.errCount.Store(0)
}

// RunReader pumps frames off the transport into the shared inbound
// queue until ctx is cancelled or a read error trips the link's kill
// switch. It is meant to run in its own goroutine, one per link.
func (b *Base) RunReader(ctx context.Context, inbound *queue.Inbound) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		fr, err := b.transport.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.recordIOError(err)
			if b.IsKill() {
				return
			}
			continue
		}
		b.resetIOErrors()
		b.totalReceived.Add(1)

		// SiK radio telemetry is link-local: it never joins the discovery
		// table, so it can never be routed to by target_system, and it is
		// never handed to the router at all.
		sikTelemetry := b.info.SikRadio && fr.SysID == mavlink.SikRadioSystemID
		if b.info.SikRadio && fr.MsgID == mavlink.RadioStatusMsgID {
			if rs, ok := mavlink.ExtractRadioStatus(fr.Msg); ok {
				now := time.Now()
				b.qualityMu.Lock()
				if !b.lastRadioStatusAt.IsZero() {
					rs.LinkDelay = now.Sub(b.lastRadioStatusAt)
				}
				b.lastRadioStatusAt = now
				b.quality = rs
				b.qualityMu.Unlock()
			}
		}
		if !sikTelemetry {
			b.stats.Observe(fr.SysID, fr.Seq, time.Now())
			if !inbound.Push(queue.Item{LinkID: b.info.ID, Frame: fr}) {
				b.stats.RecordDrop(fr.SysID)
			}
		}
	}
}

// RunWriter drains this link's outbound queue to the transport until
// ctx is cancelled or the queue is shut down. It is meant to run in its
// own goroutine, one per link.
func (b *Base) RunWriter(ctx context.Context) {
	for {
		fr, ok := b.out.Pop()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := b.transport.WriteFrame(ctx, fr); err != nil {
			b.recordIOError(err)
			continue
		}
		b.resetIOErrors()
		b.totalSent.Add(1)
	}
}

// Close shuts down the outbound queue and closes the underlying
// transport, in that order so the writer goroutine can exit cleanly.
func (b *Base) Close() error {
	b.out.Shutdown()
	return b.transport.Close()
}
