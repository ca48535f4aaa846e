// Package router implements the forwarding engine: one shared inbound
// queue drained by a single goroutine, which decides for each frame
// which of the other links should receive it and pushes onto their
// outbound queues.
package router

import (
	"context"
	"sync/atomic"
	"time"

	"mavrouter/internal/mavio"
	"mavrouter/link"
	"mavrouter/logger"
	"mavrouter/mavlink"
	"mavrouter/queue"
)

// Router owns the link table and the shared inbound queue and runs the
// single forwarding loop that drains it.
type Router struct {
	links   []*link.Base
	inbound *queue.Inbound
	verbose bool

	routed  *atomic.Uint64
	dropped *atomic.Uint64
}

// New returns a Router over links, sharing the given inbound queue (the
// same queue every link's reader goroutine pushes onto). stats, if
// non-nil, registers "Forwarded"/"Dropped" counters for periodic
// console reporting.
func New(links []*link.Base, inbound *queue.Inbound, verbose bool, stats *logger.StatsManager) *Router {
	r := &Router{links: links, inbound: inbound, verbose: verbose}
	if stats != nil {
		r.routed = stats.RegisterCounter("Forwarded")
		r.dropped = stats.RegisterCounter("Dropped")
	} else {
		r.routed = &atomic.Uint64{}
		r.dropped = &atomic.Uint64{}
	}
	return r
}

// Links returns the router's link table, for the operator shell.
func (r *Router) Links() []*link.Base { return r.links }

// Run drains the inbound queue until ctx is cancelled or the queue is
// shut down, forwarding each frame to every link that shouldForward
// approves. It also periodically evicts each link's expired discovery
// entries.
func (r *Router) Run(ctx context.Context) {
	evictTicker := time.NewTicker(time.Second)
	defer evictTicker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			item, ok := r.inbound.Pop()
			if !ok {
				return
			}
			r.forward(item)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			r.inbound.Shutdown()
			<-done
			return
		case <-evictTicker.C:
			for _, l := range r.links {
				l.CheckForDeadSysIDs()
			}
		case <-done:
			return
		}
	}
}

func (r *Router) forward(item queue.Item) {
	incoming := r.linkByID(item.LinkID)
	if incoming == nil {
		return
	}

	fr := item.Frame
	targetSys, targetComp := mavlink.ExtractTarget(fr.MsgID, fr.Msg)

	forwarded := 0
	for _, out := range r.links {
		if !shouldForward(incoming, out, fr, targetSys, targetComp) {
			continue
		}
		if !out.EnqueueOutbound(fr) {
			out.Stats().RecordDrop(fr.SysID)
			r.dropped.Add(1)
			if r.verbose {
				logger.Debug("[ROUTER] dropped sysid=%d msgid=%d target_system=%d link=%s",
					fr.SysID, fr.MsgID, targetSys, out.Info().Name)
			}
			continue
		}
		r.routed.Add(1)
		forwarded++
	}

	// A targeted frame no link could carry is silently lost unless the
	// operator asked to see it. An unknown msgid never lands here: it is
	// broadcast, so only an unseen target system can be unroutable.
	if forwarded == 0 && targetSys > 0 && r.verbose {
		logger.Debug("[ROUTER] unroutable sysid=%d msgid=%d target_system=%d from link=%s",
			fr.SysID, fr.MsgID, targetSys, incoming.Info().Name)
	}
}

func (r *Router) linkByID(id int) *link.Base {
	for _, l := range r.links {
		if l.ID() == id {
			return l
		}
	}
	return nil
}

// shouldForward applies the forwarding decision, first match wins:
//  1. never forward a frame back out its own incoming link
//  2. never forward SiK radio telemetry (sysid 51 from a SiK-tagged link)
//  3. an output_only_from restricted link only carries its allowed sources
//  4. an untargeted message (no target_system) is broadcast to everyone
//  5. a message with target_system but no target_component is broadcast:
//     neither the component nor the destination's seen systems are checked
//  6. target_system 0 is broadcast
//  7. otherwise the message is routable only if the destination link has
//     seen that target system recently
//  8. reaching the end with none of the above disqualifying it forwards
func shouldForward(incoming, out *link.Base, fr mavio.Frame, targetSys, targetComp int16) bool {
	if out.ID() == incoming.ID() {
		return false
	}

	if incoming.Info().SikRadio && fr.SysID == mavlink.SikRadioSystemID {
		return false
	}

	if !out.Info().AllowsSource(fr.SysID) {
		return false
	}

	if targetSys == -1 {
		return true
	}
	if targetComp == -1 {
		return true
	}
	if targetSys == 0 {
		return true
	}

	return out.SeenSysID(uint8(targetSys))
}
