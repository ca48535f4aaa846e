// Package mavio is the boundary between this router and the MAVLink wire
// codec. It owns the one place in the tree that talks to gomavlib's frame
// parser directly; everything above this package (link, router, mavlink,
// droppolicy) works against the plain Frame value defined here.
package mavio

import (
	gmframe "github.com/bluenviron/gomavlib/v3/pkg/frame"
)

// Frame is one decoded MAVLink message, as handed from a link's reader to
// the router's shared inbound queue and back out to another link's writer.
//
// Raw carries the codec's own frame representation so a link writer can
// re-serialize the exact bytes that were received, without this router
// reinterpreting or rebuilding the message. It is nil for frames built in
// tests that never round-trip through a real transport.
type Frame struct {
	SysID  uint8
	CompID uint8
	MsgID  uint32
	Seq    uint8
	Msg    any
	Raw    gmframe.Frame
}
