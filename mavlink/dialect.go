// Package mavlink holds everything about the routing layer that is
// specific to the MAVLink protocol itself: the combined dialect used to
// decode frames, and the addressing table that pulls target_system /
// target_component out of a decoded message.
package mavlink

import (
	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/all"
)

// CombinedDialect returns the full ArduPilot-extended dialect (all of
// common + ardupilotmega + the vendor dialects gomavlib bundles under
// "all"). It is what every link's parser decodes and encodes with, so
// that messages observed on one transport can be routed to any other
// regardless of which dialect subset originated them.
func CombinedDialect() *dialect.Dialect {
	return all.Dialect
}

// RadioStatusMsgID and HeartbeatMsgID are the two well-known message ids
// the routing core cares about directly: RADIO_STATUS frames on a SiK
// radio link carry link-quality telemetry, and sysid 51 is the SiK
// radio's own link-local origin, whose frames are never forwarded.
const (
	HeartbeatMsgID    uint32 = 0
	RadioStatusMsgID  uint32 = 109
	SikRadioSystemID  uint8  = 51
)
