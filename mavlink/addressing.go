package mavlink

import "reflect"

// TargetShape describes how a message's target_system / target_component
// fields, if any, are laid out.
type TargetShape int

const (
	// ShapeNone messages carry no targeting fields; they are broadcast.
	ShapeNone TargetShape = iota
	// ShapeSystemOnly messages carry only a target_system field.
	ShapeSystemOnly
	// ShapeSystemAndComponent messages carry both fields.
	ShapeSystemAndComponent
)

// targetTable maps a MAVLink message id to its targeting shape,
// extracted from the ArduPilot-extended dialect definitions by listing
// every message that carries a target_system and/or target_component
// field. Keeping it as a plain map instead of a switch means moving to
// a newer dialect is a matter of regenerating this table, not editing
// code.
//
// Message names are given in comments for traceability back to the
// dialect; only the numeric id is load-bearing.
var targetTable = map[uint32]TargetShape{
	// system only
	180: ShapeSystemOnly, // CAMERA_FEEDBACK
	179: ShapeSystemOnly, // CAMERA_STATUS
	5:   ShapeSystemOnly, // CHANGE_OPERATOR_CONTROL
	11:  ShapeSystemOnly, // SET_MODE
	48:  ShapeSystemOnly, // SET_GPS_GLOBAL_ORIGIN

	// system and component
	154: ShapeSystemAndComponent, // DIGICAM_CONFIGURE
	155: ShapeSystemAndComponent, // DIGICAM_CONTROL
	161: ShapeSystemAndComponent, // FENCE_FETCH_POINT
	160: ShapeSystemAndComponent, // FENCE_POINT
	156: ShapeSystemAndComponent, // MOUNT_CONFIGURE
	157: ShapeSystemAndComponent, // MOUNT_CONTROL
	158: ShapeSystemAndComponent, // MOUNT_STATUS
	176: ShapeSystemAndComponent, // RALLY_FETCH_POINT
	175: ShapeSystemAndComponent, // RALLY_POINT
	151: ShapeSystemAndComponent, // SET_MAG_OFFSETS
	75:  ShapeSystemAndComponent, // COMMAND_INT
	76:  ShapeSystemAndComponent, // COMMAND_LONG
	110: ShapeSystemAndComponent, // FILE_TRANSFER_PROTOCOL
	123: ShapeSystemAndComponent, // GPS_INJECT_DATA
	121: ShapeSystemAndComponent, // LOG_ERASE
	119: ShapeSystemAndComponent, // LOG_REQUEST_DATA
	122: ShapeSystemAndComponent, // LOG_REQUEST_END
	117: ShapeSystemAndComponent, // LOG_REQUEST_LIST
	47:  ShapeSystemAndComponent, // MISSION_ACK
	45:  ShapeSystemAndComponent, // MISSION_CLEAR_ALL
	44:  ShapeSystemAndComponent, // MISSION_COUNT
	39:  ShapeSystemAndComponent, // MISSION_ITEM
	73:  ShapeSystemAndComponent, // MISSION_ITEM_INT
	40:  ShapeSystemAndComponent, // MISSION_REQUEST
	43:  ShapeSystemAndComponent, // MISSION_REQUEST_LIST
	37:  ShapeSystemAndComponent, // MISSION_REQUEST_PARTIAL_LIST
	41:  ShapeSystemAndComponent, // MISSION_SET_CURRENT
	38:  ShapeSystemAndComponent, // MISSION_WRITE_PARTIAL_LIST
	21:  ShapeSystemAndComponent, // PARAM_REQUEST_LIST
	20:  ShapeSystemAndComponent, // PARAM_REQUEST_READ
	23:  ShapeSystemAndComponent, // PARAM_SET
	4:   ShapeSystemAndComponent, // PING
	70:  ShapeSystemAndComponent, // RC_CHANNELS_OVERRIDE
	66:  ShapeSystemAndComponent, // REQUEST_DATA_STREAM
	54:  ShapeSystemAndComponent, // SAFETY_SET_ALLOWED_AREA
	82:  ShapeSystemAndComponent, // SET_ATTITUDE_TARGET
	86:  ShapeSystemAndComponent, // SET_POSITION_TARGET_GLOBAL_INT
	84:  ShapeSystemAndComponent, // SET_POSITION_TARGET_LOCAL_NED
	248: ShapeSystemAndComponent, // V2_EXTENSION
	200: ShapeSystemAndComponent, // GIMBAL_REPORT
	201: ShapeSystemAndComponent, // GIMBAL_CONTROL
	214: ShapeSystemAndComponent, // GIMBAL_TORQUE_CMD_REPORT
	184: ShapeSystemAndComponent, // REMOTE_LOG_DATA_BLOCK
	185: ShapeSystemAndComponent, // REMOTE_LOG_BLOCK_STATUS
}

// ExtractTarget returns (target_system, target_component) for a decoded
// message, defaulting both to -1 when the message carries no such field.
// msg is whatever the codec decoded (internal/mavio.Frame.Msg); the
// dialect's generated message structs all expose TargetSystem and
// TargetComponent as exported uint8 fields when they have them, so a
// reflection lookup against those two names covers every entry in the
// shape table without a hand-written getter per struct.
func ExtractTarget(msgID uint32, msg any) (targetSys, targetComp int16) {
	targetSys, targetComp = -1, -1

	shape, ok := targetTable[msgID]
	if !ok || shape == ShapeNone || msg == nil {
		return targetSys, targetComp
	}

	v := reflect.ValueOf(msg)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return targetSys, targetComp
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return targetSys, targetComp
	}

	if f := v.FieldByName("TargetSystem"); f.IsValid() && f.CanUint() {
		targetSys = int16(f.Uint())
	}
	if shape == ShapeSystemAndComponent {
		if f := v.FieldByName("TargetComponent"); f.IsValid() && f.CanUint() {
			targetComp = int16(f.Uint())
		}
	}
	return targetSys, targetComp
}
