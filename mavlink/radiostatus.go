package mavlink

import (
	"reflect"
	"time"
)

// RadioStatus is the decoded link-quality payload of a RADIO_STATUS
// frame, the telemetry a SiK modem injects about its own radio link.
//
// LinkDelay is not part of the wire message: it is the wall-clock
// interval since the previous RADIO_STATUS frame on this link, filled
// in by the link after decoding, not by ExtractRadioStatus.
type RadioStatus struct {
	RSSI      uint8
	RemRSSI   uint8
	TxBuf     uint8
	Noise     uint8
	RemNoise  uint8
	RxErrors  uint16
	Fixed     uint16
	LinkDelay time.Duration
}

// ExtractRadioStatus decodes a RADIO_STATUS message's fields by name via
// reflection, the same approach ExtractTarget uses, so it stays correct
// across dialect regeneration without a hand-written per-field getter.
func ExtractRadioStatus(msg any) (RadioStatus, bool) {
	if msg == nil {
		return RadioStatus{}, false
	}
	v := reflect.ValueOf(msg)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return RadioStatus{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return RadioStatus{}, false
	}

	uintField := func(name string) uint64 {
		f := v.FieldByName(name)
		if f.IsValid() && f.CanUint() {
			return f.Uint()
		}
		return 0
	}

	return RadioStatus{
		RSSI:     uint8(uintField("Rssi")),
		RemRSSI:  uint8(uintField("Remrssi")),
		TxBuf:    uint8(uintField("Txbuf")),
		Noise:    uint8(uintField("Noise")),
		RemNoise: uint8(uintField("Remnoise")),
		RxErrors: uint16(uintField("Rxerrors")),
		Fixed:    uint16(uintField("Fixed")),
	}, true
}
