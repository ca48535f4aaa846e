package link

import (
	"testing"

	"mavrouter/internal/mavio"
	"mavrouter/mavlink"
)

func TestOpenSerial_MissingDeviceFails(t *testing.T) {
	_, err := OpenSerial(
		SerialConfig{Device: "/dev/this-device-does-not-exist-mavrouter-test", Baud: 57600},
		mavio.Config{Dialect: mavlink.CombinedDialect(), OutSystemID: 1, OutComponentID: 1},
	)
	if err == nil {
		t.Fatalf("expected an error opening a nonexistent serial device")
	}
}
