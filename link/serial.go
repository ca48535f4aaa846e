package link

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"

	"mavrouter/internal/mavio"
)

// SerialConfig describes one serial link. FlowControl is either
// "hardware" or "none"; any other value is treated as "none".
// "hardware" raises the RTS line once after opening; the port mode sets
// no RTS/CTS handshaking.
type SerialConfig struct {
	Device      string
	Baud        int
	FlowControl string
}

// serialTransport wraps a go.bug.st/serial port behind a mavio.Parser:
// 8 data bits, no parity, one stop bit, and a short sleep after a
// zero-byte read so the reader goroutine doesn't spin the CPU waiting
// on an idle line.
type serialTransport struct {
	port   serial.Port
	parser *mavio.Parser
}

// OpenSerial opens the named serial device and wraps it as a Transport.
func OpenSerial(cfg SerialConfig, dialect mavio.Config) (Transport, error) {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("link: open serial device %s: %w", cfg.Device, err)
	}
	if cfg.FlowControl == "hardware" {
		if err := port.SetRTS(true); err != nil {
			port.Close()
			return nil, fmt.Errorf("link: enable hardware flow control on %s: %w", cfg.Device, err)
		}
	}

	dialect.ReadWriter = port
	parser, err := mavio.NewParser(dialect)
	if err != nil {
		port.Close()
		return nil, err
	}

	return &serialTransport{port: port, parser: parser}, nil
}

func (t *serialTransport) ReadFrame(ctx context.Context) (mavio.Frame, error) {
	fr, err := t.parser.ReadFrame()
	if err != nil {
		// An idle line with nothing available looks like a short read to
		// the underlying driver; avoid busy-looping the reader goroutine.
		time.Sleep(2 * time.Millisecond)
		return mavio.Frame{}, err
	}
	return fr, nil
}

func (t *serialTransport) WriteFrame(ctx context.Context, fr mavio.Frame) error {
	return t.parser.WriteFrame(fr)
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}
