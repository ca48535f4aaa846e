package mavio

import (
	"fmt"
	"io"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	gmframe "github.com/bluenviron/gomavlib/v3/pkg/frame"
)

// Parser wraps gomavlib's incremental byte-parser and frame-serializer for
// a single link. The router never touches it directly; each concrete link
// type owns exactly one Parser bound to its own transport.
type Parser struct {
	reader      *gmframe.Reader
	writer      *gmframe.Writer
	outSystemID uint8
	outCompID   uint8
}

// Config bundles what every link needs to stand up a Parser.
type Config struct {
	ReadWriter     io.ReadWriter
	Dialect        *dialect.Dialect
	OutSystemID    uint8
	OutComponentID uint8
}

// NewParser builds a Parser bound to cfg.ReadWriter, decoding/encoding
// with cfg.Dialect.
func NewParser(cfg Config) (*Parser, error) {
	dialectRW, err := dialect.NewReadWriter(cfg.Dialect)
	if err != nil {
		return nil, fmt.Errorf("mavio: build dialect: %w", err)
	}

	reader, err := gmframe.NewReader(gmframe.ReaderConf{
		Reader:    cfg.ReadWriter,
		DialectRW: dialectRW,
	})
	if err != nil {
		return nil, fmt.Errorf("mavio: build parser: %w", err)
	}

	writer, err := gmframe.NewWriter(gmframe.WriterConf{
		Writer:         cfg.ReadWriter,
		DialectRW:      dialectRW,
		OutVersion:     gmframe.V2,
		OutSystemID:    cfg.OutSystemID,
		OutComponentID: cfg.OutComponentID,
	})
	if err != nil {
		return nil, fmt.Errorf("mavio: build parser: %w", err)
	}

	return &Parser{reader: reader, writer: writer, outSystemID: cfg.OutSystemID, outCompID: cfg.OutComponentID}, nil
}

// ReadFrame blocks until one MAVLink frame has been decoded from the
// underlying reader, or returns an error. A parse error on a single
// malformed byte does not appear here: gomavlib's parser resyncs
// internally and this call simply blocks for the next valid frame.
func (p *Parser) ReadFrame() (Frame, error) {
	raw, err := p.reader.Read()
	if err != nil {
		return Frame{}, err
	}
	msg := raw.GetMessage()
	return Frame{
		SysID:  raw.GetSystemID(),
		CompID: raw.GetComponentID(),
		MsgID:  msg.GetID(),
		Seq:    raw.GetSequenceNumber(),
		Msg:    msg,
		Raw:    raw,
	}, nil
}

// WriteFrame re-serializes fr to the underlying writer. When fr.Raw is set
// (the normal case: a frame that arrived on some other link) the original
// wire frame is written back out unmodified, so the router never mutates a
// forwarded message. Frames with no Raw (built directly, e.g. in tests)
// cannot be written and return an error.
func (p *Parser) WriteFrame(fr Frame) error {
	if fr.Raw == nil {
		return fmt.Errorf("mavio: frame has no raw wire representation to write")
	}
	return p.writer.Write(fr.Raw)
}
