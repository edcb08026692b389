package forwarder

import (
	"bytes"
	"encoding/binary"

	"github.com/jd3nn1s/dashlink/frame"
	"github.com/jd3nn1s/dashlink/telemetry"
	"github.com/pkg/errors"
)

// Header precedes the payload of every datagram.
type Header struct {
	Type uint8
}

const (
	TypeTelemetry = 1
)

const headerSize = 1

var maxTelemetrySize = headerSize + frame.Size

// Encode builds a telemetry datagram: the header followed by the wire frame.
func Encode(r telemetry.Record) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, maxTelemetrySize))
	hdr := Header{
		Type: TypeTelemetry,
	}
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "unable to write udp packet header")
	}
	b := frame.Encode(r)
	buf.Write(b[:])
	return buf.Bytes(), nil
}

// Decode is the receiving side of Encode.
func Decode(datagram []byte) (telemetry.Record, error) {
	hdr := Header{}
	if err := binary.Read(bytes.NewReader(datagram), binary.LittleEndian, &hdr); err != nil {
		return telemetry.Record{}, errors.Wrap(err, "unable to read udp packet header")
	}
	if hdr.Type != TypeTelemetry {
		return telemetry.Record{}, errors.Errorf("unexpected packet type %d", hdr.Type)
	}
	return frame.Decode(datagram[headerSize:])
}
