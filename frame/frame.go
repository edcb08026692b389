// Package frame packs telemetry records into the fixed 11 byte wire frame and back.
//
//	[0]    0xCE start marker
//	[1]    0x08 payload length
//	[2..9] packed payload
//	[10]   '\n'
package frame

import (
	"fmt"

	"github.com/jd3nn1s/dashlink/telemetry"
	"github.com/pkg/errors"
)

const (
	Size        = 11
	PayloadSize = 8
	StartMarker = 0xCE
	Delimiter   = '\n'

	// Sentinel is the single byte liveness probe the producer sends between frames.
	Sentinel = 0xFF
)

var (
	ErrIncompleteFrame    = errors.New("frame: incomplete frame")
	ErrInvalidStartMarker = errors.New("frame: invalid start marker")
	ErrInvalidLengthField = errors.New("frame: invalid length field")
	ErrMissingDelimiter   = errors.New("frame: missing delimiter")
)

// Encode packs r into a frame. Each field is masked to its bit width, so an out of
// range value is truncated rather than spilling into its neighbour.
func Encode(r telemetry.Record) [Size]byte {
	var b [Size]byte
	b[0] = StartMarker
	b[1] = PayloadSize
	b[Size-1] = Delimiter
	for _, f := range layout {
		b[f.index] |= (f.get(&r) & f.mask()) << f.shift
	}
	return b
}

// Decode validates the frame envelope and unpacks the payload. Only the first Size
// bytes are examined.
func Decode(b []byte) (telemetry.Record, error) {
	switch {
	case len(b) < Size:
		return telemetry.Record{}, ErrIncompleteFrame
	case b[0] != StartMarker:
		return telemetry.Record{}, ErrInvalidStartMarker
	case b[1] != PayloadSize:
		return telemetry.Record{}, ErrInvalidLengthField
	case b[Size-1] != Delimiter:
		return telemetry.Record{}, ErrMissingDelimiter
	}

	var r telemetry.Record
	for _, f := range layout {
		f.set(&r, (b[f.index]>>f.shift)&f.mask())
	}
	return r, nil
}

// IsSentinel reports whether p holds nothing but liveness probe bytes.
func IsSentinel(p []byte) bool {
	if len(p) == 0 {
		return false
	}
	for _, c := range p {
		if c != Sentinel {
			return false
		}
	}
	return true
}

// Dump formats p as space separated upper case hex.
func Dump(p []byte) string {
	return fmt.Sprintf("% X", p)
}
