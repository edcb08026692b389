package frame

import (
	"bytes"

	"github.com/jd3nn1s/dashlink/telemetry"
)

// Reassembler recovers frames from a stream whose read boundaries split or merge them.
// It hunts for the start marker, so probe bytes and garbage between frames are skipped.
type Reassembler struct {
	buf bytes.Buffer
}

// Feed appends p to the pending bytes and returns every complete frame now available,
// along with the number of bytes discarded while resynchronising.
func (r *Reassembler) Feed(p []byte) (records []telemetry.Record, skipped int) {
	r.buf.Write(p)
	for {
		pending := r.buf.Bytes()
		i := bytes.IndexByte(pending, StartMarker)
		if i < 0 {
			skipped += len(pending)
			r.buf.Reset()
			return records, skipped
		}
		if i > 0 {
			skipped += i
			r.buf.Next(i)
			continue
		}
		if len(pending) < Size {
			return records, skipped
		}
		rec, err := Decode(pending[:Size])
		if err != nil {
			// a marker value inside a payload, not a frame boundary
			skipped++
			r.buf.Next(1)
			continue
		}
		records = append(records, rec)
		r.buf.Next(Size)
	}
}

// Pending is the number of bytes held back waiting for the rest of a frame.
func (r *Reassembler) Pending() int {
	return r.buf.Len()
}

func (r *Reassembler) Reset() {
	r.buf.Reset()
}
