package atom

import (
	"encoding/binary"
	"fmt"

	"github.com/tiandaoyouchang-png/vap-master/internal/layout"
)

// Wire layout of the vapc payload, all fields big-endian uint32:
//
//	rgb.x rgb.y rgb.w rgb.h  a.x a.y a.w a.h  frameCount version
//
// Bytes past the known fields are reserved and must be carried through a
// rewrite verbatim. The first sample file produced by the encoder is the
// authority on this layout; only the ten fields above are ever interpreted.
const payloadMinSize = 40

// Payload is the decoded vapc box content.
type Payload struct {
	RGB        layout.Rect // RGB pane rectangle in the encoded video.
	Alpha      layout.Rect // Alpha pane rectangle.
	FrameCount uint32
	Version    uint32

	tail []byte // Reserved bytes after the known fields, preserved verbatim.
}

// DecodePayload parses vapc payload bytes.
func DecodePayload(b []byte) (Payload, error) {
	if len(b) < payloadMinSize {
		return Payload{}, fmt.Errorf("vapc payload too short: %d bytes, need %d", len(b), payloadMinSize)
	}
	u := func(i int) int { return int(binary.BigEndian.Uint32(b[i*4:])) }
	p := Payload{
		RGB:        layout.Rect{X: u(0), Y: u(1), W: u(2), H: u(3)},
		Alpha:      layout.Rect{X: u(4), Y: u(5), W: u(6), H: u(7)},
		FrameCount: binary.BigEndian.Uint32(b[32:]),
		Version:    binary.BigEndian.Uint32(b[36:]),
	}
	if len(b) > payloadMinSize {
		p.tail = append([]byte(nil), b[payloadMinSize:]...)
	}
	return p, nil
}

// Encode serializes the payload back to wire form, reserved tail included.
// The result of decode-then-encode is byte-identical to the input when no
// field changed.
func (p Payload) Encode() []byte {
	out := make([]byte, payloadMinSize, payloadMinSize+len(p.tail))
	fields := []int{
		p.RGB.X, p.RGB.Y, p.RGB.W, p.RGB.H,
		p.Alpha.X, p.Alpha.Y, p.Alpha.W, p.Alpha.H,
	}
	for i, v := range fields {
		binary.BigEndian.PutUint32(out[i*4:], uint32(v))
	}
	binary.BigEndian.PutUint32(out[32:], p.FrameCount)
	binary.BigEndian.PutUint32(out[36:], p.Version)
	return append(out, p.tail...)
}
