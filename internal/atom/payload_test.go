package atom

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiandaoyouchang-png/vap-master/internal/layout"
)

// encodePayloadBytes builds raw wire bytes for the given field values.
func encodePayloadBytes(fields [10]uint32, tail []byte) []byte {
	out := make([]byte, 40, 40+len(tail))
	for i, v := range fields {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}
	return append(out, tail...)
}

func TestDecodePayload(t *testing.T) {
	raw := encodePayloadBytes([10]uint32{
		1008, 0, 1008, 1334, // rgb
		0, 0, 1008, 1334, // alpha
		120, 2, // frameCount, version
	}, nil)

	p, err := DecodePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, layout.Rect{X: 1008, Y: 0, W: 1008, H: 1334}, p.RGB)
	assert.Equal(t, layout.Rect{X: 0, Y: 0, W: 1008, H: 1334}, p.Alpha)
	assert.Equal(t, uint32(120), p.FrameCount)
	assert.Equal(t, uint32(2), p.Version)
}

func TestDecodePayloadTooShort(t *testing.T) {
	_, err := DecodePayload(make([]byte, 39))
	assert.ErrorContains(t, err, "too short")
}

func TestEncodeRoundTrip(t *testing.T) {
	raw := encodePayloadBytes([10]uint32{5, 6, 7, 8, 1, 2, 3, 4, 99, 2}, nil)
	p, err := DecodePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, p.Encode())
}

func TestEncodePreservesReservedTail(t *testing.T) {
	tail := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01}
	raw := encodePayloadBytes([10]uint32{5, 6, 7, 8, 1, 2, 3, 4, 99, 2}, tail)

	p, err := DecodePayload(raw)
	require.NoError(t, err)

	// Rewriting the rectangles must not disturb the reserved bytes, and the
	// encoded length must stay identical.
	p.RGB = layout.Rect{X: 1008, Y: 0, W: 1008, H: 1334}
	out := p.Encode()
	require.Len(t, out, len(raw))
	assert.Equal(t, tail, out[40:])
	assert.Equal(t, raw[32:40], out[32:40])
}
