package atom

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// box builds one box with the standard 8-byte header.
func box(typ string, payload ...[]byte) []byte {
	body := bytes.Join(payload, nil)
	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(out[:4], uint32(8+len(body)))
	copy(out[4:8], typ)
	return append(out, body...)
}

// largeBox builds one box using the 64-bit largesize form.
func largeBox(typ string, payload []byte) []byte {
	out := make([]byte, 16, 16+len(payload))
	binary.BigEndian.PutUint32(out[:4], 1)
	copy(out[4:8], typ)
	binary.BigEndian.PutUint64(out[8:16], uint64(16+len(payload)))
	return append(out, payload...)
}

func container(data ...[]byte) []byte {
	return bytes.Join(data, nil)
}

func TestScanTopLevel(t *testing.T) {
	data := container(
		box("ftyp", []byte("isom\x00\x00\x02\x00isomiso2")),
		box("moov", box("mvhd", make([]byte, 100))),
		box("mdat", make([]byte, 64)),
	)

	boxes, err := Scan(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, boxes, 3)
	assert.Equal(t, "ftyp", boxes[0].Type)
	assert.Equal(t, "moov", boxes[1].Type)
	assert.Equal(t, "mdat", boxes[2].Type)

	// moov is a known container; its child tree is parsed.
	require.Len(t, boxes[1].Children, 1)
	assert.Equal(t, "mvhd", boxes[1].Children[0].Type)
	// mdat is opaque.
	assert.Empty(t, boxes[2].Children)

	assert.Equal(t, int64(0), boxes[0].Offset)
	assert.Equal(t, int64(24), boxes[0].Size)
	assert.Equal(t, int64(24), boxes[1].Offset)
	assert.Equal(t, int64(32), boxes[1].PayloadOffset())
}

func TestScanLargesize(t *testing.T) {
	data := container(
		box("ftyp", []byte("isom\x00\x00\x02\x00")),
		largeBox("mdat", make([]byte, 48)),
	)

	boxes, err := Scan(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, "mdat", boxes[1].Type)
	assert.Equal(t, int64(64), boxes[1].Size)
	assert.Equal(t, int64(16), boxes[1].HeaderSize)
	assert.Equal(t, int64(48), boxes[1].PayloadSize())
}

func TestScanSizeZeroExtendsToEnd(t *testing.T) {
	trailer := make([]byte, 8+32)
	copy(trailer[4:8], "mdat")

	data := container(box("ftyp", []byte("isom")), trailer)
	boxes, err := Scan(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, "mdat", boxes[1].Type)
	assert.Equal(t, int64(40), boxes[1].Size)
}

func TestScanMalformed(t *testing.T) {
	overrun := box("ftyp", []byte("isom"))
	binary.BigEndian.PutUint32(overrun[:4], 9999)

	undersized := box("free")
	binary.BigEndian.PutUint32(undersized[:4], 4)

	largeOverrun := largeBox("mdat", make([]byte, 8))
	binary.BigEndian.PutUint64(largeOverrun[8:16], 1<<40)

	tests := []struct {
		name   string
		data   []byte
		detail string
	}{
		{"truncated header", []byte{0, 0, 0, 12, 'f'}, "truncated box header"},
		{"size overruns file", overrun, "overruns remaining"},
		{"size smaller than header", undersized, "smaller than its 8-byte header"},
		{"largesize overrun", largeOverrun, "overruns remaining"},
		{"truncated largesize", []byte{0, 0, 0, 1, 'm', 'd', 'a', 't', 0, 0}, "truncated largesize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			boxes, err := Scan(bytes.NewReader(tt.data), int64(len(tt.data)))
			var merr *MalformedContainerError
			require.ErrorAs(t, err, &merr)
			assert.Contains(t, merr.Detail, tt.detail)
			assert.Nil(t, boxes, "no partial tree on error")
		})
	}
}

func TestScanMalformedChildFailsWholeScan(t *testing.T) {
	child := box("stbl", make([]byte, 4))
	binary.BigEndian.PutUint32(child[:4], 500)
	data := container(box("ftyp", nil), box("moov", child))

	boxes, err := Scan(bytes.NewReader(data), int64(len(data)))
	var merr *MalformedContainerError
	require.ErrorAs(t, err, &merr)
	assert.Nil(t, boxes)
}

func TestLocate(t *testing.T) {
	payload := make([]byte, 40)
	data := container(
		box("ftyp", []byte("isom")),
		box("moov",
			box("mvhd", make([]byte, 20)),
			box("udta", box("vapc", payload)),
		),
		box("mdat", make([]byte, 16)),
	)

	loc, err := Locate(bytes.NewReader(data), int64(len(data)), VapcType)
	require.NoError(t, err)
	assert.Equal(t, int64(40), loc.PayloadSize)
	assert.Equal(t, loc.BoxOffset+8, loc.PayloadOffset)
	// The payload range must point at the zeroed payload we embedded.
	assert.Equal(t, payload, data[loc.PayloadOffset:loc.PayloadOffset+loc.PayloadSize])
}

func TestLocateFirstInDocumentOrder(t *testing.T) {
	first := bytes.Repeat([]byte{0xAA}, 40)
	second := bytes.Repeat([]byte{0xBB}, 40)
	data := container(
		box("ftyp", nil),
		box("moov", box("udta", box("vapc", first))),
		box("vapc", second),
	)

	loc, err := Locate(bytes.NewReader(data), int64(len(data)), VapcType)
	require.NoError(t, err)
	assert.Equal(t, first, data[loc.PayloadOffset:loc.PayloadOffset+loc.PayloadSize])
}

func TestLocateNotFound(t *testing.T) {
	data := container(box("ftyp", nil), box("mdat", make([]byte, 8)))
	_, err := Locate(bytes.NewReader(data), int64(len(data)), VapcType)
	assert.ErrorIs(t, err, ErrNotFound)
}
