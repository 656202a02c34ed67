package check

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mp4box(typ string, payload []byte) []byte {
	out := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(out[:4], uint32(8+len(payload)))
	copy(out[4:8], typ)
	return append(out, payload...)
}

func writeBoxes(t *testing.T, boxes ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(path, bytes.Join(boxes, nil), 0o644))
	return path
}

func TestValidateContainer(t *testing.T) {
	ftyp := mp4box("ftyp", []byte("isom\x00\x00\x02\x00isomiso2"))
	moov := mp4box("moov", nil)
	mdat := mp4box("mdat", make([]byte, 1200))

	t.Run("well-formed", func(t *testing.T) {
		path := writeBoxes(t, ftyp, moov, mdat)
		assert.NoError(t, ValidateContainer(path))
	})

	t.Run("trailing custom box is fine", func(t *testing.T) {
		path := writeBoxes(t, ftyp, moov, mdat, mp4box("vapc", make([]byte, 40)))
		assert.NoError(t, ValidateContainer(path))
	})

	t.Run("ftyp not first", func(t *testing.T) {
		path := writeBoxes(t, moov, ftyp, mdat)
		err := ValidateContainer(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "want ftyp")
	})

	t.Run("missing moov", func(t *testing.T) {
		path := writeBoxes(t, ftyp, mdat)
		err := ValidateContainer(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing moov")
	})

	t.Run("missing mdat", func(t *testing.T) {
		path := writeBoxes(t, ftyp, moov, mp4box("free", make([]byte, 1200)))
		err := ValidateContainer(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing mdat")
	})

	t.Run("too small to be a container", func(t *testing.T) {
		path := writeBoxes(t, ftyp)
		err := ValidateContainer(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a usable container")
	})

	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, ValidateContainer(filepath.Join(t.TempDir(), "nope.mp4")))
	})
}

func TestHasVapc(t *testing.T) {
	ftyp := mp4box("ftyp", []byte("isom\x00\x00\x02\x00isomiso2"))
	moov := mp4box("moov", nil)
	mdat := mp4box("mdat", make([]byte, 1200))

	t.Run("absent", func(t *testing.T) {
		path := writeBoxes(t, ftyp, moov, mdat)
		got, err := HasVapc(path)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("top-level", func(t *testing.T) {
		path := writeBoxes(t, ftyp, moov, mdat, mp4box("vapc", make([]byte, 40)))
		got, err := HasVapc(path)
		require.NoError(t, err)
		assert.True(t, got)
	})

	// An atom patched in place can sit nested below moov; the walk must
	// descend into container boxes to see it.
	t.Run("nested under udta", func(t *testing.T) {
		nested := mp4box("moov", mp4box("udta", mp4box("vapc", make([]byte, 40))))
		path := writeBoxes(t, ftyp, nested, mdat)
		got, err := HasVapc(path)
		require.NoError(t, err)
		assert.True(t, got)
	})
}
