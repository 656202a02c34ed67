package frames

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePNG writes a minimal file with a valid PNG signature and IHDR chunk
// header. Pixel data is irrelevant; only the first 24 bytes are ever read.
func writePNG(t *testing.T, path string, w, h uint32) {
	t.Helper()
	buf := make([]byte, 0, 32)
	buf = append(buf, pngSignature...)
	var chunk [16]byte
	binary.BigEndian.PutUint32(chunk[0:4], 13)
	copy(chunk[4:8], "IHDR")
	binary.BigEndian.PutUint32(chunk[8:12], w)
	binary.BigEndian.PutUint32(chunk[12:16], h)
	buf = append(buf, chunk[:]...)
	buf = append(buf, 8, 6, 0, 0, 0) // bit depth, color type, etc.
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func TestReadDimensions(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "frame_00001.png")
	writePNG(t, path, 1008, 1334)
	w, h, err := ReadDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 1008, w)
	assert.Equal(t, 1334, h)

	bad := filepath.Join(dir, "not_a_png.png")
	require.NoError(t, os.WriteFile(bad, []byte("JFIF definitely not a png header xx"), 0o644))
	_, _, err = ReadDimensions(bad)
	assert.ErrorContains(t, err, "not a PNG")

	short := filepath.Join(dir, "short.png")
	require.NoError(t, os.WriteFile(short, pngSignature, 0o644))
	_, _, err = ReadDimensions(short)
	assert.Error(t, err)
}

func TestDiscoverOrdersByNumericSuffix(t *testing.T) {
	dir := t.TempDir()
	// Lexical order would put 10 before 2.
	writePNG(t, filepath.Join(dir, "frame_10.png"), 100, 200)
	writePNG(t, filepath.Join(dir, "frame_2.png"), 100, 200)
	writePNG(t, filepath.Join(dir, "frame_00001.PNG"), 100, 200)

	set, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, set, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{set[0].Index, set[1].Index, set[2].Index})
	assert.Equal(t, 100, set[0].Width)
	assert.Equal(t, 200, set[0].Height)
}

func TestDiscoverSkipsNonFrames(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "007.png"), 64, 64)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.png"), []byte("no numeric suffix"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "101.png"), 0o755))

	set, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, 7, set[0].Index)
}

func TestDiscoverEmptyDirIsError(t *testing.T) {
	_, err := Discover(t.TempDir())
	assert.ErrorContains(t, err, "no numbered PNG frames")
}

func TestDiscoverMissingDirIsError(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestGeometry(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "000.png"), 1008, 1334)
	writePNG(t, filepath.Join(dir, "001.png"), 1008, 1334)

	set, err := Discover(dir)
	require.NoError(t, err)
	w, h, err := set.Geometry()
	require.NoError(t, err)
	assert.Equal(t, 1008, w)
	assert.Equal(t, 1334, h)
}

func TestGeometryMismatchNamesOffender(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "000.png"), 1008, 1334)
	writePNG(t, filepath.Join(dir, "001.png"), 1008, 1334)
	writePNG(t, filepath.Join(dir, "002.png"), 1008, 1344)

	set, err := Discover(dir)
	require.NoError(t, err)
	_, _, err = set.Geometry()
	var gerr *GeometryError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, filepath.Join(dir, "002.png"), gerr.Frame)
	assert.Contains(t, gerr.Detail, "1008x1344")
}

func TestSequenceIndex(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"frame_00042.png", 42},
		{"7.png", 7},
		{"shot12.PNG", 12},
		{"frame.png", -1},
		{"12.jpeg", -1},
	}
	for _, tt := range tests {
		if got := sequenceIndex(tt.name); got != tt.want {
			t.Errorf("sequenceIndex(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}
