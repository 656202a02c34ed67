// Package frames discovers and validates the source PNG frame sequence.
//
// Frames are ordered by the numeric suffix in their filename (anything
// matching `(\d+).png`, case-insensitive). Only the PNG header is ever read;
// pixel data stays untouched.
package frames

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Frame is one discovered source frame.
type Frame struct {
	Index  int    // Numeric suffix parsed from the filename.
	Path   string
	Width  int
	Height int
}

// FrameSet is the ordered source sequence. All frames share identical
// dimensions once [FrameSet.Geometry] has succeeded.
type FrameSet []Frame

// GeometryError reports the first frame whose dimensions differ from the
// rest of the set, or a frame whose header cannot be decoded.
type GeometryError struct {
	Frame  string // Path of the offending frame.
	Detail string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("frame geometry: %s: %s", e.Frame, e.Detail)
}

var suffixRe = regexp.MustCompile(`(\d+)\.[pP][nN][gG]$`)

// sequenceIndex returns the numeric suffix of a frame filename, or -1 when
// the name carries none.
func sequenceIndex(name string) int {
	m := suffixRe.FindStringSubmatch(name)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// Discover lists the PNG frames in dir, ordered by numeric suffix, and reads
// each frame's dimensions from its header. An empty result is an error: the
// pipeline has nothing to encode.
func Discover(dir string) (FrameSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	var set FrameSet
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".png") {
			continue
		}
		idx := sequenceIndex(e.Name())
		if idx < 0 {
			continue
		}
		path := filepath.Join(dir, e.Name())
		w, h, err := ReadDimensions(path)
		if err != nil {
			return nil, &GeometryError{Frame: path, Detail: err.Error()}
		}
		set = append(set, Frame{Index: idx, Path: path, Width: w, Height: h})
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no numbered PNG frames found in %s (need files like frame_00001.png)", dir)
	}

	sort.Slice(set, func(i, j int) bool { return set[i].Index < set[j].Index })
	return set, nil
}

// Geometry verifies that every frame shares the first frame's dimensions and
// returns them. A mismatch is fatal input: the encoder would otherwise
// produce a video with drifting pane rectangles.
func (s FrameSet) Geometry() (w, h int, err error) {
	if len(s) == 0 {
		return 0, 0, fmt.Errorf("empty frame set")
	}
	w, h = s[0].Width, s[0].Height
	for _, f := range s[1:] {
		if f.Width != w || f.Height != h {
			return 0, 0, &GeometryError{
				Frame:  f.Path,
				Detail: fmt.Sprintf("%dx%d differs from first frame %dx%d", f.Width, f.Height, w, h),
			}
		}
	}
	return w, h, nil
}

// pngSignature is the fixed 8-byte PNG file signature.
var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// ReadDimensions reads width and height from a PNG's IHDR chunk. The IHDR
// chunk is required to be first, so 24 bytes past the signature suffice.
func ReadDimensions(path string) (w, h int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var hdr [24]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return 0, 0, fmt.Errorf("read PNG header: %w", err)
	}

	if string(hdr[:8]) != string(pngSignature) {
		return 0, 0, fmt.Errorf("not a PNG file")
	}
	ihdrLen := binary.BigEndian.Uint32(hdr[8:12])
	if string(hdr[12:16]) != "IHDR" || ihdrLen < 8 {
		return 0, 0, fmt.Errorf("invalid PNG header")
	}
	w = int(binary.BigEndian.Uint32(hdr[16:20]))
	h = int(binary.BigEndian.Uint32(hdr[20:24]))
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid PNG dimensions %dx%d", w, h)
	}
	return w, h, nil
}
