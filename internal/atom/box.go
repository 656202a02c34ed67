// Package atom reads and rewrites boxes of an ISO base media (MP4)
// container, specifically the custom `vapc` box carrying VAP region-layout
// metadata. The scanner walks the box tree without loading payloads; the
// patcher rewrites the vapc payload in place without moving a single other
// byte, so chunk-offset tables (stco/co64) elsewhere in the file stay valid.
package atom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// VapcType is the four-character code of the VAP metadata box.
const VapcType = "vapc"

// ErrNotFound is returned by Locate when the container holds no matching
// box. Recoverable: a freshly re-encoded file legitimately lacks vapc.
var ErrNotFound = errors.New("atom not found")

// MalformedContainerError reports a box whose declared geometry is
// inconsistent with the file, e.g. a size overrunning the remaining bytes.
type MalformedContainerError struct {
	Offset int64
	Detail string
}

func (e *MalformedContainerError) Error() string {
	return fmt.Sprintf("malformed container at offset %d: %s", e.Offset, e.Detail)
}

// Box is one node of the container's box tree. The tree is owned by the
// Scan call that produced it and is never mutated afterwards.
type Box struct {
	Type       string // Four-character code.
	Offset     int64  // File offset of the box header.
	Size       int64  // Total box size including header.
	HeaderSize int64  // 8, or 16 when the 64-bit largesize form is used.
	Children   []*Box // Populated only for known container types.
}

// PayloadOffset is the file offset of the box payload.
func (b *Box) PayloadOffset() int64 { return b.Offset + b.HeaderSize }

// PayloadSize is the payload length in bytes.
func (b *Box) PayloadSize() int64 { return b.Size - b.HeaderSize }

// Container box types whose payloads hold further boxes. Unknown types are
// treated as opaque leaves.
var containerTypes = map[string]bool{
	"moov": true,
	"trak": true,
	"mdia": true,
	"minf": true,
	"stbl": true,
	"udta": true,
	"edts": true,
}

// maxScanDepth bounds recursion into nested container boxes.
const maxScanDepth = 8

// Scan parses the top-level box tree of a container of the given size,
// recursing into known container types. It fails with
// [MalformedContainerError] rather than reading out of bounds; no partial
// tree is ever returned alongside an error.
func Scan(r io.ReaderAt, size int64) ([]*Box, error) {
	return scanRange(r, 0, size, 0)
}

func scanRange(r io.ReaderAt, start, end int64, depth int) ([]*Box, error) {
	var boxes []*Box
	pos := start
	for pos < end {
		if end-pos < 8 {
			return nil, &MalformedContainerError{Offset: pos, Detail: "truncated box header"}
		}
		var hdr [8]byte
		if _, err := r.ReadAt(hdr[:], pos); err != nil {
			return nil, fmt.Errorf("read box header at %d: %w", pos, err)
		}

		size32 := binary.BigEndian.Uint32(hdr[:4])
		typ := string(hdr[4:8])
		headerSize := int64(8)
		boxSize := int64(size32)

		switch size32 {
		case 0:
			// Box extends to the end of the enclosing range.
			boxSize = end - pos
		case 1:
			if end-pos < 16 {
				return nil, &MalformedContainerError{Offset: pos, Detail: "truncated largesize field"}
			}
			var ext [8]byte
			if _, err := r.ReadAt(ext[:], pos+8); err != nil {
				return nil, fmt.Errorf("read largesize at %d: %w", pos, err)
			}
			large := binary.BigEndian.Uint64(ext[:])
			if large > uint64(end-pos) {
				return nil, &MalformedContainerError{
					Offset: pos,
					Detail: fmt.Sprintf("box %q largesize %d overruns remaining %d bytes", typ, large, end-pos),
				}
			}
			boxSize = int64(large)
			headerSize = 16
		}

		if boxSize < headerSize {
			return nil, &MalformedContainerError{
				Offset: pos,
				Detail: fmt.Sprintf("box %q declared size %d smaller than its %d-byte header", typ, boxSize, headerSize),
			}
		}
		if pos+boxSize > end {
			return nil, &MalformedContainerError{
				Offset: pos,
				Detail: fmt.Sprintf("box %q declared size %d overruns remaining %d bytes", typ, boxSize, end-pos),
			}
		}

		b := &Box{Type: typ, Offset: pos, Size: boxSize, HeaderSize: headerSize}
		if containerTypes[typ] && depth < maxScanDepth {
			children, err := scanRange(r, pos+headerSize, pos+boxSize, depth+1)
			if err != nil {
				return nil, err
			}
			b.Children = children
		}
		boxes = append(boxes, b)
		pos += boxSize
	}
	return boxes, nil
}

// Location is the byte range of a located box, everything the patcher needs.
type Location struct {
	BoxOffset     int64
	PayloadOffset int64
	PayloadSize   int64
}

// Locate returns the byte range of the first box with the given
// four-character code, in depth-first document order. Returns [ErrNotFound]
// when the container parses cleanly but holds no match.
func Locate(r io.ReaderAt, size int64, fourcc string) (Location, error) {
	boxes, err := Scan(r, size)
	if err != nil {
		return Location{}, err
	}
	b := findFirst(boxes, fourcc)
	if b == nil {
		return Location{}, ErrNotFound
	}
	return Location{
		BoxOffset:     b.Offset,
		PayloadOffset: b.PayloadOffset(),
		PayloadSize:   b.PayloadSize(),
	}, nil
}

// LocateFile is Locate over a file on disk.
func LocateFile(path, fourcc string) (Location, error) {
	f, err := os.Open(path)
	if err != nil {
		return Location{}, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return Location{}, err
	}
	return Locate(f, fi.Size(), fourcc)
}

func findFirst(boxes []*Box, fourcc string) *Box {
	for _, b := range boxes {
		if b.Type == fourcc {
			return b
		}
		if c := findFirst(b.Children, fourcc); c != nil {
			return c
		}
	}
	return nil
}
