package atom

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PayloadSizeMismatchError reports a patch whose transformed payload would
// change the box size. Growing or shrinking a box would cascade size and
// chunk-offset rewrites through the rest of the container, which this
// patcher refuses to do.
type PayloadSizeMismatchError struct {
	Want int // Original payload length.
	Got  int // Transformed payload length.
}

func (e *PayloadSizeMismatchError) Error() string {
	return fmt.Sprintf("transformed vapc payload is %d bytes, original is %d; in-place patch requires equal length", e.Got, e.Want)
}

// ReadPayload returns the raw payload bytes at loc.
func ReadPayload(path string, loc Location) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	raw := make([]byte, loc.PayloadSize)
	if _, err := f.ReadAt(raw, loc.PayloadOffset); err != nil {
		return nil, fmt.Errorf("read vapc payload: %w", err)
	}
	return raw, nil
}

// Patch rewrites the payload at loc through transform, leaving every byte
// outside the payload range untouched. The transformed payload must encode
// to exactly the original length or the file is left unmodified and a
// [PayloadSizeMismatchError] returned. Transforms that change only the
// fixed [Payload] fields always satisfy this: the reserved tail rides
// through Encode unchanged, so the encoded length cannot drift. The write
// goes to a staged copy that atomically replaces the original, so a crash
// mid-write never leaves a truncated file behind.
func Patch(path string, loc Location, transform func(Payload) Payload) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	raw := make([]byte, loc.PayloadSize)
	_, err = f.ReadAt(raw, loc.PayloadOffset)
	f.Close()
	if err != nil {
		return fmt.Errorf("read vapc payload: %w", err)
	}

	p, err := DecodePayload(raw)
	if err != nil {
		return err
	}
	out := transform(p).Encode()
	if len(out) != len(raw) {
		return &PayloadSizeMismatchError{Want: len(raw), Got: len(out)}
	}

	return stageAndReplace(path, func(tmp *os.File) error {
		_, err := tmp.WriteAt(out, loc.PayloadOffset)
		return err
	})
}

// Append writes a new top-level vapc box after the file's last byte.
// Appending shifts nothing, so existing box sizes and stco/co64 chunk
// offsets remain valid. Used when a re-encode dropped the atom entirely.
func Append(path string, p Payload) error {
	payload := p.Encode()
	box := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(box[:4], uint32(8+len(payload)))
	copy(box[4:8], VapcType)
	box = append(box, payload...)

	return stageAndReplace(path, func(tmp *os.File) error {
		fi, err := tmp.Stat()
		if err != nil {
			return err
		}
		_, err = tmp.WriteAt(box, fi.Size())
		return err
	})
}

// stageAndReplace copies path to a staging sibling, lets write mutate the
// copy, syncs, and renames the copy over the original. On any failure the
// staging file is removed and the original stays untouched.
func stageAndReplace(path string, write func(*os.File) error) error {
	dir, base := filepath.Split(path)
	tmpPath := filepath.Join(dir, "."+base+".patch")

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if _, err := io.Copy(tmp, src); err != nil {
		return fail(fmt.Errorf("stage copy: %w", err))
	}
	if err := write(tmp); err != nil {
		return fail(fmt.Errorf("write staged patch: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
