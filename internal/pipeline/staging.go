package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Staging is the working directory of one run. Every intermediate artifact
// lands here; nothing is written to the user's output path until the final
// publish. The uuid suffix keeps concurrent runs disjoint.
type Staging struct {
	Root        string
	FramesDir   string // Normalized frames, renumbered 000.png, 001.png, ...
	EncodeDir   string // Encoder artifact drop (video.mp4, vapc.json, md5.txt).
	SwappedPath string // mask-left re-encoded video.
}

// NewStaging creates a fresh staging directory under the system temp dir.
func NewStaging() (*Staging, error) {
	root := filepath.Join(os.TempDir(), "vapmaster-"+uuid.NewString())
	s := &Staging{
		Root:        root,
		FramesDir:   filepath.Join(root, "frames"),
		EncodeDir:   filepath.Join(root, "vap_out"),
		SwappedPath: filepath.Join(root, "swapped.mp4"),
	}
	if err := os.MkdirAll(s.FramesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging: %w", err)
	}
	return s, nil
}

// Cleanup removes the staging tree. Retention is decided by the keep flag
// alone, on success and failure alike.
func (s *Staging) Cleanup(keep bool) error {
	if keep {
		return nil
	}
	return os.RemoveAll(s.Root)
}

// Publish moves src to dst atomically. A plain rename is tried first; when
// src and dst live on different devices the file is copied to a hidden
// sibling of dst and renamed into place, so a crash mid-copy never leaves a
// partial file at dst.
func Publish(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	dir, base := filepath.Split(dst)
	tmp := filepath.Join(dir, "."+base+".publish")

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
