package check

import (
	"fmt"
	"os"

	gomp4 "github.com/abema/go-mp4"
)

// minContainerSize guards against trivially truncated outputs before any
// box parsing is attempted.
const minContainerSize = 1024

// vapcBoxType is the custom VAP metadata box.
var vapcBoxType = gomp4.StrToBoxType("vapc")

// ValidateContainer confirms the basic MP4 shape of the final artifact:
// ftyp first, moov and mdat present. It deliberately uses a third-party
// parser rather than the pipeline's own scanner, so the post-patch
// self-check does not share code with the writer it is checking.
func ValidateContainer(path string) error {
	types, err := topLevelBoxTypes(path)
	if err != nil {
		return err
	}
	if len(types) == 0 {
		return fmt.Errorf("%s: no boxes found", path)
	}
	if types[0] != gomp4.BoxTypeFtyp() {
		return fmt.Errorf("%s: first box is %s, want ftyp", path, types[0])
	}
	var hasMoov, hasMdat bool
	for _, t := range types {
		switch t {
		case gomp4.BoxTypeMoov():
			hasMoov = true
		case gomp4.BoxTypeMdat():
			hasMdat = true
		}
	}
	if !hasMoov {
		return fmt.Errorf("%s: missing moov box", path)
	}
	if !hasMdat {
		return fmt.Errorf("%s: missing mdat box", path)
	}
	return nil
}

// HasVapc reports whether the file carries a vapc box anywhere in its tree.
// Like [ValidateContainer] it walks with the third-party parser, so the
// pipeline's vapc presence check does not depend on the scanner that wrote
// the box.
func HasVapc(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var found bool
	_, err = gomp4.ReadBoxStructure(f, func(h *gomp4.ReadHandle) (interface{}, error) {
		if h.BoxInfo.Type == vapcBoxType {
			found = true
			return nil, nil
		}
		if h.BoxInfo.IsSupportedType() {
			return h.Expand()
		}
		return nil, nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: parse container: %w", path, err)
	}
	return found, nil
}

// topLevelBoxTypes walks only the file's top level; child boxes are not
// expanded.
func topLevelBoxTypes(path string) ([]gomp4.BoxType, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.Size() < minContainerSize {
		return nil, fmt.Errorf("%s: only %d bytes, not a usable container", path, fi.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var types []gomp4.BoxType
	_, err = gomp4.ReadBoxStructure(f, func(h *gomp4.ReadHandle) (interface{}, error) {
		types = append(types, h.BoxInfo.Type)
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: parse container: %w", path, err)
	}
	return types, nil
}
