package encoder

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tiandaoyouchang-png/vap-master/internal/layout"
)

// Metadata is the parsed content of the encoder's vapc.json artifact: the
// pane rectangles and frame facts for the standard-layout video it produced.
type Metadata struct {
	Version    int
	FrameCount int
	FPS        float64
	VideoW     int
	VideoH     int
	AFrame     layout.Rect // Alpha pane in the encoded video.
	RGBFrame   layout.Rect // RGB pane in the encoded video.
}

// Duration returns the video duration in seconds.
func (m *Metadata) Duration() float64 {
	return float64(m.FrameCount) / m.FPS
}

// --- vapc.json wire types ---

type metadataDoc struct {
	Info *metadataInfo `json:"info"`
}

type metadataInfo struct {
	Version    int     `json:"v"`
	FrameCount int     `json:"f"`
	FPS        float64 `json:"fps"`
	VideoW     int     `json:"videoW"`
	VideoH     int     `json:"videoH"`
	AFrame     []int   `json:"aFrame"`
	RGBFrame   []int   `json:"rgbFrame"`
}

// ParseMetadata reads and validates a vapc.json file.
func ParseMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMetadataJSON(data)
}

// ParseMetadataJSON converts raw vapc.json bytes into Metadata.
// Exported for testing without encoder output on disk.
func ParseMetadataJSON(data []byte) (*Metadata, error) {
	var doc metadataDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse vapc.json: %w", err)
	}
	info := doc.Info
	if info == nil {
		return nil, fmt.Errorf("vapc.json: missing info object")
	}
	if info.FrameCount <= 0 || info.FPS <= 0 {
		return nil, fmt.Errorf("vapc.json: invalid frame metadata: f=%d, fps=%g", info.FrameCount, info.FPS)
	}
	aFrame, err := rectFromSlice(info.AFrame, "aFrame")
	if err != nil {
		return nil, err
	}
	rgbFrame, err := rectFromSlice(info.RGBFrame, "rgbFrame")
	if err != nil {
		return nil, err
	}
	return &Metadata{
		Version:    info.Version,
		FrameCount: info.FrameCount,
		FPS:        info.FPS,
		VideoW:     info.VideoW,
		VideoH:     info.VideoH,
		AFrame:     aFrame,
		RGBFrame:   rgbFrame,
	}, nil
}

func rectFromSlice(v []int, name string) (layout.Rect, error) {
	if len(v) != 4 {
		return layout.Rect{}, fmt.Errorf("vapc.json: %s must have 4 elements, got %d", name, len(v))
	}
	return layout.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}
