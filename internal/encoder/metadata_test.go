package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiandaoyouchang-png/vap-master/internal/layout"
)

const sampleMetadata = `{
  "info": {
    "v": 2,
    "f": 120,
    "fps": 25,
    "w": 1008,
    "h": 1334,
    "videoW": 1512,
    "videoH": 1334,
    "aFrame": [1008, 0, 504, 667],
    "rgbFrame": [0, 0, 1008, 1334]
  }
}`

func TestParseMetadataJSON(t *testing.T) {
	m, err := ParseMetadataJSON([]byte(sampleMetadata))
	require.NoError(t, err)

	assert.Equal(t, 2, m.Version)
	assert.Equal(t, 120, m.FrameCount)
	assert.Equal(t, 25.0, m.FPS)
	assert.Equal(t, 1512, m.VideoW)
	assert.Equal(t, 1334, m.VideoH)
	assert.Equal(t, layout.Rect{X: 1008, Y: 0, W: 504, H: 667}, m.AFrame)
	assert.Equal(t, layout.Rect{X: 0, Y: 0, W: 1008, H: 1334}, m.RGBFrame)
	assert.InDelta(t, 4.8, m.Duration(), 1e-9)
}

func TestParseMetadataJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"not json", `{broken`, "parse vapc.json"},
		{"missing info", `{"other": 1}`, "missing info"},
		{"zero frame count", `{"info":{"f":0,"fps":25,"aFrame":[0,0,1,1],"rgbFrame":[0,0,1,1]}}`, "invalid frame metadata"},
		{"zero fps", `{"info":{"f":10,"fps":0,"aFrame":[0,0,1,1],"rgbFrame":[0,0,1,1]}}`, "invalid frame metadata"},
		{"short aFrame", `{"info":{"f":10,"fps":25,"aFrame":[0,0,1],"rgbFrame":[0,0,1,1]}}`, "aFrame must have 4 elements"},
		{"long rgbFrame", `{"info":{"f":10,"fps":25,"aFrame":[0,0,1,1],"rgbFrame":[0,0,1,1,9]}}`, "rgbFrame must have 4 elements"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetadataJSON([]byte(tt.json))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
