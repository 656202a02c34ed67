// Package layout computes target geometry for a run: the frame
// normalization rule, the output canvas per layout mode, and the swap plan
// consumed by the mask-left re-encode. Everything here is pure computation;
// applying a rule to files is the pipeline's job.
package layout

import (
	"fmt"
	"math"

	"github.com/tiandaoyouchang-png/vap-master/internal/config"
)

// cropAnomalyOffset is the platform-specific extra height some capture
// exports carry; frames at targetH+10 are cropped back to targetH.
const cropAnomalyOffset = 10

// Rect is a pixel rectangle. X/Y is the top-left origin.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", r.W, r.H, r.X, r.Y)
}

// Rule describes how raw frames are brought to target geometry before
// encoding. Crop is nil when frames are already at target height. Width is
// never altered at this stage.
type Rule struct {
	TargetW int
	TargetH int
	Crop    *Rect // Always origin (0,0), full width, when set.
}

// Normalize derives the Rule for raw frame dimensions. targetH is the
// configured expected height; 0 accepts any raw height unchanged. A raw
// height that is neither targetH nor the documented +10 anomaly is an
// error: the rule never guesses at unexpected geometry.
func Normalize(rawW, rawH, targetH int) (Rule, error) {
	if rawW <= 0 || rawH <= 0 {
		return Rule{}, fmt.Errorf("invalid raw frame size %dx%d", rawW, rawH)
	}

	if targetH == 0 || rawH == targetH {
		return Rule{TargetW: rawW, TargetH: rawH}, nil
	}
	if rawH == targetH+cropAnomalyOffset {
		return Rule{
			TargetW: rawW,
			TargetH: targetH,
			Crop:    &Rect{X: 0, Y: 0, W: rawW, H: targetH},
		}, nil
	}
	return Rule{}, fmt.Errorf("frame height must be %d or %d, got %d",
		targetH, targetH+cropAnomalyOffset, rawH)
}

// Spec is the immutable target layout for a run, computed once from the
// normalized frame dimensions.
type Spec struct {
	Mode    config.LayoutMode
	FrameW  int
	FrameH  int
	CanvasW int
	CanvasH int
}

// NewSpec computes the output canvas for the given mode. In standard mode
// the alpha pane sits right of the RGB pane at alphaScale size; in mask-left
// mode both panes are full size, alpha left, RGB right.
func NewSpec(mode config.LayoutMode, frameW, frameH int, alphaScale float64) Spec {
	s := Spec{Mode: mode, FrameW: frameW, FrameH: frameH, CanvasH: frameH}
	switch mode {
	case config.LayoutMaskLeft:
		s.CanvasW = frameW * 2
	default:
		s.CanvasW = frameW + int(math.Round(float64(frameW)*alphaScale))
	}
	return s
}

// Point is a destination position on the canvas.
type Point struct {
	X, Y int
}

// SwapPlan describes the mask-left region swap over the encoded
// standard-layout video: which source rectangle holds each pane and where it
// lands on the new canvas. Built once per run, consumed by the re-encode.
type SwapPlan struct {
	CanvasW  int
	CanvasH  int
	AlphaSrc Rect
	RGBSrc   Rect
	AlphaDst Point
	RGBDst   Point
}

// BuildSwapPlan combines the target spec with the encoder-reported pane
// rectangles. Alpha moves to the left half, RGB to the right half.
func BuildSwapPlan(spec Spec, alphaSrc, rgbSrc Rect) SwapPlan {
	return SwapPlan{
		CanvasW:  spec.CanvasW,
		CanvasH:  spec.CanvasH,
		AlphaSrc: alphaSrc,
		RGBSrc:   rgbSrc,
		AlphaDst: Point{X: 0, Y: 0},
		RGBDst:   Point{X: spec.FrameW, Y: 0},
	}
}
