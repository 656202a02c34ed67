package ffmpeg

import (
	"strings"
	"testing"

	"github.com/tiandaoyouchang-png/vap-master/internal/layout"
)

func TestBuildCropArgs(t *testing.T) {
	args := BuildCropArgs("in.png", "out.png", layout.Rect{X: 0, Y: 0, W: 1008, H: 1334}, false)

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"ffmpeg",
		"-nostdin",
		"-y",
		"-loglevel error",
		"-i in.png",
		"-vf crop=1008:1334:0:0",
		"-frames:v 1",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q in %q", want, joined)
		}
	}
	if args[len(args)-1] != "out.png" {
		t.Errorf("last arg = %q, want out.png", args[len(args)-1])
	}
}

func TestBuildSwapArgs(t *testing.T) {
	plan := layout.SwapPlan{
		CanvasW:  2016,
		CanvasH:  1334,
		AlphaSrc: layout.Rect{X: 1008, Y: 0, W: 1008, H: 1334},
		RGBSrc:   layout.Rect{X: 0, Y: 0, W: 1008, H: 1334},
		AlphaDst: layout.Point{X: 0, Y: 0},
		RGBDst:   layout.Point{X: 1008, Y: 0},
	}

	args := BuildSwapArgs("in.mp4", "out.mp4", plan, 25, 3000, 4.8, false)

	wantFilter := "color=s=2016x1334:c=black:d=4.800000[base];" +
		"[0:v]crop=1008:1334:1008:0[alpha];" +
		"[0:v]crop=1008:1334:0:0[rgb];" +
		"[base][alpha]overlay=0:0[tmp];" +
		"[tmp][rgb]overlay=1008:0:shortest=1"

	var gotFilter string
	for i, a := range args {
		if a == "-filter_complex" && i+1 < len(args) {
			gotFilter = args[i+1]
		}
	}
	if gotFilter != wantFilter {
		t.Errorf("filter_complex =\n%q\nwant\n%q", gotFilter, wantFilter)
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i in.mp4",
		"-an",
		"-c:v libx264",
		"-pix_fmt yuv420p",
		"-r 25",
		"-b:v 3000k",
		"-maxrate 3000k",
		"-bufsize 6000k",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q in %q", want, joined)
		}
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("last arg = %q, want out.mp4", args[len(args)-1])
	}
}

func TestVerbosePreamble(t *testing.T) {
	args := BuildCropArgs("a", "b", layout.Rect{W: 1, H: 1}, true)
	if !strings.Contains(strings.Join(args, " "), "-loglevel info") {
		t.Error("verbose build must raise the log level")
	}
}
