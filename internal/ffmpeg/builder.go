package ffmpeg

import (
	"fmt"
	"strconv"

	"github.com/tiandaoyouchang-png/vap-master/internal/layout"
)

// preamble returns the flags shared by every ffmpeg invocation.
func preamble(verbose bool) []string {
	args := []string{"ffmpeg", "-hide_banner", "-nostdin", "-y"}
	if verbose {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}
	return args
}

// BuildCropArgs constructs the command cropping a single source frame to
// rect, written as one output image.
func BuildCropArgs(src, dst string, rect layout.Rect, verbose bool) []string {
	args := preamble(verbose)
	return append(args,
		"-i", src,
		"-vf", fmt.Sprintf("crop=%d:%d:%d:%d", rect.W, rect.H, rect.X, rect.Y),
		"-frames:v", "1",
		dst,
	)
}

// BuildSwapArgs constructs the region-swap re-encode: both panes are cropped
// out of the standard-layout video and overlaid onto a black canvas at their
// mask-left positions. Audio is dropped; VAP sources carry none.
func BuildSwapArgs(in, out string, plan layout.SwapPlan, fps int, bitrateK int, dur float64, verbose bool) []string {
	filter := fmt.Sprintf(
		"color=s=%dx%d:c=black:d=%.6f[base];"+
			"[0:v]crop=%d:%d:%d:%d[alpha];"+
			"[0:v]crop=%d:%d:%d:%d[rgb];"+
			"[base][alpha]overlay=%d:%d[tmp];"+
			"[tmp][rgb]overlay=%d:%d:shortest=1",
		plan.CanvasW, plan.CanvasH, dur,
		plan.AlphaSrc.W, plan.AlphaSrc.H, plan.AlphaSrc.X, plan.AlphaSrc.Y,
		plan.RGBSrc.W, plan.RGBSrc.H, plan.RGBSrc.X, plan.RGBSrc.Y,
		plan.AlphaDst.X, plan.AlphaDst.Y,
		plan.RGBDst.X, plan.RGBDst.Y,
	)

	args := preamble(verbose)
	return append(args,
		"-i", in,
		"-filter_complex", filter,
		"-an",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
		"-b:v", fmt.Sprintf("%dk", bitrateK),
		"-maxrate", fmt.Sprintf("%dk", bitrateK),
		"-bufsize", fmt.Sprintf("%dk", bitrateK*2),
		out,
	)
}
