package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/tiandaoyouchang-png/vap-master/internal/atom"
	"github.com/tiandaoyouchang-png/vap-master/internal/check"
	"github.com/tiandaoyouchang-png/vap-master/internal/config"
	"github.com/tiandaoyouchang-png/vap-master/internal/display"
	"github.com/tiandaoyouchang-png/vap-master/internal/encoder"
	"github.com/tiandaoyouchang-png/vap-master/internal/ffmpeg"
	"github.com/tiandaoyouchang-png/vap-master/internal/frames"
	"github.com/tiandaoyouchang-png/vap-master/internal/layout"
	"github.com/tiandaoyouchang-png/vap-master/internal/logging"
	"github.com/tiandaoyouchang-png/vap-master/internal/probe"
)

// VapEncoder is the external encoder collaborator.
type VapEncoder interface {
	CompileBatchClass(ctx context.Context) error
	Run(ctx context.Context, req encoder.Request) (*encoder.Artifacts, error)
}

// Transcoder runs a built ffmpeg argument slice.
type Transcoder interface {
	Execute(ctx context.Context, args []string, verbose bool) ffmpeg.ExecResult
}

// Prober reads video facts from a file.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.Result, error)
}

// Runner drives one generation run through the state machine. Collaborators
// are fields so tests can substitute fakes.
type Runner struct {
	cfg    *config.Config
	log    *logging.Logger
	enc    VapEncoder
	ff     Transcoder
	prober Prober

	state State
}

// NewRunner wires a Runner to the real external collaborators.
func NewRunner(cfg *config.Config, log *logging.Logger) *Runner {
	return &Runner{
		cfg: cfg,
		log: log,
		enc: &encoder.Encoder{
			Java:        cfg.JavaPath,
			VapToolHome: cfg.VapToolHome,
		},
		ff:     transcoderFunc(ffmpeg.Execute),
		prober: proberFunc(probe.Probe),
		state:  StateStart,
	}
}

// State reports the machine's current node; StateFailed after any error.
func (r *Runner) State() State { return r.state }

func (r *Runner) fail(err error) error {
	r.state = StateFailed
	return err
}

// Run executes the full pipeline and returns the published output path.
// On any error the user-visible output path is left untouched.
func (r *Runner) Run(ctx context.Context) (string, error) {
	cfg := r.cfg
	start := time.Now()

	// --- Source geometry ---
	set, err := frames.Discover(cfg.InputDir)
	if err != nil {
		return "", r.fail(err)
	}
	rawW, rawH, err := set.Geometry()
	if err != nil {
		return "", r.fail(err)
	}
	rule, err := layout.Normalize(rawW, rawH, cfg.TargetHeight)
	if err != nil {
		return "", r.fail(err)
	}
	spec := layout.NewSpec(cfg.Mode, rule.TargetW, rule.TargetH, cfg.AlphaScale)

	r.log.Info("Frames: %d at %dx%d", len(set), rawW, rawH)
	if rule.Crop != nil {
		r.log.Info("Crop: %s (height anomaly)", rule.Crop)
	}
	r.log.Info("Mode: %s, canvas %dx%d", cfg.Mode, spec.CanvasW, spec.CanvasH)

	if cfg.DryRun {
		r.log.Success("[DRY] Would encode %d frames to %s", len(set), cfg.OutputPath)
		r.state = StateDone
		return "", nil
	}

	staging, err := NewStaging()
	if err != nil {
		return "", r.fail(err)
	}
	defer func() {
		if cfg.KeepWork {
			r.log.Info("Staging directory retained: %s", staging.Root)
			return
		}
		if err := staging.Cleanup(false); err != nil {
			r.log.Warn("Staging cleanup failed: %v", err)
		}
	}()

	// --- Normalize ---
	if err := r.normalizeFrames(ctx, set, rule, staging.FramesDir); err != nil {
		return "", r.fail(err)
	}
	r.state = StateNormalized

	// --- Encode (bounded wait; the encoder must never hang the pipeline) ---
	artifacts, err := r.encode(ctx, staging)
	if err != nil {
		return "", r.fail(err)
	}
	r.state = StateEncoded

	if cfg.Mode == config.LayoutStandard {
		return r.publishStandard(ctx, artifacts, start)
	}

	// --- Swap ---
	meta, err := encoder.ParseMetadata(artifacts.MetadataPath)
	if err != nil {
		return "", r.fail(fmt.Errorf("encoder metadata: %w", err))
	}
	plan := layout.BuildSwapPlan(spec, meta.AFrame, meta.RGBFrame)
	if err := r.swapRegions(ctx, artifacts.VideoPath, staging.SwappedPath, plan, meta); err != nil {
		return "", r.fail(err)
	}
	r.state = StateSwapped

	// --- Patch ---
	want := atom.Payload{
		RGB:        layout.Rect{X: spec.FrameW, Y: 0, W: spec.FrameW, H: spec.FrameH},
		Alpha:      layout.Rect{X: 0, Y: 0, W: spec.FrameW, H: spec.FrameH},
		FrameCount: uint32(meta.FrameCount),
		Version:    uint32(meta.Version),
	}
	if err := r.patchAtom(staging.SwappedPath, want); err != nil {
		return "", r.fail(err)
	}
	r.state = StatePatched

	// --- Validate ---
	if err := r.validateOutput(ctx, staging.SwappedPath, want, plan); err != nil {
		return "", r.fail(err)
	}
	r.state = StateValidated

	// --- Publish ---
	if err := Publish(staging.SwappedPath, cfg.OutputPath); err != nil {
		return "", r.fail(err)
	}
	r.state = StateDone
	r.logDone(cfg.OutputPath, start)
	return cfg.OutputPath, nil
}

// normalizeFrames applies the normalization rule into dstDir, renumbering
// frames to a contiguous 000.png sequence. Frames already at target height
// are hard-linked when possible, copied otherwise; anomalous frames go
// through an ffmpeg crop.
func (r *Runner) normalizeFrames(ctx context.Context, set frames.FrameSet, rule layout.Rule, dstDir string) error {
	for i, f := range set {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		dst := filepath.Join(dstDir, fmt.Sprintf("%03d.png", i))
		if rule.Crop == nil {
			if err := linkOrCopy(f.Path, dst); err != nil {
				return fmt.Errorf("stage frame %s: %w", filepath.Base(f.Path), err)
			}
			continue
		}
		res := r.ff.Execute(ctx, ffmpeg.BuildCropArgs(f.Path, dst, *rule.Crop, r.cfg.Verbose), r.cfg.Verbose)
		if res.Err != nil {
			return fmt.Errorf("crop frame %s: %w", filepath.Base(f.Path), res.Err)
		}
	}
	return nil
}

// encode runs the external encoder under the configured timeout and logs
// its observed progress stream.
func (r *Runner) encode(ctx context.Context, staging *Staging) (*encoder.Artifacts, error) {
	encCtx, cancel := context.WithTimeout(ctx, r.cfg.EncodeTimeout)
	defer cancel()

	if err := r.enc.CompileBatchClass(encCtx); err != nil {
		return nil, err
	}

	progress := make(chan int, 8)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for pct := range progress {
			r.log.Debug(r.cfg.Verbose, "Encode progress: %d%%", pct)
		}
	}()

	artifacts, err := r.enc.Run(encCtx, encoder.Request{
		FramesDir: staging.FramesDir,
		OutDir:    staging.EncodeDir,
		FPS:       r.cfg.FPS,
		Bitrate:   r.cfg.Bitrate,
		Scale:     r.cfg.Scale(),
		Progress:  progress,
	})
	<-drained
	if err != nil {
		return nil, err
	}
	r.log.Success("Encoded %s", filepath.Base(artifacts.VideoPath))
	return artifacts, nil
}

// publishStandard finishes a standard-mode run: the encoder's own output is
// the final artifact once it probes as playable.
func (r *Runner) publishStandard(ctx context.Context, artifacts *encoder.Artifacts, start time.Time) (string, error) {
	if _, err := r.prober.Probe(ctx, artifacts.VideoPath); err != nil {
		return "", r.fail(&ValidationError{Detail: fmt.Sprintf("encoded video not playable: %v", err)})
	}
	if err := Publish(artifacts.VideoPath, r.cfg.OutputPath); err != nil {
		return "", r.fail(err)
	}
	r.state = StateDone
	r.logDone(r.cfg.OutputPath, start)
	return r.cfg.OutputPath, nil
}

// swapRegions re-encodes the standard-layout video per plan and verifies
// the result's resolution against the computed canvas.
func (r *Runner) swapRegions(ctx context.Context, in, out string, plan layout.SwapPlan, meta *encoder.Metadata) error {
	fps := int(math.Round(meta.FPS))
	args := ffmpeg.BuildSwapArgs(in, out, plan, fps, r.cfg.SwapBitrate, meta.Duration(), r.cfg.Verbose)
	res := r.ff.Execute(ctx, args, r.cfg.Verbose)
	if res.Err != nil {
		return &SwapError{Reason: res.Err.Error(), Stderr: res.Stderr}
	}

	pr, err := r.prober.Probe(ctx, out)
	if err != nil {
		return &SwapError{Reason: fmt.Sprintf("probe swapped video: %v", err)}
	}
	if pr.Width != plan.CanvasW || pr.Height != plan.CanvasH {
		return &ResolutionMismatchError{
			WantW: plan.CanvasW, WantH: plan.CanvasH,
			GotW: pr.Width, GotH: pr.Height,
		}
	}
	r.log.Success("Swapped regions: %dx%d", pr.Width, pr.Height)
	return nil
}

// patchAtom brings the swapped file's vapc atom in line with the new
// layout. A present atom is patched in place (rectangles only; frame count
// and version ride along unchanged). An absent one is appended as a new
// top-level box; that is the usual case, since the re-encode drops it.
func (r *Runner) patchAtom(path string, want atom.Payload) error {
	loc, err := atom.LocateFile(path, atom.VapcType)
	switch {
	case err == nil:
		err = atom.Patch(path, loc, func(p atom.Payload) atom.Payload {
			p.RGB = want.RGB
			p.Alpha = want.Alpha
			return p
		})
		if err != nil {
			return &AtomPatchError{Err: err}
		}
		r.log.Info("Patched vapc atom in place")
	case errors.Is(err, atom.ErrNotFound):
		if err := atom.Append(path, want); err != nil {
			return &AtomPatchError{Err: err}
		}
		r.log.Info("Inserted vapc atom")
	default:
		return &AtomPatchError{Err: err}
	}
	return nil
}

// validateOutput is the post-patch self-check: the atom must read back with
// the expected rectangles, an independent parser must accept the container
// shape and see the vapc box, and the file must probe as playable. The
// write is never trusted blindly.
func (r *Runner) validateOutput(ctx context.Context, path string, want atom.Payload, plan layout.SwapPlan) error {
	loc, err := atom.LocateFile(path, atom.VapcType)
	if err != nil {
		return &ValidationError{Detail: fmt.Sprintf("re-scan vapc: %v", err)}
	}
	raw, err := atom.ReadPayload(path, loc)
	if err != nil {
		return &ValidationError{Detail: err.Error()}
	}
	got, err := atom.DecodePayload(raw)
	if err != nil {
		return &ValidationError{Detail: err.Error()}
	}
	if got.RGB != want.RGB || got.Alpha != want.Alpha {
		return &ValidationError{Detail: fmt.Sprintf(
			"vapc reports rgb=%s alpha=%s, want rgb=%s alpha=%s",
			got.RGB, got.Alpha, want.RGB, want.Alpha)}
	}

	if err := check.ValidateContainer(path); err != nil {
		return &ValidationError{Detail: err.Error()}
	}
	hasVapc, err := check.HasVapc(path)
	if err != nil {
		return &ValidationError{Detail: err.Error()}
	}
	if !hasVapc {
		return &ValidationError{Detail: "independent parse found no vapc box"}
	}
	pr, err := r.prober.Probe(ctx, path)
	if err != nil {
		return &ValidationError{Detail: fmt.Sprintf("final video not playable: %v", err)}
	}
	if pr.Width != plan.CanvasW || pr.Height != plan.CanvasH {
		return &ValidationError{Detail: fmt.Sprintf(
			"final video is %dx%d, want %dx%d", pr.Width, pr.Height, plan.CanvasW, plan.CanvasH)}
	}
	return nil
}

func (r *Runner) logDone(path string, start time.Time) {
	var size int64
	if fi, err := os.Stat(path); err == nil {
		size = fi.Size()
	}
	r.log.Success("Done in %s: %s (%s)",
		display.FormatDuration(time.Since(start)), path, display.FormatBytes(size))
}

// linkOrCopy hard-links src to dst, falling back to a byte copy across
// filesystems. Symlinks are avoided: the encoder's directory scan does not
// follow them reliably.
func linkOrCopy(src, dst string) error {
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// --- collaborator adapters ---

type transcoderFunc func(ctx context.Context, args []string, verbose bool) ffmpeg.ExecResult

func (f transcoderFunc) Execute(ctx context.Context, args []string, verbose bool) ffmpeg.ExecResult {
	return f(ctx, args, verbose)
}

type proberFunc func(ctx context.Context, path string) (*probe.Result, error)

func (f proberFunc) Probe(ctx context.Context, path string) (*probe.Result, error) {
	return f(ctx, path)
}
