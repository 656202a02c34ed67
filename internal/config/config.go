// Package config holds runtime configuration: defaults, CLI flag parsing, and
// validation. Defaults match the legacy vap_master.py batch script for parity.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// --- Enum types for validated string fields ---

// LayoutMode selects the VAP canvas arrangement of the final video.
type LayoutMode string

const (
	// LayoutStandard places RGB left at full size and a scaled alpha pane right.
	LayoutStandard LayoutMode = "standard"
	// LayoutMaskLeft places the alpha pane left and RGB right, both full size.
	LayoutMaskLeft LayoutMode = "mask-left"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then mutated by [ParseFlags] before being passed (by pointer) to packages
// that need it. Fields are grouped by concern with inline documentation of
// defaults and fixed values.
type Config struct {
	// Paths (set from positional args).
	InputDir   string // Source PNG frame directory.
	OutputPath string // Final MP4 path.

	// Encode settings.
	FPS         int        // Default: 25.
	Mode        LayoutMode // Default: "standard".
	Bitrate     int        // VapTool encode bitrate in kbps. Default: 2000.
	SwapBitrate int        // mask-left re-encode bitrate in kbps. Default: 3000.
	AlphaScale  float64    // Alpha pane scale in standard mode. Default: 0.5.

	// Geometry. Raw height == TargetHeight+10 triggers a crop; 0 disables
	// the anomaly check and accepts the raw height as-is.
	TargetHeight int // Default: 1334.

	// External tools.
	JavaPath      string        // Path to the java binary. Default: "java" (PATH lookup).
	VapToolHome   string        // VapTool install root (animtool.jar, VapBatch.java).
	EncodeTimeout time.Duration // Hard cap on one VapTool invocation. Default: 60m.

	// Behavior flags.
	DryRun   bool
	KeepWork bool // Retain the staging directory after the run.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.
	CheckOnly bool      // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with all defaults matching the legacy batch
// script. Used as the base before [ParseFlags] applies CLI overrides.
func DefaultConfig() Config {
	return Config{
		FPS:           25,
		Mode:          LayoutStandard,
		Bitrate:       2000,
		SwapBitrate:   3000,
		AlphaScale:    0.5,
		TargetHeight:  1334,
		JavaPath:      "java",
		EncodeTimeout: 60 * time.Minute,
		ColorMode:     ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges. When not in CheckOnly mode,
// it also requires the input directory, output path, and VapTool home.
func (c *Config) Validate() error {
	switch c.Mode {
	case LayoutStandard, LayoutMaskLeft:
		// valid
	default:
		return errors.New("invalid mode (use 'standard' or 'mask-left')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.FPS <= 0 {
		return fmt.Errorf("fps must be > 0, got %d", c.FPS)
	}
	if c.Bitrate <= 0 {
		return fmt.Errorf("bitrate must be > 0, got %d", c.Bitrate)
	}
	if c.SwapBitrate <= 0 {
		return fmt.Errorf("swap bitrate must be > 0, got %d", c.SwapBitrate)
	}
	if c.AlphaScale <= 0 || c.AlphaScale > 1 {
		return fmt.Errorf("alpha scale must be in (0, 1], got %g", c.AlphaScale)
	}
	if c.TargetHeight < 0 {
		return fmt.Errorf("target height must be >= 0, got %d", c.TargetHeight)
	}
	if c.EncodeTimeout <= 0 {
		return errors.New("encode timeout must be positive")
	}

	if c.CheckOnly {
		return nil
	}
	if c.InputDir == "" || c.OutputPath == "" {
		return errors.New("need exactly input_dir and output.mp4")
	}
	if c.VapToolHome == "" {
		return errors.New("vaptool home is required (--vaptool-home)")
	}
	return nil
}

// ValidatePaths ensures the resolved output path does not sit inside the
// resolved input directory, so the pipeline never treats its own output as a
// source frame. Both arguments must be absolute, symlink-resolved paths.
func (c *Config) ValidatePaths(inputAbs, outputAbs string) error {
	sep := string(filepath.Separator)
	if outputAbs == inputAbs || strings.HasPrefix(outputAbs+sep, inputAbs+sep) {
		return errors.New("output path must not be inside the input directory")
	}
	return nil
}

// AnimToolJar returns the path of VapTool's encoder jar.
func (c *Config) AnimToolJar() string {
	return filepath.Join(c.VapToolHome, "animtool.jar")
}

// Scale returns the alpha pane scale fed to the encoder for the active mode.
// mask-left encodes both panes at full size and swaps them afterwards.
func (c *Config) Scale() float64 {
	if c.Mode == LayoutMaskLeft {
		return 1.0
	}
	return c.AlphaScale
}
