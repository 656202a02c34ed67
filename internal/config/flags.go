package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into encoding, geometry, tools, behavior, and display.
// Enum fields use flag.Value adapters so invalid values fail at parse time.

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// version is shown in --version and help; override at build time with -ldflags "-X ...config.version=...".
var version = "1.0.0-dev"

// ParseFlags parses os.Args into cfg. On --help or --version it prints and exits.
// On error it returns non-nil (e.g. unknown flag, missing positional args).
func ParseFlags(cfg *Config) error {
	fs := flag.NewFlagSet("vapmaster", flag.ContinueOnError)
	fs.Usage = func() { printUsage(fs) }

	var showVersion, showHelp, forceColor, noColor bool

	// Encoding.
	fs.Var(&layoutModeValue{&cfg.Mode}, "mode", "Layout mode: standard | mask-left")
	fs.Var(&layoutModeValue{&cfg.Mode}, "m", "Same as --mode")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "Frames per second")
	fs.IntVar(&cfg.Bitrate, "bitrate", cfg.Bitrate, "VapTool encode bitrate (kbps)")
	fs.IntVar(&cfg.SwapBitrate, "swap-bitrate", cfg.SwapBitrate, "mask-left re-encode bitrate (kbps)")
	fs.Float64Var(&cfg.AlphaScale, "alpha-scale", cfg.AlphaScale, "Alpha pane scale in standard mode")

	// Geometry.
	fs.IntVar(&cfg.TargetHeight, "target-height", cfg.TargetHeight, "Expected frame height (0 accepts any)")

	// External tools.
	fs.StringVar(&cfg.JavaPath, "java", cfg.JavaPath, "Path to the java binary")
	fs.StringVar(&cfg.VapToolHome, "vaptool-home", cfg.VapToolHome, "VapTool install root")
	fs.DurationVar(&cfg.EncodeTimeout, "encode-timeout", cfg.EncodeTimeout, "Hard cap on one encode")

	// Behavior.
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Preview only; do not encode")
	fs.BoolVar(&cfg.DryRun, "d", false, "Same as --dry-run")
	fs.BoolVar(&cfg.KeepWork, "keep-work", false, "Retain the staging directory")

	// Display.
	fs.BoolVar(&forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&cfg.LogFile, "log", "", "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", "", "Same as --log")

	// Utility.
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&showVersion, "V", false, "Same as --version")
	fs.BoolVar(&showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&showHelp, "h", false, "Same as --help")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	if noColor {
		cfg.ColorMode = ColorNever
	} else if forceColor {
		cfg.ColorMode = ColorAlways
	}

	if showHelp {
		printUsage(fs)
		os.Exit(0)
	}
	if showVersion {
		fmt.Fprintln(os.Stdout, "vapmaster v"+version)
		os.Exit(0)
	}

	return parsePositionalArgs(fs, cfg)
}

// parsePositionalArgs sets InputDir and OutputPath from the two positional
// args when not in CheckOnly mode.
func parsePositionalArgs(fs *flag.FlagSet, cfg *Config) error {
	args := fs.Args()
	if cfg.CheckOnly {
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("need exactly input_dir and output.mp4")
	}
	cfg.InputDir = NormalizeDirArg(args[0])
	cfg.OutputPath = args[1]
	return nil
}

// printUsage writes the help text to stderr. Column-aligned for readability.
func printUsage(fs *flag.FlagSet) {
	const col1 = 30 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "vapmaster v" + version + " - VAP MP4 generator (PNG sequence in, vapc-tagged MP4 out)"},
		{"", ""},
		{"  vapmaster [OPTIONS] <input_dir> <output.mp4>", ""},
		{"", ""},
		{"Encoding", ""},
		{"  -m, --mode <standard|mask-left>", "Layout mode (default: standard)"},
		{"  --fps <n>", "Frames per second (default: 25)"},
		{"  --bitrate <kbps>", "VapTool encode bitrate (default: 2000)"},
		{"  --swap-bitrate <kbps>", "mask-left re-encode bitrate (default: 3000)"},
		{"  --alpha-scale <f>", "Alpha pane scale in standard mode (default: 0.5)"},
		{"", ""},
		{"Geometry", ""},
		{"  --target-height <px>", "Expected frame height; +10 triggers crop (default: 1334, 0 accepts any)"},
		{"", ""},
		{"Tools", ""},
		{"  --java <path>", "java binary (default: PATH lookup)"},
		{"  --vaptool-home <dir>", "VapTool install root (animtool.jar)"},
		{"  --encode-timeout <dur>", "Hard cap on one encode (default: 60m)"},
		{"", ""},
		{"Behavior", ""},
		{"  -d, --dry-run", "Preview only; do not encode"},
		{"  --keep-work", "Retain the staging directory"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -c, --check", "System diagnostics (ffmpeg, ffprobe, java, VapTool)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(os.Stderr, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(os.Stderr, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(os.Stderr, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapter so LayoutMode works with flag.Var.

type layoutModeValue struct{ p *LayoutMode }

func (m *layoutModeValue) String() string {
	if m.p == nil {
		return ""
	}
	return string(*m.p)
}

func (m *layoutModeValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "standard":
		*m.p = LayoutStandard
	case "mask-left":
		*m.p = LayoutMaskLeft
	default:
		return fmt.Errorf("invalid mode %q (use 'standard' or 'mask-left')", s)
	}
	return nil
}
