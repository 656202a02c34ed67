// Package check provides system diagnostics (--check mode) and pre-pipeline
// dependency validation for ffmpeg, ffprobe, java, and the VapTool install.
package check

import (
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/tiandaoyouchang-png/vap-master/internal/config"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrFfmpegNotFound  = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound = errors.New("ffprobe not found on PATH")
	ErrJavaNotFound    = errors.New("java binary not found or not runnable")
	ErrAnimToolMissing = errors.New("animtool.jar not found under the VapTool home")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// RunCheck runs the interactive --check flow: prints availability of ffmpeg,
// ffprobe, libx264, java, and the VapTool install. Informational only; it
// does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	checkTool(log, "ffmpeg", "-version")
	checkTool(log, "ffprobe", "-version")
	checkX264(log)
	checkJava(cfg, log)
	checkVapTool(cfg, log)
}

// checkTool verifies a binary is on PATH and logs its version line.
func checkTool(log Logger, name string, versionArg string) {
	if _, err := exec.LookPath(name); err != nil {
		log.Error("%s not found", name)
		return
	}
	out, err := exec.Command(name, versionArg).Output()
	if err != nil {
		log.Warn("%s found but %s failed: %v", name, versionArg, err)
		return
	}
	log.Success("%s: %s", name, firstLine(string(out)))
}

// checkX264 runs a minimal libx264 encode; the region swap depends on it.
func checkX264(log Logger) {
	log.Info("Testing libx264...")
	if runSilent("ffmpeg",
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=black:s=256x256:d=0.1",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-f", "null", "-",
	) {
		log.Success("libx264 works")
	} else {
		log.Error("libx264 test encode failed")
	}
}

// checkJava runs `java -version` with the configured binary. The version
// banner goes to stderr, so CombinedOutput is used.
func checkJava(cfg *config.Config, log Logger) {
	out, err := exec.Command(cfg.JavaPath, "-version").CombinedOutput()
	if err != nil {
		log.Error("java not runnable: %s (%v)", cfg.JavaPath, err)
		return
	}
	log.Success("java: %s", firstLine(string(out)))
}

// checkVapTool verifies the encoder jar is where the config says it is.
func checkVapTool(cfg *config.Config, log Logger) {
	if cfg.VapToolHome == "" {
		log.Warn("VapTool home not configured (--vaptool-home)")
		return
	}
	if _, err := os.Stat(cfg.AnimToolJar()); err != nil {
		log.Error("animtool.jar missing: %s", cfg.AnimToolJar())
		return
	}
	log.Success("VapTool: %s", cfg.VapToolHome)
}

// CheckDeps is the pre-pipeline validation: ffmpeg and ffprobe must be on
// PATH, java must run, and the VapTool jar must exist. Returns a sentinel
// error on the first failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrFfmpegNotFound
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return ErrFfprobeNotFound
	}
	if err := exec.Command(cfg.JavaPath, "-version").Run(); err != nil {
		return ErrJavaNotFound
	}
	if _, err := os.Stat(cfg.AnimToolJar()); err != nil {
		return ErrAnimToolMissing
	}
	return nil
}

// --- internal helpers ---

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		s = s[:idx]
	}
	return s
}

// runSilent runs a command and returns true if it exits with status 0.
// Both stdout and stderr are discarded.
func runSilent(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}
