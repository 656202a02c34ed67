// Package encoder drives the external VapTool encoder (a Java batch driver
// around animtool.jar). The callback-style completion signaling of the
// underlying tool is reframed as a single blocking Run call returning the
// artifact set or a typed error; progress percentages observed on stdout are
// exposed as an optional stream.
package encoder

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Artifact filenames the encoder must deposit in the output directory.
// A successful exit without the full set is still a failed encode.
const (
	VideoName    = "video.mp4"
	MetadataName = "vapc.json"
	ChecksumName = "md5.txt"
)

// EncodeError is any failure of the external encoder: non-zero exit,
// timeout, or a missing output artifact. The collaborator's diagnostic
// output is attached when available.
type EncodeError struct {
	Reason string
	Stderr string
}

func (e *EncodeError) Error() string {
	if e.Stderr == "" {
		return "encoder: " + e.Reason
	}
	return "encoder: " + e.Reason + "\n" + e.Stderr
}

// Encoder locates the external tools. BatchClass is the driver class name
// compiled from BatchSource inside VapToolHome.
type Encoder struct {
	Java        string // java binary path or name.
	VapToolHome string // Root containing animtool.jar and the batch driver.
}

const (
	batchClass  = "VapBatch"
	batchSource = "VapBatch.java"
)

// Request describes one encode invocation.
type Request struct {
	FramesDir string
	OutDir    string
	FPS       int
	Bitrate   int // kbps
	Scale     float64

	// Progress, when non-nil, receives observed completion percentages in
	// order. It is closed by Run. Callers that don't care pass nil.
	Progress chan<- int
}

// Artifacts holds the paths of the encoder's deposited outputs.
type Artifacts struct {
	VideoPath    string
	MetadataPath string
	ChecksumPath string
}

func (e *Encoder) animToolJar() string {
	return filepath.Join(e.VapToolHome, "animtool.jar")
}

// CompileBatchClass compiles the batch driver when its .class file is
// missing or older than the source. Cheap no-op on every later run.
func (e *Encoder) CompileBatchClass(ctx context.Context) error {
	src := filepath.Join(e.VapToolHome, batchSource)
	cls := filepath.Join(e.VapToolHome, batchClass+".class")

	srcInfo, err := os.Stat(src)
	if err != nil {
		return &EncodeError{Reason: fmt.Sprintf("missing batch driver source %s", src)}
	}
	if clsInfo, err := os.Stat(cls); err == nil && !clsInfo.ModTime().Before(srcInfo.ModTime()) {
		return nil
	}

	javac := javacPath(e.Java)
	cmd := exec.CommandContext(ctx, javac, "-cp", e.animToolJar(), src)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &EncodeError{Reason: "compile batch driver", Stderr: strings.TrimSpace(string(out))}
	}
	if _, err := os.Stat(cls); err != nil {
		return &EncodeError{Reason: fmt.Sprintf("compilation finished but %s is missing", cls)}
	}
	return nil
}

// javacPath derives the javac location from the configured java binary:
// a bare name falls back to PATH lookup, a path uses the sibling binary.
func javacPath(java string) string {
	if filepath.Base(java) == java {
		return "javac"
	}
	return filepath.Join(filepath.Dir(java), "javac")
}

var progressRe = regexp.MustCompile(`^Progress:\s*(\d+)%`)

// Run invokes the batch driver and blocks until it finishes, the context is
// cancelled, or its deadline passes. On success the full artifact set is
// verified to exist; a missing artifact is an *EncodeError even when the
// process exited cleanly.
func (e *Encoder) Run(ctx context.Context, req Request) (*Artifacts, error) {
	if req.Progress != nil {
		defer close(req.Progress)
	}

	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		return nil, err
	}

	classpath := e.animToolJar() + string(os.PathListSeparator) + e.VapToolHome
	cmd := exec.CommandContext(ctx, e.Java,
		"-cp", classpath,
		batchClass,
		e.VapToolHome,
		req.FramesDir,
		req.OutDir,
		strconv.Itoa(req.FPS),
		strconv.Itoa(req.Bitrate),
		strconv.FormatFloat(req.Scale, 'f', -1, 64),
	)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"frames_dir": req.FramesDir,
		"fps":        req.FPS,
		"bitrate":    req.Bitrate,
		"scale":      req.Scale,
	}).Debug("starting VapTool encode")

	if err := cmd.Start(); err != nil {
		return nil, &EncodeError{Reason: fmt.Sprintf("start encoder: %v", err)}
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if m := progressRe.FindStringSubmatch(line); m != nil {
			if req.Progress != nil {
				if pct, err := strconv.Atoi(m[1]); err == nil {
					req.Progress <- pct
				}
			}
			continue
		}
		if strings.HasPrefix(line, "Warning:") {
			logrus.Warn(strings.TrimSpace(strings.TrimPrefix(line, "Warning:")))
		}
	}

	if err := cmd.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &EncodeError{Reason: "timed out", Stderr: tail(stderrBuf.String())}
		}
		return nil, &EncodeError{
			Reason: fmt.Sprintf("exited with error: %v", err),
			Stderr: tail(stderrBuf.String()),
		}
	}

	return e.collectArtifacts(req.OutDir)
}

// collectArtifacts enforces the output contract: all three named artifacts
// must exist.
func (e *Encoder) collectArtifacts(outDir string) (*Artifacts, error) {
	a := &Artifacts{
		VideoPath:    filepath.Join(outDir, VideoName),
		MetadataPath: filepath.Join(outDir, MetadataName),
		ChecksumPath: filepath.Join(outDir, ChecksumName),
	}
	for _, p := range []string{a.VideoPath, a.MetadataPath, a.ChecksumPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, &EncodeError{Reason: fmt.Sprintf("missing expected artifact %s", filepath.Base(p))}
		}
	}
	return a, nil
}

// tail returns the last 20 lines of collaborator output for diagnostics.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 20 {
		lines = lines[len(lines)-20:]
	}
	return strings.Join(lines, "\n")
}
